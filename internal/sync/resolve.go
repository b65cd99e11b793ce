package sync

import (
	"errors"
	"fmt"

	"github.com/klauern/locsync/internal/hash"
	"github.com/klauern/locsync/internal/model"
)

// ErrSyncAborted is returned when a Skip resolution cancels the operation.
// Nothing has been written to disk at resolution time, so the abort is
// side-effect free.
var ErrSyncAborted = errors.New("sync aborted")

// hashOf is the content hasher used when resolutions introduce new values.
func hashOf(value string) string {
	return hash.Sum(value)
}

// ApplyResolutions folds a list of resolutions into a merge result and
// returns a new result; the input is never mutated. Conflicts without a
// matching resolution remain in Conflicts. Resolutions that no longer match
// a conflict are ignored, which makes the operation idempotent: applying the
// same list twice yields identical output.
func (m *Merger) ApplyResolutions(result *MergeResult, resolutions []ConflictResolution, localIndex map[EntryRef]model.Entry) (*MergeResult, error) {
	byRef := make(map[EntryRef]ConflictResolution)
	for _, res := range resolutions {
		if res.TargetType == TargetConfigProperty {
			continue
		}
		// Skip aborts the whole operation regardless of which conflict it
		// targets or whether that conflict still exists.
		if res.Resolution == ResolutionSkip {
			return nil, fmt.Errorf("%w: skip requested for %s [%s]", ErrSyncAborted, res.Key, res.Lang)
		}
		byRef[EntryRef{Key: res.Key, Lang: res.Lang}] = res
	}

	applied := result.Clone()
	var remaining []EntryConflict

	for _, conflict := range applied.Conflicts {
		ref := EntryRef{Key: conflict.Key, Lang: conflict.Lang}
		res, ok := byRef[ref]
		if !ok {
			remaining = append(remaining, conflict)
			continue
		}

		switch res.Resolution {
		case ResolutionRemote:
			if conflict.RemoteValue == nil {
				// Accepting a remote deletion removes the local entry.
				applied.ToDelete = append(applied.ToDelete, ref)
				delete(applied.NewHashes, ref)
			} else {
				entry := model.Entry{
					Key:   conflict.Key,
					Lang:  conflict.Lang,
					Value: *conflict.RemoteValue,
					Hash:  hashOf(*conflict.RemoteValue),
				}
				applied.ToWrite = append(applied.ToWrite, entry)
				applied.NewHashes[ref] = entry.Hash
			}

		case ResolutionLocal:
			// Keep the local value: nothing to write, but the baseline must
			// stay consistent with what is actually on disk.
			if le, exists := localIndex[ref]; exists {
				applied.NewHashes[ref] = le.Hash
			} else {
				// Local side is a deletion; the pair has no baseline until
				// the deletion reaches the remote.
				delete(applied.NewHashes, ref)
			}

		case ResolutionEdit:
			entry := model.Entry{
				Key:   conflict.Key,
				Lang:  conflict.Lang,
				Value: res.EditedValue,
				Hash:  hashOf(res.EditedValue),
			}
			applied.ToWrite = append(applied.ToWrite, entry)
			applied.NewHashes[ref] = entry.Hash

		default:
			return nil, fmt.Errorf("unknown resolution choice %q for %s [%s]", res.Resolution, conflict.Key, conflict.Lang)
		}
	}

	applied.Conflicts = remaining
	sortEntries(applied.ToWrite)
	sortRefs(applied.ToDelete)
	return applied, nil
}
