package sync

import (
	"fmt"
	"sort"

	"github.com/klauern/locsync/internal/hash"
	"github.com/klauern/locsync/internal/logging"
	"github.com/klauern/locsync/internal/model"
	"github.com/klauern/locsync/internal/state"
)

// Merger classifies every (key, lang) pair into auto-merge, unchanged, or
// conflict by comparing the local hash L, the remote hash R, and the
// baseline hash B. An absent hash means the entry does not exist on that
// side. Merge and MergeForPush are pure: no I/O, inputs never mutated,
// output deterministic.
type Merger struct{}

// NewMerger creates a new Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// MergeForFirstPull handles the degenerate case with no baseline: every
// remote entry is accepted unconditionally. Malformed remote entries are
// skipped with a warning, never aborting the batch.
func (m *Merger) MergeForFirstPull(remote []model.RemoteEntry) *MergeResult {
	result := newMergeResult()

	idx := indexRemote(remote, result)
	for ref, re := range idx {
		result.ToWrite = append(result.ToWrite, model.Entry{
			Key:   re.Key,
			Lang:  re.Lang,
			Value: re.Value,
			Hash:  re.Hash,
		})
		result.NewHashes[ref] = re.Hash
	}
	result.AutoMerged = len(result.ToWrite)

	sortEntries(result.ToWrite)
	return result
}

// Merge performs the pull-direction three-way merge. A nil baseline falls
// back to first-pull semantics.
func (m *Merger) Merge(local []model.Entry, remote []model.RemoteEntry, base *state.State) *MergeResult {
	if base == nil {
		return m.MergeForFirstPull(remote)
	}

	result := newMergeResult()
	localIdx := indexLocal(local)
	remoteIdx := indexRemote(remote, result)

	for _, ref := range unionRefs(localIdx, remoteIdx, base) {
		le, hasLocal := localIdx[ref]
		re, hasRemote := remoteIdx[ref]
		b := base.EntryHash(ref.Key, ref.Lang)

		var l, r string
		if hasLocal {
			l = le.Hash
		}
		if hasRemote {
			r = re.Hash
		}

		switch {
		case l == r:
			// Includes both-absent: the pair was deleted on both sides and
			// simply drops out of the baseline.
			result.Unchanged++
			if l != "" {
				result.NewHashes[ref] = l
			}

		case hasLocal && hasRemote:
			switch {
			case b == "":
				// No common ancestor and both sides set a value.
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, &re))
			case l == b:
				// Only remote changed.
				result.ToWrite = append(result.ToWrite, model.Entry{
					Key: re.Key, Lang: re.Lang, Value: re.Value, Hash: re.Hash,
				})
				result.AutoMerged++
				result.NewHashes[ref] = r
			case r == b:
				// Only local changed. Nothing to write on pull; the baseline
				// keeps B so the push path still sees the divergence.
				result.Unchanged++
				result.NewHashes[ref] = b
			default:
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, &re))
			}

		case hasRemote: // missing locally
			switch {
			case b == "":
				// New remote entry: only remote diverged from an absent baseline.
				result.ToWrite = append(result.ToWrite, model.Entry{
					Key: re.Key, Lang: re.Lang, Value: re.Value, Hash: re.Hash,
				})
				result.AutoMerged++
				result.NewHashes[ref] = r
			case r == b:
				// Local deleted, remote untouched: the push path propagates it.
				result.Unchanged++
				result.NewHashes[ref] = b
			default:
				// Local deleted while remote modified.
				result.Conflicts = append(result.Conflicts, entryConflict(ref, nil, &re))
			}

		default: // missing remotely, hasLocal
			switch {
			case b == "":
				// New local entry: push material, nothing to do on pull.
				result.Unchanged++
			case l == b:
				// Remote deleted, local untouched: propagate the deletion.
				result.ToDelete = append(result.ToDelete, ref)
				result.AutoMerged++
			default:
				// Remote deleted while local modified.
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, nil))
			}
		}
	}

	sortEntries(result.ToWrite)
	sortRefs(result.ToDelete)
	sortConflicts(result.Conflicts)
	return result
}

// MergeForPush is the symmetric classification: entries whose local hash
// diverged from the baseline while the remote stayed put become the upload
// set; remote-side divergence is left for the next pull.
func (m *Merger) MergeForPush(local []model.Entry, remote []model.RemoteEntry, base *state.State) *MergeResult {
	result := newMergeResult()
	localIdx := indexLocal(local)
	remoteIdx := indexRemote(remote, result)

	for _, ref := range unionRefs(localIdx, remoteIdx, base) {
		le, hasLocal := localIdx[ref]
		re, hasRemote := remoteIdx[ref]
		var b string
		if base != nil {
			b = base.EntryHash(ref.Key, ref.Lang)
		}

		var l, r string
		if hasLocal {
			l = le.Hash
		}
		if hasRemote {
			r = re.Hash
		}

		switch {
		case l == r:
			result.Unchanged++
			if l != "" {
				result.NewHashes[ref] = l
			}

		case hasLocal && hasRemote:
			switch {
			case b == "":
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, &re))
			case r == b:
				// Only local changed: upload it.
				result.ToWrite = append(result.ToWrite, le)
				result.AutoMerged++
				result.NewHashes[ref] = l
			case l == b:
				// Only remote changed: the pull path will take it.
				result.Unchanged++
				result.NewHashes[ref] = b
			default:
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, &re))
			}

		case hasLocal: // missing remotely
			switch {
			case b == "":
				// New local entry: upload.
				result.ToWrite = append(result.ToWrite, le)
				result.AutoMerged++
				result.NewHashes[ref] = l
			case l == b:
				// Remote deleted, local unchanged: the pull path removes it.
				result.Unchanged++
				result.NewHashes[ref] = b
			default:
				result.Conflicts = append(result.Conflicts, entryConflict(ref, &le, nil))
			}

		default: // missing locally, hasRemote
			switch {
			case b == "":
				// New remote entry: pull material.
				result.Unchanged++
			case r == b:
				// Local deleted, remote unchanged: push the deletion.
				result.ToDelete = append(result.ToDelete, ref)
				result.AutoMerged++
			default:
				result.Conflicts = append(result.Conflicts, entryConflict(ref, nil, &re))
			}
		}
	}

	sortEntries(result.ToWrite)
	sortRefs(result.ToDelete)
	sortConflicts(result.Conflicts)
	return result
}

// entryConflict builds an EntryConflict from the present sides.
func entryConflict(ref EntryRef, local *model.Entry, remote *model.RemoteEntry) EntryConflict {
	c := EntryConflict{Key: ref.Key, Lang: ref.Lang}
	if local != nil {
		c.LocalValue = StrPtr(local.Value)
	}
	if remote != nil {
		c.RemoteValue = StrPtr(remote.Value)
		c.RemoteUpdatedAt = remote.UpdatedAt
	}
	return c
}

// indexLocal maps local entries by ref. Duplicates should already have been
// canonicalized by the extractor; any stragglers keep the first occurrence.
func indexLocal(local []model.Entry) map[EntryRef]model.Entry {
	idx := make(map[EntryRef]model.Entry, len(local))
	for _, e := range local {
		ref := EntryRef{Key: e.Key, Lang: e.Lang}
		if _, exists := idx[ref]; exists {
			continue
		}
		idx[ref] = e
	}
	return idx
}

// indexRemote maps remote entries by ref, skipping malformed entries with a
// recorded warning. A missing hash is recomputed from the value so the entry
// stays comparable.
func indexRemote(remote []model.RemoteEntry, result *MergeResult) map[EntryRef]model.RemoteEntry {
	idx := make(map[EntryRef]model.RemoteEntry, len(remote))
	for _, re := range remote {
		if re.Key == "" || re.Lang == "" {
			warning := fmt.Sprintf("skipped malformed remote entry (key=%q, lang=%q)", re.Key, re.Lang)
			result.Warnings = append(result.Warnings, warning)
			logging.Warn("skipped malformed remote entry",
				logging.Entry(re.Key),
				logging.Lang(re.Lang),
			)
			continue
		}
		if re.Hash == "" {
			re.Hash = hash.Sum(re.Value)
		}
		ref := EntryRef{Key: re.Key, Lang: re.Lang}
		if _, exists := idx[ref]; exists {
			result.Warnings = append(result.Warnings, fmt.Sprintf("duplicate remote entry %s [%s]", re.Key, re.Lang))
			continue
		}
		idx[ref] = re
	}
	return idx
}

// unionRefs returns every ref present locally, remotely, or in the baseline,
// in sorted order for deterministic output.
func unionRefs(local map[EntryRef]model.Entry, remote map[EntryRef]model.RemoteEntry, base *state.State) []EntryRef {
	seen := make(map[EntryRef]bool, len(local)+len(remote))
	for ref := range local {
		seen[ref] = true
	}
	for ref := range remote {
		seen[ref] = true
	}
	if base != nil {
		for key, langs := range base.Entries {
			for lang := range langs {
				seen[EntryRef{Key: key, Lang: lang}] = true
			}
		}
	}

	refs := make([]EntryRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs
}

func sortEntries(entries []model.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key != entries[j].Key {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Lang < entries[j].Lang
	})
}

func sortRefs(refs []EntryRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Key != refs[j].Key {
			return refs[i].Key < refs[j].Key
		}
		return refs[i].Lang < refs[j].Lang
	})
}

func sortConflicts(conflicts []EntryConflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Key != conflicts[j].Key {
			return conflicts[i].Key < conflicts[j].Key
		}
		return conflicts[i].Lang < conflicts[j].Lang
	})
}
