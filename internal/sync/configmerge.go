package sync

import (
	"fmt"
	"sort"

	"github.com/klauern/locsync/internal/model"
	"github.com/klauern/locsync/internal/state"
)

// ConfigMerger applies the same three-way logic as Merger to scalar config
// properties. There is no language dimension and no duplicate-occurrence
// concern; properties live in the SyncState's ConfigProperties namespace,
// distinct from entries, so overlapping path and key text never collides.
type ConfigMerger struct{}

// NewConfigMerger creates a new ConfigMerger.
func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge performs the pull-direction three-way merge over config properties.
// A nil baseline accepts every remote property.
func (m *ConfigMerger) Merge(local, remote map[string]model.ConfigProperty, base *state.State) *ConfigMergeResult {
	result := newConfigMergeResult()

	for _, path := range unionPaths(local, remote, base) {
		if path == "" {
			result.Warnings = append(result.Warnings, "skipped config property with empty path")
			continue
		}

		lp, hasLocal := local[path]
		rp, hasRemote := remote[path]
		var b string
		if base != nil {
			b = base.ConfigHash(path)
		}

		var l, r string
		if hasLocal {
			l = lp.Hash
		}
		if hasRemote {
			r = rp.Hash
		}

		// First pull: no baseline at all means accept-all-remote.
		if base == nil {
			if hasRemote {
				result.ToWrite = append(result.ToWrite, rp)
				result.AutoMerged++
				result.NewHashes[path] = r
			} else {
				result.Unchanged++
			}
			continue
		}

		switch {
		case l == r:
			result.Unchanged++
			if l != "" {
				result.NewHashes[path] = l
			}

		case hasLocal && hasRemote:
			switch {
			case b == "":
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, &rp))
			case l == b:
				result.ToWrite = append(result.ToWrite, rp)
				result.AutoMerged++
				result.NewHashes[path] = r
			case r == b:
				result.Unchanged++
				result.NewHashes[path] = b
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, &rp))
			}

		case hasRemote: // missing locally
			switch {
			case b == "":
				result.ToWrite = append(result.ToWrite, rp)
				result.AutoMerged++
				result.NewHashes[path] = r
			case r == b:
				result.Unchanged++
				result.NewHashes[path] = b
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, nil, &rp))
			}

		default: // missing remotely
			switch {
			case b == "":
				result.Unchanged++
			case l == b:
				result.ToDelete = append(result.ToDelete, path)
				result.AutoMerged++
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, nil))
			}
		}
	}

	sortConfigProperties(result.ToWrite)
	sort.Strings(result.ToDelete)
	sort.Slice(result.Conflicts, func(i, j int) bool { return result.Conflicts[i].Path < result.Conflicts[j].Path })
	return result
}

// MergeForPush is the symmetric classification: properties whose local hash
// diverged from the baseline while the remote stayed put become the upload
// set; remote-side divergence is left for the next pull.
func (m *ConfigMerger) MergeForPush(local, remote map[string]model.ConfigProperty, base *state.State) *ConfigMergeResult {
	result := newConfigMergeResult()

	for _, path := range unionPaths(local, remote, base) {
		if path == "" {
			result.Warnings = append(result.Warnings, "skipped config property with empty path")
			continue
		}

		lp, hasLocal := local[path]
		rp, hasRemote := remote[path]
		var b string
		if base != nil {
			b = base.ConfigHash(path)
		}

		var l, r string
		if hasLocal {
			l = lp.Hash
		}
		if hasRemote {
			r = rp.Hash
		}

		switch {
		case l == r:
			result.Unchanged++
			if l != "" {
				result.NewHashes[path] = l
			}

		case hasLocal && hasRemote:
			switch {
			case b == "":
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, &rp))
			case r == b:
				result.ToWrite = append(result.ToWrite, lp)
				result.AutoMerged++
				result.NewHashes[path] = l
			case l == b:
				result.Unchanged++
				result.NewHashes[path] = b
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, &rp))
			}

		case hasLocal: // missing remotely
			switch {
			case b == "":
				result.ToWrite = append(result.ToWrite, lp)
				result.AutoMerged++
				result.NewHashes[path] = l
			case l == b:
				result.Unchanged++
				result.NewHashes[path] = b
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, &lp, nil))
			}

		default: // missing locally
			switch {
			case b == "":
				result.Unchanged++
			case r == b:
				result.ToDelete = append(result.ToDelete, path)
				result.AutoMerged++
			default:
				result.Conflicts = append(result.Conflicts, configConflict(path, nil, &rp))
			}
		}
	}

	sortConfigProperties(result.ToWrite)
	sort.Strings(result.ToDelete)
	sort.Slice(result.Conflicts, func(i, j int) bool { return result.Conflicts[i].Path < result.Conflicts[j].Path })
	return result
}

// ApplyResolutions folds resolutions with TargetType TargetConfigProperty
// into the result. Semantics match Merger.ApplyResolutions, including the
// skip-aborts-everything rule and idempotence.
func (m *ConfigMerger) ApplyResolutions(result *ConfigMergeResult, resolutions []ConflictResolution, localIndex map[string]model.ConfigProperty) (*ConfigMergeResult, error) {
	byPath := make(map[string]ConflictResolution)
	for _, res := range resolutions {
		if res.TargetType != TargetConfigProperty {
			continue
		}
		if res.Resolution == ResolutionSkip {
			return nil, ErrSyncAborted
		}
		byPath[res.Path()] = res
	}

	applied := result.Clone()
	var remaining []ConfigConflict

	for _, conflict := range applied.Conflicts {
		res, ok := byPath[conflict.Path]
		if !ok {
			remaining = append(remaining, conflict)
			continue
		}

		switch res.Resolution {
		case ResolutionRemote:
			if conflict.RemoteValue == nil {
				applied.ToDelete = append(applied.ToDelete, conflict.Path)
				delete(applied.NewHashes, conflict.Path)
			} else {
				prop := model.ConfigProperty{Path: conflict.Path, Value: *conflict.RemoteValue, Hash: hashOf(*conflict.RemoteValue)}
				applied.ToWrite = append(applied.ToWrite, prop)
				applied.NewHashes[conflict.Path] = prop.Hash
			}
		case ResolutionLocal:
			if lp, exists := localIndex[conflict.Path]; exists {
				applied.NewHashes[conflict.Path] = lp.Hash
			} else {
				delete(applied.NewHashes, conflict.Path)
			}
		case ResolutionEdit:
			prop := model.ConfigProperty{Path: conflict.Path, Value: res.EditedValue, Hash: hashOf(res.EditedValue)}
			applied.ToWrite = append(applied.ToWrite, prop)
			applied.NewHashes[conflict.Path] = prop.Hash
		default:
			return nil, fmt.Errorf("unknown resolution choice %q for config %s", res.Resolution, conflict.Path)
		}
	}

	applied.Conflicts = remaining
	sortConfigProperties(applied.ToWrite)
	sort.Strings(applied.ToDelete)
	return applied, nil
}

// Path returns the config property path a resolution addresses. For config
// targets the Key field carries the path and Lang is unused.
func (r ConflictResolution) Path() string {
	return r.Key
}

func configConflict(path string, local, remote *model.ConfigProperty) ConfigConflict {
	c := ConfigConflict{Path: path}
	if local != nil {
		c.LocalValue = StrPtr(local.Value)
	}
	if remote != nil {
		c.RemoteValue = StrPtr(remote.Value)
	}
	return c
}

func unionPaths(local, remote map[string]model.ConfigProperty, base *state.State) []string {
	seen := make(map[string]bool, len(local)+len(remote))
	for path := range local {
		seen[path] = true
	}
	for path := range remote {
		seen[path] = true
	}
	if base != nil {
		for path := range base.ConfigProperties {
			seen[path] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func sortConfigProperties(props []model.ConfigProperty) {
	sort.Slice(props, func(i, j int) bool { return props[i].Path < props[j].Path })
}
