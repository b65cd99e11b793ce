package sync

import (
	"fmt"
	"strings"

	"github.com/klauern/locsync/internal/model"
)

// EntryRef addresses one (key, lang) pair.
type EntryRef struct {
	Key  string
	Lang string
}

// MergeResult is the outcome of classifying every (key, lang) pair across
// local, remote, and baseline.
type MergeResult struct {
	// ToWrite contains the entries to materialize into local resource files.
	ToWrite []model.Entry

	// ToDelete contains pairs whose local entry should be removed because
	// the deletion was auto-merged from the remote side.
	ToDelete []EntryRef

	// Conflicts contains the pairs that require an explicit resolution.
	Conflicts []EntryConflict

	// AutoMerged counts changes adopted automatically because only one side
	// diverged from the baseline.
	AutoMerged int

	// Unchanged counts pairs that needed no action for this direction.
	Unchanged int

	// NewHashes is the baseline for the next cycle: the hash each surviving
	// pair will have once the result is applied. Conflicted pairs join it
	// only through resolution.
	NewHashes map[EntryRef]string

	// Warnings records per-entry problems (malformed remote entries,
	// duplicate local keys) that were skipped without aborting the batch.
	Warnings []string
}

// newMergeResult returns an empty result with allocated maps.
func newMergeResult() *MergeResult {
	return &MergeResult{NewHashes: make(map[EntryRef]string)}
}

// HasConflicts returns true if any pair still requires resolution.
func (r *MergeResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// HasChanges returns true if applying the result would touch any file.
func (r *MergeResult) HasChanges() bool {
	return len(r.ToWrite) > 0 || len(r.ToDelete) > 0
}

// Clone returns a deep copy. ApplyResolutions works on a clone so the input
// result is never mutated.
func (r *MergeResult) Clone() *MergeResult {
	c := &MergeResult{
		ToWrite:    append([]model.Entry(nil), r.ToWrite...),
		ToDelete:   append([]EntryRef(nil), r.ToDelete...),
		Conflicts:  append([]EntryConflict(nil), r.Conflicts...),
		AutoMerged: r.AutoMerged,
		Unchanged:  r.Unchanged,
		NewHashes:  make(map[EntryRef]string, len(r.NewHashes)),
		Warnings:   append([]string(nil), r.Warnings...),
	}
	for ref, h := range r.NewHashes {
		c.NewHashes[ref] = h
	}
	return c
}

// Summary returns a human-readable summary of the merge.
func (r *MergeResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  Auto-merged: %d\n", r.AutoMerged))
	sb.WriteString(fmt.Sprintf("  Unchanged:   %d\n", r.Unchanged))
	sb.WriteString(fmt.Sprintf("  To write:    %d\n", len(r.ToWrite)))
	sb.WriteString(fmt.Sprintf("  To delete:   %d\n", len(r.ToDelete)))
	sb.WriteString(fmt.Sprintf("  Conflicts:   %d\n", len(r.Conflicts)))

	if len(r.Conflicts) > 0 {
		sb.WriteString("\nConflicts requiring resolution:\n")
		for i := range r.Conflicts {
			sb.WriteString("  - " + r.Conflicts[i].Summary() + "\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - " + w + "\n")
		}
	}
	return sb.String()
}

// ConfigMergeResult is the analogous outcome over scalar config properties.
type ConfigMergeResult struct {
	// ToWrite contains properties to materialize into the local config.
	ToWrite []model.ConfigProperty

	// ToDelete contains property paths to remove locally.
	ToDelete []string

	// Conflicts contains properties requiring explicit resolution.
	Conflicts []ConfigConflict

	AutoMerged int
	Unchanged  int

	// NewHashes maps property path to the baseline hash for the next cycle.
	NewHashes map[string]string

	Warnings []string
}

// newConfigMergeResult returns an empty result with allocated maps.
func newConfigMergeResult() *ConfigMergeResult {
	return &ConfigMergeResult{NewHashes: make(map[string]string)}
}

// HasConflicts returns true if any property still requires resolution.
func (r *ConfigMergeResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// HasChanges returns true if applying the result would modify the config.
func (r *ConfigMergeResult) HasChanges() bool {
	return len(r.ToWrite) > 0 || len(r.ToDelete) > 0
}

// Summary returns a human-readable summary of the config merge.
func (r *ConfigMergeResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  Auto-merged: %d\n", r.AutoMerged))
	sb.WriteString(fmt.Sprintf("  Unchanged:   %d\n", r.Unchanged))
	sb.WriteString(fmt.Sprintf("  To write:    %d\n", len(r.ToWrite)))
	sb.WriteString(fmt.Sprintf("  To delete:   %d\n", len(r.ToDelete)))
	sb.WriteString(fmt.Sprintf("  Conflicts:   %d\n", len(r.Conflicts)))

	if len(r.Conflicts) > 0 {
		sb.WriteString("\nConflicts requiring resolution:\n")
		for i := range r.Conflicts {
			sb.WriteString("  - " + r.Conflicts[i].Summary() + "\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - " + w + "\n")
		}
	}
	return sb.String()
}

// Clone returns a deep copy.
func (r *ConfigMergeResult) Clone() *ConfigMergeResult {
	c := &ConfigMergeResult{
		ToWrite:    append([]model.ConfigProperty(nil), r.ToWrite...),
		ToDelete:   append([]string(nil), r.ToDelete...),
		Conflicts:  append([]ConfigConflict(nil), r.Conflicts...),
		AutoMerged: r.AutoMerged,
		Unchanged:  r.Unchanged,
		NewHashes:  make(map[string]string, len(r.NewHashes)),
		Warnings:   append([]string(nil), r.Warnings...),
	}
	for path, h := range r.NewHashes {
		c.NewHashes[path] = h
	}
	return c
}
