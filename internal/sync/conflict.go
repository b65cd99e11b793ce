package sync

import (
	"fmt"
	"time"
)

// TargetType identifies what a conflict or resolution refers to.
type TargetType string

const (
	// TargetEntry addresses a translation entry by (key, lang).
	TargetEntry TargetType = "entry"

	// TargetConfigProperty addresses a scalar config property by path.
	TargetConfigProperty TargetType = "config"
)

// ResolutionChoice represents how a single conflict should be resolved.
type ResolutionChoice string

const (
	// ResolutionLocal keeps the local version, discarding the remote change.
	ResolutionLocal ResolutionChoice = "local"

	// ResolutionRemote accepts the remote version, discarding the local change.
	ResolutionRemote ResolutionChoice = "remote"

	// ResolutionEdit replaces both versions with caller-supplied text.
	ResolutionEdit ResolutionChoice = "edit"

	// ResolutionSkip aborts the whole operation before anything is written.
	ResolutionSkip ResolutionChoice = "skip"
)

// EntryConflict is a (key, lang) pair that diverged on both sides since the
// baseline. A nil LocalValue means the entry is missing locally; a nil
// RemoteValue means it was deleted remotely.
type EntryConflict struct {
	Key             string
	Lang            string
	LocalValue      *string
	RemoteValue     *string
	RemoteUpdatedAt time.Time
}

// IsDeletion reports whether one side deleted the entry while the other
// modified it. Delete/modify collisions never resolve by default; they
// always require an explicit resolution.
func (c *EntryConflict) IsDeletion() bool {
	return c.LocalValue == nil || c.RemoteValue == nil
}

// Summary returns a one-line description of the conflict.
func (c *EntryConflict) Summary() string {
	switch {
	case c.LocalValue == nil:
		return fmt.Sprintf("%s [%s]: deleted locally, changed remotely", c.Key, c.Lang)
	case c.RemoteValue == nil:
		return fmt.Sprintf("%s [%s]: changed locally, deleted remotely", c.Key, c.Lang)
	default:
		return fmt.Sprintf("%s [%s]: changed on both sides", c.Key, c.Lang)
	}
}

// ConfigConflict is a config property that diverged on both sides since the
// baseline, with the same nil-pointer deletion semantics as EntryConflict.
type ConfigConflict struct {
	Path        string
	LocalValue  *string
	RemoteValue *string
}

// Summary returns a one-line description of the conflict.
func (c *ConfigConflict) Summary() string {
	switch {
	case c.LocalValue == nil:
		return fmt.Sprintf("config %s: removed locally, changed remotely", c.Path)
	case c.RemoteValue == nil:
		return fmt.Sprintf("config %s: changed locally, removed remotely", c.Path)
	default:
		return fmt.Sprintf("config %s: changed on both sides", c.Path)
	}
}

// ConflictResolution is the caller's decision for one conflict. Entry
// conflicts are addressed by (Key, Lang); config conflicts by Key alone with
// TargetType set to TargetConfigProperty.
type ConflictResolution struct {
	Key         string
	Lang        string
	TargetType  TargetType
	Resolution  ResolutionChoice
	EditedValue string
}

// StrPtr returns a pointer to s. Convenience for building conflict values.
func StrPtr(s string) *string {
	return &s
}
