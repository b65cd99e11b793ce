// Package sync implements the key-level synchronization engine.
//
// The engine reconciles three views of a project's translation entries: the
// local resource files, the remote store, and the persisted baseline (the
// hashes both sides last agreed on). Each (key, language) pair is classified
// by a three-way merge into unchanged, auto-merged, or conflicting; config
// properties get the same treatment in their own namespace.
//
// The merge itself is pure: it performs no I/O and never mutates its inputs,
// so it can be tested in isolation. Conflict resolution is a caller concern.
// The engine exposes the remaining conflicts and accepts a list of
// resolutions produced by whatever means the caller chooses (policy,
// scripted, interactive); it contains no prompting logic of its own.
//
// Applying a merge to disk is bracketed by the backup manager: a snapshot is
// taken before the first write, and a failed write-back restores the project
// byte-for-byte. An operation that reaches the apply phase either fully
// succeeds with a new baseline persisted, or fully fails with the local tree
// restored.
package sync
