// Package model defines the core data types shared across locsync.
package model

import "time"

// Entry is a single translation value for one key in one language, as read
// from the local resource files. Entries are transient: they are rebuilt on
// every sync invocation.
type Entry struct {
	Key   string `json:"key"`
	Lang  string `json:"lang"`
	Value string `json:"value"`
	Hash  string `json:"hash"`
}

// RemoteEntry is a translation entry as reported by the remote store. The
// hash is computed server-side with the same algorithm as local hashes, so
// the two are directly comparable.
type RemoteEntry struct {
	Key       string    `json:"key"`
	Lang      string    `json:"lang"`
	Value     string    `json:"value"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConfigProperty is a scalar project configuration property addressed by a
// dotted path, synchronized alongside translation entries but in a distinct
// namespace.
type ConfigProperty struct {
	Path  string `json:"path"`
	Value string `json:"value"`
	Hash  string `json:"hash"`
}
