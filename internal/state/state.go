// Package state persists the sync baseline: the set of content hashes last
// known to be identical between the local working copy and the remote store.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/locsync/internal/logging"
)

const (
	// CurrentVersion is the schema version written by Save.
	CurrentVersion = 2

	// legacyVersion is the whole-file-hash scheme that predates key-level
	// sync. Loading it triggers a best-effort migration.
	legacyVersion = 1

	// StateDirName is the per-project metadata directory.
	StateDirName = ".locsync"

	// StateFileName is the baseline file inside StateDirName.
	StateFileName = "state.json"

	stateDirPerm  = 0o750
	stateFilePerm = 0o640
)

// ErrStateCorrupt is returned by internal validation when the persisted
// state cannot be trusted. Callers of Load never see it as a hard failure;
// it is reported through LoadResult.WasCorrupted instead.
var ErrStateCorrupt = errors.New("sync state is corrupt")

// State is the agreed baseline between local and remote. Every (key, lang)
// hash in Entries was, at Timestamp, equal on both sides.
type State struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// Entries maps key -> lang -> content hash.
	Entries map[string]map[string]string `json:"entries"`

	// ConfigProperties maps property path -> content hash. This namespace is
	// distinct from Entries, so overlapping key/path text never collides.
	ConfigProperties map[string]string `json:"configProperties"`

	// Legacy v1 fields, kept only so migration can read them.
	LegacyEntries map[string]string `json:"entryHashes,omitempty"`
	LegacyFiles   map[string]string `json:"files,omitempty"`
}

// New returns an empty baseline at the current schema version.
func New() *State {
	return &State{
		Version:          CurrentVersion,
		Entries:          make(map[string]map[string]string),
		ConfigProperties: make(map[string]string),
	}
}

// EntryHash returns the baseline hash for (key, lang), or "" if the pair has
// no baseline.
func (s *State) EntryHash(key, lang string) string {
	if s == nil || s.Entries == nil {
		return ""
	}
	return s.Entries[key][lang]
}

// SetEntryHash records the baseline hash for (key, lang).
func (s *State) SetEntryHash(key, lang, hash string) {
	if s.Entries == nil {
		s.Entries = make(map[string]map[string]string)
	}
	langs, ok := s.Entries[key]
	if !ok {
		langs = make(map[string]string)
		s.Entries[key] = langs
	}
	langs[lang] = hash
}

// ConfigHash returns the baseline hash for a config property path, or "".
func (s *State) ConfigHash(path string) string {
	if s == nil || s.ConfigProperties == nil {
		return ""
	}
	return s.ConfigProperties[path]
}

// EntryCount returns the number of (key, lang) pairs in the baseline.
func (s *State) EntryCount() int {
	n := 0
	for _, langs := range s.Entries {
		n += len(langs)
	}
	return n
}

// LoadResult describes the outcome of loading the persisted baseline.
type LoadResult struct {
	// State is the loaded baseline, or nil when no usable baseline exists
	// (absent or corrupt), which callers must treat as first-pull semantics.
	State *State

	// Existed reports whether a state file was present at all.
	Existed bool

	// WasCorrupted reports that persisted data failed to parse or validate
	// and first-pull semantics apply.
	WasCorrupted bool

	// NeedsMigration reports that a legacy schema was loaded and mapped
	// best-effort into the current key-level scheme.
	NeedsMigration bool
}

// Store loads and saves the baseline for one project directory. The project
// directory is the unit of exclusivity: callers must not run concurrent sync
// operations against the same directory.
type Store struct {
	projectDir string
}

// NewStore creates a store rooted at the given project directory.
func NewStore(projectDir string) *Store {
	return &Store{projectDir: projectDir}
}

// Path returns the location of the persisted state file.
func (st *Store) Path() string {
	return filepath.Join(st.projectDir, StateDirName, StateFileName)
}

// Load reads the persisted baseline. Corruption and schema mismatches are
// recovered, never fatal: the result flags them and the caller proceeds with
// first-pull semantics or the migrated state respectively. An error is
// returned only for unexpected I/O failures.
func (st *Store) Load() (LoadResult, error) {
	path := st.Path()

	// #nosec G304 - path is derived from the project directory the caller chose
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read state file %q: %w", path, err)
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		logging.Warn("sync state failed to parse, treating as first pull",
			logging.Path(path),
			logging.Err(err),
		)
		return LoadResult{Existed: true, WasCorrupted: true}, nil
	}

	if err := validate(&loaded); err != nil {
		logging.Warn("sync state failed validation, treating as first pull",
			logging.Path(path),
			logging.Err(err),
		)
		return LoadResult{Existed: true, WasCorrupted: true}, nil
	}

	if loaded.Version == legacyVersion {
		migrated, mapped, dropped := migrateLegacy(&loaded)
		logging.Warn("migrated sync state from legacy schema",
			logging.Path(path),
			logging.Count(mapped),
			"dropped", dropped,
		)
		return LoadResult{State: migrated, Existed: true, NeedsMigration: true}, nil
	}

	// Missing maps are defaulted for forward compatibility.
	if loaded.Entries == nil {
		loaded.Entries = make(map[string]map[string]string)
	}
	if loaded.ConfigProperties == nil {
		loaded.ConfigProperties = make(map[string]string)
	}

	return LoadResult{State: &loaded, Existed: true}, nil
}

// Save atomically replaces the persisted baseline. A torn write is never
// observable: the new state is written to a temp file in the same directory
// and renamed over the old one.
func (st *Store) Save(s *State) error {
	s.Version = CurrentVersion
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	// Legacy fields must not leak back into current-version files.
	s.LegacyEntries = nil
	s.LegacyFiles = nil

	dir := filepath.Dir(st.Path())
	if err := os.MkdirAll(dir, stateDirPerm); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, stateFilePerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, st.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// validate rejects states that parsed but cannot be trusted.
func validate(s *State) error {
	if s.Version <= 0 {
		return fmt.Errorf("%w: missing or invalid version", ErrStateCorrupt)
	}
	if s.Version > CurrentVersion {
		return fmt.Errorf("%w: version %d is newer than supported %d", ErrStateCorrupt, s.Version, CurrentVersion)
	}
	for key, langs := range s.Entries {
		if key == "" {
			return fmt.Errorf("%w: empty entry key", ErrStateCorrupt)
		}
		for lang, h := range langs {
			if lang == "" || h == "" {
				return fmt.Errorf("%w: entry %q has empty language or hash", ErrStateCorrupt, key)
			}
		}
	}
	return nil
}
