package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Metadata describes a single snapshot archive.
type Metadata struct {
	ID          string    `json:"id"`           // Unique backup identifier (timestamp-based)
	ArchivePath string    `json:"archive_path"` // Path to the tar.gz archive
	CreatedAt   time.Time `json:"created_at"`   // Snapshot creation timestamp
	Files       []string  `json:"files"`        // Project-relative files inside the archive
	Hash        string    `json:"hash"`         // SHA256 hash of the archive
	Size        int64     `json:"size"`         // Total uncompressed size in bytes
	Reason      string    `json:"reason,omitempty"`
}

// Index maintains the set of known backups for one project.
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"` // Key: backup ID
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// loadIndex loads the backup index, returning an empty index when none
// exists yet.
func (m *Manager) loadIndex() (*Index, error) {
	indexPath := filepath.Join(m.backupsDir, IndexFilename)

	// #nosec G304 - indexPath lives inside the project's backups directory
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Backups: make(map[string]Metadata),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Metadata)
	}
	return &index, nil
}

// saveIndex persists the index to the backups directory.
func (m *Manager) saveIndex(index *Index) error {
	if err := os.MkdirAll(m.backupsDir, BackupDirPerm); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}

	index.Updated = time.Now()
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	indexPath := filepath.Join(m.backupsDir, IndexFilename)
	if err := os.WriteFile(indexPath, data, BackupFilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// addToIndex records a backup and saves the index.
func (m *Manager) addToIndex(index *Index, metadata Metadata) error {
	index.Backups[metadata.ID] = metadata
	return m.saveIndex(index)
}

// removeFromIndex drops a backup entry and saves the index.
func (m *Manager) removeFromIndex(index *Index, id string) error {
	delete(index.Backups, id)
	return m.saveIndex(index)
}
