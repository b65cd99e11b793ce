// Package backup snapshots local resource files before destructive writes
// and restores them byte-for-byte when an apply step fails partway.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauern/locsync/internal/logging"
)

const (
	// BackupDirPerm is the permission for backup directories (rwxr-x---)
	BackupDirPerm = 0o750
	// BackupFilePerm is the permission for backup archives (rw-r-----)
	BackupFilePerm = 0o640

	// BackupsDirName is the backups directory under the project's .locsync dir.
	BackupsDirName = "backups"
)

// ErrBackupNotFound is returned when a backup ID is not in the index.
var ErrBackupNotFound = errors.New("backup not found")

// Manager creates, restores, and prunes snapshot archives for one project.
type Manager struct {
	projectDir string
	backupsDir string
}

// NewManager creates a manager storing archives under
// <projectDir>/.locsync/backups.
func NewManager(projectDir string) *Manager {
	return &Manager{
		projectDir: projectDir,
		backupsDir: filepath.Join(projectDir, ".locsync", BackupsDirName),
	}
}

// Dir returns the backups directory.
func (m *Manager) Dir() string {
	return m.backupsDir
}

// Create snapshots the given files into a timestamped tar.gz archive and
// records it in the index. Paths may be absolute or project-relative; they
// are stored relative to the project directory so Restore can rewrite them
// in place. Create must succeed before any destructive write proceeds.
func (m *Manager) Create(files []string, reason string) (*Metadata, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("nothing to back up")
	}
	if err := os.MkdirAll(m.backupsDir, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	rels, err := m.relativize(files)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(m.backupsDir, "backup-*.tar.gz.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create backup archive: %w", err)
	}
	tmpPath := tmp.Name()

	digest := sha256.New()
	size, err := writeArchive(io.MultiWriter(tmp, digest), m.projectDir, rels)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write backup archive: %w", err)
	}

	hashStr := hex.EncodeToString(digest.Sum(nil))
	id := time.Now().Format("20060102-150405-") + hashStr[:8]
	archivePath := filepath.Join(m.backupsDir, id+".tar.gz")

	if err := os.Chmod(tmpPath, BackupFilePerm); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to set backup permissions: %w", err)
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize backup archive: %w", err)
	}

	metadata := &Metadata{
		ID:          id,
		ArchivePath: archivePath,
		CreatedAt:   time.Now(),
		Files:       rels,
		Hash:        hashStr,
		Size:        size,
		Reason:      reason,
	}

	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	if err := m.addToIndex(index, *metadata); err != nil {
		return nil, fmt.Errorf("failed to record backup in index: %w", err)
	}

	logging.Debug("created backup",
		logging.Backup(id),
		logging.Count(len(rels)),
	)
	return metadata, nil
}

// Restore overwrites the current files with the backed-up versions. Every
// file in the archive is rewritten; files created after the snapshot are
// left alone.
func (m *Manager) Restore(id string) error {
	index, err := m.loadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, exists := index.Backups[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrBackupNotFound, id)
	}

	if err := m.verifyArchive(metadata); err != nil {
		return err
	}

	// #nosec G304 - archive path comes from our own index
	f, err := os.Open(metadata.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read backup archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	restored := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read backup archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := m.restoreFile(hdr.Name, tr); err != nil {
			return fmt.Errorf("failed to restore %q: %w", hdr.Name, err)
		}
		restored++
	}

	logging.Info("restored backup",
		logging.Backup(id),
		logging.Count(restored),
	)
	return nil
}

// Verify checks that a backup archive is intact and matches its recorded hash.
func (m *Manager) Verify(id string) error {
	index, err := m.loadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, exists := index.Backups[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrBackupNotFound, id)
	}
	return m.verifyArchive(metadata)
}

// List returns all backups sorted by creation time, newest first.
func (m *Manager) List() ([]Metadata, error) {
	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := make([]Metadata, 0, len(index.Backups))
	for _, b := range index.Backups {
		backups = append(backups, b)
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// Delete removes a backup archive and its index entry.
func (m *Manager) Delete(id string) error {
	index, err := m.loadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, exists := index.Backups[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrBackupNotFound, id)
	}

	if err := os.Remove(metadata.ArchivePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup archive: %w", err)
	}
	return m.removeFromIndex(index, id)
}

// relativize converts file paths to project-relative form, rejecting paths
// outside the project directory.
func (m *Manager) relativize(files []string) ([]string, error) {
	rels := make([]string, 0, len(files))
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.projectDir, path)
		}
		rel, err := filepath.Rel(m.projectDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("file %q is outside the project directory", f)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels, nil
}

// restoreFile writes one archived file back into the project directory.
func (m *Manager) restoreFile(name string, r io.Reader) error {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("archive entry escapes project directory")
	}
	target := filepath.Join(m.projectDir, clean)

	if err := os.MkdirAll(filepath.Dir(target), BackupDirPerm); err != nil {
		return err
	}
	// #nosec G304 - target is confined to the project directory above
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	// #nosec G110 - archives are created locally by this tool, not attacker-supplied
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// verifyArchive re-hashes the archive file and compares against the index.
func (m *Manager) verifyArchive(metadata Metadata) error {
	// #nosec G304 - archive path comes from our own index
	f, err := os.Open(metadata.ArchivePath)
	if err != nil {
		return fmt.Errorf("backup archive missing or unreadable: %w", err)
	}
	defer f.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return fmt.Errorf("failed to read backup archive: %w", err)
	}
	if got := hex.EncodeToString(digest.Sum(nil)); got != metadata.Hash {
		return fmt.Errorf("backup archive corrupted: hash mismatch (expected %s, got %s)", metadata.Hash, got)
	}
	return nil
}

// writeArchive tars the given project-relative files into w and returns the
// total uncompressed size.
func writeArchive(w io.Writer, projectDir string, rels []string) (int64, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	var total int64
	for _, rel := range rels {
		path := filepath.Join(projectDir, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("failed to stat %q: %w", rel, err)
		}

		hdr := &tar.Header{
			Name:    rel,
			Mode:    int64(info.Mode().Perm()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 0, err
		}

		// #nosec G304 - path is confined to the project directory
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read %q: %w", rel, err)
		}
		n, err := io.Copy(tw, f)
		f.Close()
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tw.Close(); err != nil {
		return 0, err
	}
	return total, gz.Close()
}
