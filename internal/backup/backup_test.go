package backup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProjectFile(t *testing.T, projectDir, rel, content string) string {
	t.Helper()
	path := filepath.Join(projectDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

// backdate rewrites a backup's creation time in the index so retention tests
// are deterministic.
func backdate(t *testing.T, m *Manager, id string, createdAt time.Time) {
	t.Helper()
	indexPath := filepath.Join(m.Dir(), IndexFilename)
	data, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatal(err)
	}
	meta, ok := index.Backups[id]
	if !ok {
		t.Fatalf("backup %q not in index", id)
	}
	meta.CreatedAt = createdAt
	index.Backups[id] = meta
	data, err = json.MarshalIndent(index, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(indexPath, data, 0o640); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	projectDir := t.TempDir()
	en := writeProjectFile(t, projectDir, "locales/en.json", `{"app.title": "Title"}`)
	de := writeProjectFile(t, projectDir, "locales/de.json", `{"app.title": "Titel"}`)

	mgr := NewManager(projectDir)
	meta, err := mgr.Create([]string{en, de}, "before test")
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}
	if meta.ID == "" || meta.Hash == "" {
		t.Errorf("incomplete metadata: %+v", meta)
	}
	if len(meta.Files) != 2 {
		t.Errorf("Files = %v, want 2 entries", meta.Files)
	}
	if meta.Reason != "before test" {
		t.Errorf("Reason = %q", meta.Reason)
	}

	// Clobber both files, then restore.
	if err := os.WriteFile(en, []byte("garbage"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(de); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Restore(meta.ID); err != nil {
		t.Fatalf("failed to restore backup: %v", err)
	}

	got, err := os.ReadFile(en)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"app.title": "Title"}` {
		t.Errorf("en not restored byte for byte: %q", got)
	}
	got, err = os.ReadFile(de)
	if err != nil {
		t.Fatalf("deleted file was not recreated: %v", err)
	}
	if string(got) != `{"app.title": "Titel"}` {
		t.Errorf("de not restored byte for byte: %q", got)
	}
}

func TestRestoreLeavesNewFilesAlone(t *testing.T) {
	projectDir := t.TempDir()
	en := writeProjectFile(t, projectDir, "locales/en.json", "original")

	mgr := NewManager(projectDir)
	meta, err := mgr.Create([]string{en}, "")
	if err != nil {
		t.Fatal(err)
	}

	// A file created after the snapshot must survive the restore.
	fr := writeProjectFile(t, projectDir, "locales/fr.json", "new language")

	if err := mgr.Restore(meta.ID); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(fr)
	if err != nil || string(got) != "new language" {
		t.Errorf("restore must not touch files outside the archive: %q %v", got, err)
	}
}

func TestCreateRejectsEmptyFileList(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if _, err := mgr.Create(nil, ""); err == nil {
		t.Error("expected error for empty file list")
	}
}

func TestCreateRejectsFilesOutsideProject(t *testing.T) {
	projectDir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(projectDir)
	if _, err := mgr.Create([]string{outside}, ""); err == nil {
		t.Error("expected error for file outside the project directory")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	projectDir := t.TempDir()
	en := writeProjectFile(t, projectDir, "locales/en.json", "content")

	mgr := NewManager(projectDir)
	meta, err := mgr.Create([]string{en}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Verify(meta.ID); err != nil {
		t.Fatalf("fresh backup failed verification: %v", err)
	}

	if err := os.WriteFile(meta.ArchivePath, []byte("not a tarball"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Verify(meta.ID); err == nil {
		t.Error("expected verification failure after tampering")
	}
	if err := mgr.Restore(meta.ID); err == nil {
		t.Error("restore must refuse a tampered archive")
	}
}

func TestUnknownBackupID(t *testing.T) {
	mgr := NewManager(t.TempDir())
	for name, fn := range map[string]func(string) error{
		"restore": mgr.Restore,
		"verify":  mgr.Verify,
		"delete":  mgr.Delete,
	} {
		if err := fn("no-such-id"); !errors.Is(err, ErrBackupNotFound) {
			t.Errorf("%s: expected ErrBackupNotFound, got %v", name, err)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	projectDir := t.TempDir()
	en := writeProjectFile(t, projectDir, "locales/en.json", "v1")

	mgr := NewManager(projectDir)
	first, err := mgr.Create([]string{en}, "first")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(en, []byte("v2"), 0o640); err != nil {
		t.Fatal(err)
	}
	second, err := mgr.Create([]string{en}, "second")
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	backdate(t, mgr, first.ID, now.Add(-2*time.Hour))
	backdate(t, mgr, second.ID, now.Add(-1*time.Hour))

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("List returned %d backups, want 2", len(backups))
	}
	if backups[0].ID != second.ID || backups[1].ID != first.ID {
		t.Errorf("wrong order: %s, %s", backups[0].ID, backups[1].ID)
	}
}

func TestDeleteRemovesArchiveAndIndexEntry(t *testing.T) {
	projectDir := t.TempDir()
	en := writeProjectFile(t, projectDir, "locales/en.json", "content")

	mgr := NewManager(projectDir)
	meta, err := mgr.Create([]string{en}, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.Delete(meta.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(meta.ArchivePath); !os.IsNotExist(err) {
		t.Error("archive file still exists after delete")
	}
	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Errorf("index still lists %d backups", len(backups))
	}
}

func TestPrune(t *testing.T) {
	setup := func(t *testing.T) (*Manager, []string) {
		projectDir := t.TempDir()
		en := writeProjectFile(t, projectDir, "locales/en.json", "v0")
		mgr := NewManager(projectDir)

		now := time.Now()
		ids := make([]string, 0, 3)
		for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, 1 * time.Hour} {
			if err := os.WriteFile(en, []byte{'v', byte('1' + i)}, 0o640); err != nil {
				t.Fatal(err)
			}
			meta, err := mgr.Create([]string{en}, "")
			if err != nil {
				t.Fatal(err)
			}
			backdate(t, mgr, meta.ID, now.Add(-age))
			ids = append(ids, meta.ID)
		}
		return mgr, ids
	}

	t.Run("max backups keeps newest", func(t *testing.T) {
		mgr, ids := setup(t)
		pruned, err := mgr.Prune(CleanupOptions{MaxBackups: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(pruned) != 2 {
			t.Fatalf("pruned %v, want the two oldest", pruned)
		}
		remaining, err := mgr.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) != 1 || remaining[0].ID != ids[2] {
			t.Errorf("remaining = %+v, want only the newest", remaining)
		}
	})

	t.Run("max age drops old backups", func(t *testing.T) {
		mgr, ids := setup(t)
		pruned, err := mgr.Prune(CleanupOptions{MaxAge: 24 * time.Hour})
		if err != nil {
			t.Fatal(err)
		}
		if len(pruned) != 2 {
			t.Fatalf("pruned %v, want the two backups older than a day", pruned)
		}
		remaining, err := mgr.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) != 1 || remaining[0].ID != ids[2] {
			t.Errorf("remaining = %+v", remaining)
		}
	})

	t.Run("keep at least one overrides age", func(t *testing.T) {
		mgr, ids := setup(t)
		if _, err := mgr.Prune(CleanupOptions{MaxAge: time.Minute, KeepAtLeastOne: true}); err != nil {
			t.Fatal(err)
		}
		remaining, err := mgr.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) != 1 || remaining[0].ID != ids[2] {
			t.Errorf("the newest backup must survive: %+v", remaining)
		}
	})

	t.Run("dry run deletes nothing", func(t *testing.T) {
		mgr, _ := setup(t)
		pruned, err := mgr.Prune(CleanupOptions{MaxBackups: 1, DryRun: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(pruned) != 2 {
			t.Fatalf("dry run should report 2 candidates, got %v", pruned)
		}
		remaining, err := mgr.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) != 3 {
			t.Errorf("dry run must not delete: %d backups remain", len(remaining))
		}
	})
}
