package backup

import (
	"fmt"
	"sort"
	"time"

	"github.com/klauern/locsync/internal/logging"
)

// CleanupOptions configures backup retention.
type CleanupOptions struct {
	// MaxBackups limits the number of backups to keep (0 = unlimited).
	MaxBackups int

	// MaxAge is the maximum age of backups to keep (0 = unlimited).
	MaxAge time.Duration

	// KeepAtLeastOne ensures the newest backup survives even when MaxAge
	// would remove everything.
	KeepAtLeastOne bool

	// DryRun previews what would be deleted without actually deleting.
	DryRun bool
}

// DefaultCleanupOptions returns sensible retention defaults.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxBackups:     10,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Prune removes old backups, oldest first, and returns the IDs deleted.
func (m *Manager) Prune(opts CleanupOptions) ([]string, error) {
	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := make([]Metadata, 0, len(index.Backups))
	for _, b := range index.Backups {
		backups = append(backups, b)
	}
	// Newest first; deletions come off the tail.
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })

	cutoff := time.Time{}
	if opts.MaxAge > 0 {
		cutoff = time.Now().Add(-opts.MaxAge)
	}

	var doomed []string
	for i, b := range backups {
		tooMany := opts.MaxBackups > 0 && i >= opts.MaxBackups
		tooOld := !cutoff.IsZero() && b.CreatedAt.Before(cutoff)
		if !tooMany && !tooOld {
			continue
		}
		if opts.KeepAtLeastOne && i == 0 {
			continue
		}
		doomed = append(doomed, b.ID)
	}

	if opts.DryRun {
		return doomed, nil
	}

	for _, id := range doomed {
		if err := m.Delete(id); err != nil {
			return nil, fmt.Errorf("failed to prune backup %q: %w", id, err)
		}
		logging.Debug("pruned backup", logging.Backup(id))
	}
	return doomed, nil
}
