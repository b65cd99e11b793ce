package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/klauern/locsync/internal/logging"
	"github.com/klauern/locsync/internal/progress"
	"github.com/klauern/locsync/internal/resource"
)

// FileFailure records a per-language write failure during regeneration.
type FileFailure struct {
	Lang string
	Err  error
}

// ApplyReport is the structured outcome of writing a merge result back to
// the resource files. It is a value, not an error: the caller inspects it to
// decide whether to restore the pre-operation backup.
type ApplyReport struct {
	// WrittenFiles lists the resource files that were rewritten.
	WrittenFiles []string

	// EntriesWritten counts entries materialized across all languages.
	EntriesWritten int

	// EntriesDeleted counts entries removed across all languages.
	EntriesDeleted int

	// Failures lists the languages whose files could not be written.
	Failures []FileFailure
}

// Success reports whether every file was written.
func (r *ApplyReport) Success() bool {
	return len(r.Failures) == 0
}

// Err aggregates the failures into a single error, or nil on success.
func (r *ApplyReport) Err() error {
	if r.Success() {
		return nil
	}
	parts := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Lang, f.Err)
	}
	return fmt.Errorf("failed to regenerate %d resource file(s): %s", len(r.Failures), strings.Join(parts, "; "))
}

// Regenerator applies merge results back to the local resource files,
// creating missing per-language files as needed.
type Regenerator struct {
	backend resource.Backend
}

// NewRegenerator creates a regenerator over the given resource backend.
func NewRegenerator(backend resource.Backend) *Regenerator {
	return &Regenerator{backend: backend}
}

// Apply rewrites every language file touched by the merge result. Existing
// entries not mentioned in the result are preserved. Languages are processed
// independently so the report reflects every failure, not just the first.
func (r *Regenerator) Apply(dir string, result *MergeResult) *ApplyReport {
	report := &ApplyReport{}

	writesByLang := make(map[string][]resource.Pair)
	for _, e := range result.ToWrite {
		writesByLang[e.Lang] = append(writesByLang[e.Lang], resource.Pair{Key: e.Key, Value: e.Value})
	}
	deletesByLang := make(map[string]map[string]bool)
	for _, ref := range result.ToDelete {
		if deletesByLang[ref.Lang] == nil {
			deletesByLang[ref.Lang] = make(map[string]bool)
		}
		deletesByLang[ref.Lang][ref.Key] = true
	}

	langs := make(map[string]bool)
	for lang := range writesByLang {
		langs[lang] = true
	}
	for lang := range deletesByLang {
		langs[lang] = true
	}
	ordered := make([]string, 0, len(langs))
	for lang := range langs {
		ordered = append(ordered, lang)
	}
	sort.Strings(ordered)

	bar := progress.Simple(int64(len(ordered)), "Writing resource files")
	defer func() {
		_ = bar.Finish()
	}()

	for _, lang := range ordered {
		written, deleted, err := r.applyLanguage(dir, lang, writesByLang[lang], deletesByLang[lang])
		_ = bar.Add(1)
		if err != nil {
			report.Failures = append(report.Failures, FileFailure{Lang: lang, Err: err})
			logging.Error("failed to regenerate resource file",
				logging.Lang(lang),
				logging.Err(err),
			)
			continue
		}
		report.WrittenFiles = append(report.WrittenFiles, r.backend.FilePath(dir, lang))
		report.EntriesWritten += written
		report.EntriesDeleted += deleted
	}

	return report
}

// applyLanguage merges the pending writes and deletions into the existing
// pairs for one language and rewrites its file.
func (r *Regenerator) applyLanguage(dir, lang string, writes []resource.Pair, deletes map[string]bool) (written, deleted int, err error) {
	existing, readErr := r.backend.Read(dir, lang)
	if readErr != nil {
		// A missing file is a new language; anything else is a real failure.
		// Rewriting over an unreadable file would drop every key the merge
		// did not mention.
		if !errors.Is(readErr, fs.ErrNotExist) {
			return 0, 0, readErr
		}
		existing = nil
	}

	updates := make(map[string]string, len(writes))
	for _, w := range writes {
		updates[w.Key] = w.Value
	}

	var pairs []resource.Pair
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		if deletes[p.Key] {
			deleted++
			continue
		}
		if v, ok := updates[p.Key]; ok {
			pairs = append(pairs, resource.Pair{Key: p.Key, Value: v})
			written++
			delete(updates, p.Key)
			continue
		}
		pairs = append(pairs, p)
	}

	// New keys not present in the existing file, in sorted order.
	newKeys := make([]string, 0, len(updates))
	for key := range updates {
		newKeys = append(newKeys, key)
	}
	sort.Strings(newKeys)
	for _, key := range newKeys {
		pairs = append(pairs, resource.Pair{Key: key, Value: updates[key]})
		written++
	}

	if err := r.backend.Write(dir, lang, pairs); err != nil {
		return 0, 0, err
	}
	return written, deleted, nil
}
