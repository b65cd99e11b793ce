package sync

import (
	"fmt"

	"github.com/klauern/locsync/internal/hash"
	"github.com/klauern/locsync/internal/logging"
	"github.com/klauern/locsync/internal/model"
	"github.com/klauern/locsync/internal/resource"
)

// Extractor flattens per-language resource files into hashed entries for
// the merger. Duplicate keys within one file collapse to the first
// occurrence; full duplicate-occurrence fidelity is the resource backend's
// concern, not sync's.
type Extractor struct {
	backend resource.Backend
}

// NewExtractor creates an extractor over the given resource backend.
func NewExtractor(backend resource.Backend) *Extractor {
	return &Extractor{backend: backend}
}

// Extract reads every discovered language file and returns the flattened,
// hashed entries along with the list of languages found.
func (e *Extractor) Extract(dir string) ([]model.Entry, []string, error) {
	langs, err := e.backend.DiscoverLanguages(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover languages: %w", err)
	}

	var entries []model.Entry
	for _, lang := range langs {
		pairs, err := e.backend.Read(dir, lang)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s resources: %w", lang, err)
		}

		seen := make(map[string]bool, len(pairs))
		for _, p := range pairs {
			if seen[p.Key] {
				logging.Warn("duplicate key in resource file, first occurrence wins",
					logging.Entry(p.Key),
					logging.Lang(lang),
				)
				continue
			}
			seen[p.Key] = true
			entries = append(entries, model.Entry{
				Key:   p.Key,
				Lang:  lang,
				Value: p.Value,
				Hash:  hash.Sum(p.Value),
			})
		}
	}

	logging.Debug("extracted local entries",
		logging.Path(dir),
		logging.Count(len(entries)),
	)
	return entries, langs, nil
}

// IndexEntries maps entries by (key, lang) for resolution application.
func IndexEntries(entries []model.Entry) map[EntryRef]model.Entry {
	return indexLocal(entries)
}

// ConfigProperties hashes a flat path-to-value map into the property form
// the config merger consumes.
func ConfigProperties(values map[string]string) map[string]model.ConfigProperty {
	props := make(map[string]model.ConfigProperty, len(values))
	for path, value := range values {
		props[path] = model.ConfigProperty{
			Path:  path,
			Value: value,
			Hash:  hash.Sum(value),
		}
	}
	return props
}
