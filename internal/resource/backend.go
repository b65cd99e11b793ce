// Package resource reads and writes per-language localization resource
// files. All format-specific logic lives here, behind the Backend interface;
// the sync engine only sees flat (key, value) pairs.
package resource

import (
	"fmt"
	"os"
	"strings"

	"github.com/klauern/locsync/internal/model"
)

// Pair is one raw key/value occurrence in a resource file, in file order.
// Duplicate keys are returned as-is; deduplication is the extractor's job.
type Pair struct {
	Key   string
	Value string
}

// Format identifies a resource file format.
type Format string

const (
	// FormatJSON is a flat JSON object per language (en.json).
	FormatJSON Format = "json"

	// FormatI18Next is nested i18next-style JSON; nested objects are
	// flattened to dotted key paths.
	FormatI18Next Format = "i18next"

	// FormatResx is .NET resource XML (strings.en.resx).
	FormatResx Format = "resx"

	// FormatTOML is a TOML table per language (en.toml).
	FormatTOML Format = "toml"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatI18Next, FormatResx, FormatTOML:
		return true
	default:
		return false
	}
}

// AllFormats returns all supported resource formats.
func AllFormats() []Format {
	return []Format{FormatJSON, FormatI18Next, FormatResx, FormatTOML}
}

// Backend provides format-specific access to per-language resource files
// inside one resources directory.
type Backend interface {
	// Format returns the format this backend handles.
	Format() Format

	// DiscoverLanguages returns the language codes with a resource file in
	// dir, in sorted order.
	DiscoverLanguages(dir string) ([]string, error)

	// Read parses the resource file for lang into raw pairs, preserving
	// file order and duplicate occurrences.
	Read(dir, lang string) ([]Pair, error)

	// Write replaces the resource file for lang with the given pairs,
	// creating the file if it does not exist.
	Write(dir, lang string, pairs []Pair) error

	// FilePath returns the path of the resource file for lang.
	FilePath(dir, lang string) string
}

// New returns the backend for the given format.
func New(format Format) (Backend, error) {
	switch format {
	case FormatJSON:
		return &jsonBackend{nested: false}, nil
	case FormatI18Next:
		return &jsonBackend{nested: true}, nil
	case FormatResx:
		return &resxBackend{}, nil
	case FormatTOML:
		return &tomlBackend{}, nil
	default:
		return nil, fmt.Errorf("unsupported resource format %q", format)
	}
}

// Detect inspects dir and picks a backend based on the resource files
// present. JSON wins ties since it is the most common layout; nested JSON is
// detected per-file at read time, so plain FormatJSON is returned for it.
func Detect(dir string) (Backend, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resources directory %q: %w", dir, err)
	}

	counts := map[Format]int{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".resx"):
			counts[FormatResx]++
		case strings.HasSuffix(name, ".toml"):
			counts[FormatTOML]++
		case strings.HasSuffix(name, ".json"):
			counts[FormatJSON]++
		}
	}

	best := FormatJSON
	bestCount := counts[FormatJSON]
	for _, f := range []Format{FormatResx, FormatTOML} {
		if counts[f] > bestCount {
			best, bestCount = f, counts[f]
		}
	}
	if bestCount == 0 {
		return nil, fmt.Errorf("no resource files found in %q", dir)
	}
	return New(best)
}

// langFromFileName extracts and validates a language code from a file name
// like "en.json" or "pt-BR.toml". Returns "" when the name is not a
// per-language resource file (e.g. manifest.json).
func langFromFileName(name, ext string) string {
	base := strings.TrimSuffix(name, ext)
	if base == name || base == "" {
		return ""
	}
	if !model.IsValidLang(base) {
		return ""
	}
	return base
}
