package resource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// tomlBackend handles one TOML table per language (en.toml). Nested tables
// flatten to dotted key paths on read; writes keep keys flat.
type tomlBackend struct{}

func (b *tomlBackend) Format() Format { return FormatTOML }

func (b *tomlBackend) FilePath(dir, lang string) string {
	return filepath.Join(dir, lang+".toml")
}

func (b *tomlBackend) DiscoverLanguages(dir string) ([]string, error) {
	return discoverByExtension(dir, ".toml")
}

func (b *tomlBackend) Read(dir, lang string) ([]Pair, error) {
	path := b.FilePath(dir, lang)
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	var pairs []Pair
	flattenTOML("", raw, &pairs)
	// TOML forbids duplicate keys, so sorted order is deterministic and
	// loses nothing.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func (b *tomlBackend) Write(dir, lang string, pairs []Pair) error {
	if err := os.MkdirAll(dir, resourceDirPerm); err != nil {
		return fmt.Errorf("failed to create resources directory: %w", err)
	}

	flat := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if _, exists := flat[p.Key]; !exists {
			flat[p.Key] = p.Value
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(flat); err != nil {
		return fmt.Errorf("failed to marshal resource file: %w", err)
	}

	path := b.FilePath(dir, lang)
	if err := os.WriteFile(path, buf.Bytes(), resourceFilePerm); err != nil {
		return fmt.Errorf("failed to write resource file %q: %w", path, err)
	}
	return nil
}

func flattenTOML(prefix string, node map[string]any, pairs *[]Pair) {
	for key, val := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := val.(type) {
		case map[string]any:
			flattenTOML(path, v, pairs)
		case string:
			*pairs = append(*pairs, Pair{Key: path, Value: v})
		default:
			*pairs = append(*pairs, Pair{Key: path, Value: fmt.Sprint(v)})
		}
	}
}
