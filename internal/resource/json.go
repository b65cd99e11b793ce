package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	resourceFilePerm = 0o644
	resourceDirPerm  = 0o750
)

// jsonBackend handles both flat JSON ({"Greeting": "Hello"}) and nested
// i18next JSON ({"home": {"title": "Hi"}}). Reading always flattens nested
// objects to dotted paths; nested controls whether Write re-nests them.
type jsonBackend struct {
	nested bool
}

func (b *jsonBackend) Format() Format {
	if b.nested {
		return FormatI18Next
	}
	return FormatJSON
}

func (b *jsonBackend) FilePath(dir, lang string) string {
	return filepath.Join(dir, lang+".json")
}

func (b *jsonBackend) DiscoverLanguages(dir string) ([]string, error) {
	return discoverByExtension(dir, ".json")
}

func (b *jsonBackend) Read(dir, lang string) ([]Pair, error) {
	path := b.FilePath(dir, lang)
	// #nosec G304 - path is derived from the configured resources directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource file %q: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("resource file %q is not a JSON object", path)
	}

	var pairs []Pair
	if err := parseJSONObject(dec, "", &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return pairs, nil
}

func (b *jsonBackend) Write(dir, lang string, pairs []Pair) error {
	if err := os.MkdirAll(dir, resourceDirPerm); err != nil {
		return fmt.Errorf("failed to create resources directory: %w", err)
	}

	var data []byte
	var err error
	if b.nested {
		data, err = json.MarshalIndent(nestPairs(pairs), "", "  ")
	} else {
		flat := make(map[string]string, len(pairs))
		for _, p := range pairs {
			if _, exists := flat[p.Key]; !exists {
				flat[p.Key] = p.Value
			}
		}
		data, err = json.MarshalIndent(flat, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal resource file: %w", err)
	}
	data = append(data, '\n')

	path := b.FilePath(dir, lang)
	if err := os.WriteFile(path, data, resourceFilePerm); err != nil {
		return fmt.Errorf("failed to write resource file %q: %w", path, err)
	}
	return nil
}

// parseJSONObject walks an object with the decoder positioned just past its
// opening brace, appending one pair per scalar value in file order. Nested
// objects extend the key with a dot; duplicate keys are kept.
func parseJSONObject(dec *json.Decoder, prefix string, pairs *[]Pair) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v where key expected", tok)
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			if v != '{' {
				return fmt.Errorf("key %q: arrays are not supported in resource files", path)
			}
			if err := parseJSONObject(dec, path, pairs); err != nil {
				return err
			}
		case string:
			*pairs = append(*pairs, Pair{Key: path, Value: v})
		case nil:
			*pairs = append(*pairs, Pair{Key: path, Value: ""})
		default:
			// Numbers and booleans are rare but legal; keep their literal text.
			*pairs = append(*pairs, Pair{Key: path, Value: fmt.Sprint(v)})
		}
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// nestPairs rebuilds the nested object form from dotted key paths. The first
// occurrence of a key wins; a scalar/object collision keeps whichever
// arrived first.
func nestPairs(pairs []Pair) map[string]any {
	root := make(map[string]any)
	for _, p := range pairs {
		parts := strings.Split(p.Key, ".")
		node := root
		collided := false
		for _, part := range parts[:len(parts)-1] {
			child, exists := node[part]
			if !exists {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			next, ok := child.(map[string]any)
			if !ok {
				collided = true
				break
			}
			node = next
		}
		if collided {
			continue
		}
		leaf := parts[len(parts)-1]
		if _, exists := node[leaf]; !exists {
			node[leaf] = p.Value
		}
	}
	return root
}

// discoverByExtension lists languages with a resource file of the given
// extension, skipping files whose base name is not a valid language tag.
func discoverByExtension(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read resources directory %q: %w", dir, err)
	}

	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if lang := langFromFileName(e.Name(), ext); lang != "" {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs, nil
}
