package resource

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resxFilePrefix is the shared base name of per-language .resx files
// (strings.en.resx, strings.pt-BR.resx).
const resxFilePrefix = "strings."

// resxBackend handles .NET resource XML files.
type resxBackend struct{}

type resxRoot struct {
	XMLName xml.Name   `xml:"root"`
	Data    []resxData `xml:"data"`
}

type resxData struct {
	Name  string `xml:"name,attr"`
	Space string `xml:"space,attr,omitempty"`
	Value string `xml:"value"`
}

func (b *resxBackend) Format() Format { return FormatResx }

func (b *resxBackend) FilePath(dir, lang string) string {
	return filepath.Join(dir, resxFilePrefix+lang+".resx")
}

func (b *resxBackend) DiscoverLanguages(dir string) ([]string, error) {
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
		name := e.Name()
		if !strings.HasPrefix(name, resxFilePrefix) {
			continue
		}
		if lang := langFromFileName(strings.TrimPrefix(name, resxFilePrefix), ".resx"); lang != "" {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs, nil
}

func (b *resxBackend) Read(dir, lang string) ([]Pair, error) {
	path := b.FilePath(dir, lang)
	// #nosec G304 - path is derived from the configured resources directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource file %q: %w", path, err)
	}

	var root resxRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	pairs := make([]Pair, 0, len(root.Data))
	for _, d := range root.Data {
		if d.Name == "" {
			continue
		}
		pairs = append(pairs, Pair{Key: d.Name, Value: d.Value})
	}
	return pairs, nil
}

func (b *resxBackend) Write(dir, lang string, pairs []Pair) error {
	if err := os.MkdirAll(dir, resourceDirPerm); err != nil {
		return fmt.Errorf("failed to create resources directory: %w", err)
	}

	root := resxRoot{Data: make([]resxData, 0, len(pairs))}
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		root.Data = append(root.Data, resxData{Name: p.Key, Space: "preserve", Value: p.Value})
	}

	data, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal resource file: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	path := b.FilePath(dir, lang)
	if err := os.WriteFile(path, data, resourceFilePerm); err != nil {
		return fmt.Errorf("failed to write resource file %q: %w", path, err)
	}
	return nil
}
