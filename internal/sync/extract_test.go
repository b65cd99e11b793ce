package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"testing"

	"github.com/klauern/locsync/internal/hash"
	"github.com/klauern/locsync/internal/resource"
)

// fakeBackend is an in-memory resource backend for sync-layer tests.
type fakeBackend struct {
	files     map[string][]resource.Pair // lang -> pairs
	readErr   map[string]error           // lang -> forced read failure
	writeErr  map[string]error           // lang -> forced write failure
	discovErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		files:    make(map[string][]resource.Pair),
		readErr:  make(map[string]error),
		writeErr: make(map[string]error),
	}
}

func (f *fakeBackend) Format() resource.Format { return resource.FormatJSON }

func (f *fakeBackend) DiscoverLanguages(string) ([]string, error) {
	if f.discovErr != nil {
		return nil, f.discovErr
	}
	langs := make([]string, 0, len(f.files))
	for lang := range f.files {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}

func (f *fakeBackend) Read(_ string, lang string) ([]resource.Pair, error) {
	if err := f.readErr[lang]; err != nil {
		return nil, err
	}
	pairs, ok := f.files[lang]
	if !ok {
		// Matches the real backends, which surface the os error.
		return nil, fmt.Errorf("no resource file for %s: %w", lang, fs.ErrNotExist)
	}
	out := make([]resource.Pair, len(pairs))
	copy(out, pairs)
	return out, nil
}

func (f *fakeBackend) Write(_ string, lang string, pairs []resource.Pair) error {
	if err := f.writeErr[lang]; err != nil {
		return err
	}
	stored := make([]resource.Pair, len(pairs))
	copy(stored, pairs)
	f.files[lang] = stored
	return nil
}

func (f *fakeBackend) FilePath(dir, lang string) string {
	return dir + "/" + lang + ".json"
}

func (f *fakeBackend) values(lang string) map[string]string {
	out := make(map[string]string)
	for _, p := range f.files[lang] {
		out[p.Key] = p.Value
	}
	return out
}

func TestExtract(t *testing.T) {
	backend := newFakeBackend()
	backend.files["en"] = []resource.Pair{
		{Key: "app.title", Value: "Title"},
		{Key: "app.save", Value: "Save"},
	}
	backend.files["de"] = []resource.Pair{
		{Key: "app.title", Value: "Titel"},
	}

	entries, langs, err := NewExtractor(backend).Extract("res")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(langs) != 2 {
		t.Errorf("langs = %v", langs)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Hash != hash.Sum(e.Value) {
			t.Errorf("entry (%s, %s) not hashed", e.Key, e.Lang)
		}
	}
}

func TestExtractDuplicateKeysFirstWins(t *testing.T) {
	backend := newFakeBackend()
	backend.files["en"] = []resource.Pair{
		{Key: "dup", Value: "first"},
		{Key: "dup", Value: "second"},
	}

	entries, _, err := NewExtractor(backend).Extract("res")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Value != "first" {
		t.Errorf("expected first occurrence to win, got %+v", entries)
	}
}

func TestExtractReadFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.files["en"] = []resource.Pair{{Key: "k", Value: "v"}}
	backend.readErr["en"] = errors.New("disk exploded")

	_, _, err := NewExtractor(backend).Extract("res")
	if err == nil {
		t.Error("read failures must surface")
	}
}

func TestConfigProperties(t *testing.T) {
	props := ConfigProperties(map[string]string{"project.name": "demo"})
	p, ok := props["project.name"]
	if !ok {
		t.Fatal("missing property")
	}
	if p.Value != "demo" || p.Hash != hash.Sum("demo") {
		t.Errorf("unexpected property %+v", p)
	}
}
