package resource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	for _, f := range AllFormats() {
		b, err := New(f)
		if err != nil {
			t.Errorf("New(%q) failed: %v", f, err)
			continue
		}
		if b.Format() != f {
			t.Errorf("New(%q).Format() = %q", f, b.Format())
		}
	}
	if _, err := New("properties"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatIsValid(t *testing.T) {
	for _, f := range AllFormats() {
		if !f.IsValid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if Format("yaml").IsValid() {
		t.Error("yaml should not be valid")
	}
}

func TestJSONReadPreservesOrderAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "en.json", `{
  "zebra": "last alphabetically",
  "apple": "first alphabetically",
  "zebra": "duplicate occurrence"
}`)

	b, _ := New(FormatJSON)
	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}

	want := []Pair{
		{Key: "zebra", Value: "last alphabetically"},
		{Key: "apple", Value: "first alphabetically"},
		{Key: "zebra", Value: "duplicate occurrence"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestJSONWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, _ := New(FormatJSON)

	in := []Pair{
		{Key: "app.title", Value: "Title"},
		{Key: "app.subtitle", Value: ""},
	}
	if err := b.Write(dir, "en", in); err != nil {
		t.Fatal(err)
	}

	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, p := range pairs {
		got[p.Key] = p.Value
	}
	if got["app.title"] != "Title" || got["app.subtitle"] != "" || len(got) != 2 {
		t.Errorf("round trip = %v", got)
	}

	// Flat backend must not nest dotted keys.
	data, err := os.ReadFile(b.FilePath(dir, "en"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["app.title"]; !ok {
		t.Errorf("flat file should keep dotted keys at the top level: %v", raw)
	}
}

func TestJSONWriteCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locales", "deep")
	b, _ := New(FormatJSON)
	if err := b.Write(dir, "en", []Pair{{Key: "k", Value: "v"}}); err != nil {
		t.Fatalf("write into missing directory failed: %v", err)
	}
}

func TestJSONReadRejectsArraysAndNonObjects(t *testing.T) {
	dir := t.TempDir()
	b, _ := New(FormatJSON)

	writeFile(t, dir, "en.json", `["not", "an", "object"]`)
	if _, err := b.Read(dir, "en"); err == nil {
		t.Error("expected error for top-level array")
	}

	writeFile(t, dir, "de.json", `{"items": ["a", "b"]}`)
	if _, err := b.Read(dir, "de"); err == nil {
		t.Error("expected error for array value")
	}
}

func TestI18NextFlattensAndRenests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "en.json", `{
  "home": {
    "title": "Welcome",
    "nav": {"about": "About us"}
  },
  "plain": "top level"
}`)

	b, _ := New(FormatI18Next)
	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	want := []Pair{
		{Key: "home.title", Value: "Welcome"},
		{Key: "home.nav.about", Value: "About us"},
		{Key: "plain", Value: "top level"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("flattened pairs = %v, want %v", pairs, want)
	}

	// Writing back re-nests dotted paths.
	out := filepath.Join(t.TempDir())
	if err := b.Write(out, "en", pairs); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(b.FilePath(out, "en"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	home, ok := raw["home"].(map[string]any)
	if !ok {
		t.Fatalf("home should be a nested object: %v", raw)
	}
	if home["title"] != "Welcome" {
		t.Errorf("home.title = %v", home["title"])
	}
	nav, ok := home["nav"].(map[string]any)
	if !ok || nav["about"] != "About us" {
		t.Errorf("home.nav = %v", home["nav"])
	}
}

func TestResxRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, _ := New(FormatResx)

	in := []Pair{
		{Key: "Greeting", Value: "Hello <world> & friends"},
		{Key: "Farewell", Value: "Bye"},
	}
	if err := b.Write(dir, "en", in); err != nil {
		t.Fatal(err)
	}

	if got := b.FilePath(dir, "en"); filepath.Base(got) != "strings.en.resx" {
		t.Errorf("FilePath = %q", got)
	}

	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pairs, in) {
		t.Errorf("round trip = %v, want %v", pairs, in)
	}
}

func TestResxReadSkipsUnnamedData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "strings.en.resx", `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <data name="Greeting"><value>Hello</value></data>
  <data><value>nameless</value></data>
</root>
`)

	b, _ := New(FormatResx)
	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].Key != "Greeting" {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "en.toml", `plain = "top level"

[menu]
title = "Menu"

[menu.file]
save = "Save"
`)

	b, _ := New(FormatTOML)
	pairs, err := b.Read(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	// TOML reads come back sorted by key.
	want := []Pair{
		{Key: "menu.file.save", Value: "Save"},
		{Key: "menu.title", Value: "Menu"},
		{Key: "plain", Value: "top level"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}

	out := t.TempDir()
	if err := b.Write(out, "en", pairs); err != nil {
		t.Fatal(err)
	}
	back, err := b.Read(out, "en")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, want) {
		t.Errorf("second round trip = %v, want %v", back, want)
	}
}

func TestDiscoverLanguages(t *testing.T) {
	tests := map[string]struct {
		format Format
		files  map[string]string
		want   []string
	}{
		"json skips invalid names": {
			format: FormatJSON,
			files: map[string]string{
				"en.json":       "{}",
				"pt-BR.json":    "{}",
				"manifest.json": "{}",
				"notes.txt":     "",
			},
			want: []string{"en", "pt-BR"},
		},
		"resx requires the strings prefix": {
			format: FormatResx,
			files: map[string]string{
				"strings.en.resx": "<root/>",
				"strings.de.resx": "<root/>",
				"other.fr.resx":   "<root/>",
			},
			want: []string{"de", "en"},
		},
		"toml": {
			format: FormatTOML,
			files:  map[string]string{"en.toml": "", "zh-Hant.toml": ""},
			want:   []string{"en", "zh-Hant"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for f, content := range tc.files {
				writeFile(t, dir, f, content)
			}
			b, err := New(tc.format)
			if err != nil {
				t.Fatal(err)
			}
			langs, err := b.DiscoverLanguages(dir)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(langs, tc.want) {
				t.Errorf("langs = %v, want %v", langs, tc.want)
			}
		})
	}
}

func TestDiscoverLanguagesMissingDir(t *testing.T) {
	b, _ := New(FormatJSON)
	langs, err := b.DiscoverLanguages(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing directory should not be an error: %v", err)
	}
	if len(langs) != 0 {
		t.Errorf("langs = %v", langs)
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		files   map[string]string
		want    Format
		wantErr bool
	}{
		"json majority": {
			files: map[string]string{"en.json": "{}", "de.json": "{}", "old.toml": ""},
			want:  FormatJSON,
		},
		"resx majority": {
			files: map[string]string{"strings.en.resx": "", "strings.de.resx": "", "en.json": "{}"},
			want:  FormatResx,
		},
		"toml majority": {
			files: map[string]string{"en.toml": "", "de.toml": ""},
			want:  FormatTOML,
		},
		"json wins ties": {
			files: map[string]string{"en.json": "{}", "en.toml": ""},
			want:  FormatJSON,
		},
		"empty directory": {
			files:   map[string]string{},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for f, content := range tc.files {
				writeFile(t, dir, f, content)
			}
			b, err := Detect(dir)
			if tc.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if b.Format() != tc.want {
				t.Errorf("detected %q, want %q", b.Format(), tc.want)
			}
		})
	}
}
