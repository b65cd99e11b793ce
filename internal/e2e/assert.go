package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// RequireSuccess fails the test when the command errored, showing its output.
func RequireSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("command failed: %v\noutput:\n%s", r.Err, r.Stdout)
	}
}

// RequireFailure fails the test when the command unexpectedly succeeded.
func RequireFailure(t *testing.T, r *Result) {
	t.Helper()
	if r.Success() {
		t.Fatalf("command should have failed\noutput:\n%s", r.Stdout)
	}
}

// RequireContains fails the test when the output lacks the substring.
func RequireContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Errorf("output missing %q:\n%s", substr, r.Stdout)
	}
}

// WriteResource writes a flat JSON resource file for lang into the project.
func (h *Harness) WriteResource(lang string, values map[string]string) {
	h.t.Helper()

	dir := filepath.Join(h.projectDir, "locales")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		h.t.Fatal(err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, lang+".json"), append(data, '\n'), 0o640); err != nil {
		h.t.Fatal(err)
	}
}

// ReadResource reads the flat JSON resource file for lang back as a map.
func (h *Harness) ReadResource(lang string) map[string]string {
	h.t.Helper()

	data, err := os.ReadFile(filepath.Join(h.projectDir, "locales", lang+".json"))
	if err != nil {
		h.t.Fatalf("failed to read %s resource file: %v", lang, err)
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		h.t.Fatalf("failed to parse %s resource file: %v", lang, err)
	}
	return values
}

// ResourceValue reads one key from a language file, failing if absent.
func (h *Harness) ResourceValue(lang, key string) string {
	h.t.Helper()
	values := h.ReadResource(lang)
	v, ok := values[key]
	if !ok {
		h.t.Fatalf("key %q missing from %s resource file: %v", key, lang, values)
	}
	return v
}
