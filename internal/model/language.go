package model

import (
	"fmt"

	"golang.org/x/text/language"
)

// CanonicalLang validates a locale identifier and returns its canonical
// BCP 47 form (e.g. "pt-br" becomes "pt-BR"). Resource file names keep the
// code as discovered on disk; the canonical form is used for comparisons
// and display.
func CanonicalLang(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// IsValidLang reports whether code parses as a BCP 47 language tag.
func IsValidLang(code string) bool {
	_, err := language.Parse(code)
	return err == nil
}
