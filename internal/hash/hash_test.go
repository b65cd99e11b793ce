package hash

import (
	"strings"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum("Save changes?")
	b := Sum("Save changes?")
	if a != b {
		t.Errorf("same value produced different hashes: %s vs %s", a, b)
	}
}

func TestSumDistinguishesValues(t *testing.T) {
	if Sum("Save") == Sum("Cancel") {
		t.Error("different values produced the same hash")
	}
}

func TestSumFormat(t *testing.T) {
	h := Sum("hello")
	if len(h) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h))
	}
	if h != strings.ToLower(h) {
		t.Errorf("expected lowercase hex, got %s", h)
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("unexpected character %q in hash %s", c, h)
		}
	}
}

func TestSumNormalizesLineEndings(t *testing.T) {
	crlf := Sum("line one\r\nline two")
	lf := Sum("line one\nline two")
	if crlf != lf {
		t.Error("CRLF and LF variants should hash identically")
	}
}

func TestSumNormalizesUnicode(t *testing.T) {
	// U+00E9 (precomposed) vs U+0065 U+0301 (combining acute).
	composed := Sum("café")
	decomposed := Sum("café")
	if composed != decomposed {
		t.Error("NFC-equivalent strings should hash identically")
	}
}

func TestSumEmptyValue(t *testing.T) {
	h := Sum("")
	if h == "" {
		t.Error("empty value should still produce a hash")
	}
	if h == Sum(" ") {
		t.Error("empty value and single space should differ")
	}
}
