package schema

import (
	"strings"
	"unicode"
)

// MaxTabHeaderRunes caps header length.
const MaxTabHeaderRunes = 64

// NormalizeTabHeader trims a header, collapses control characters to spaces,
// and caps its length. Blank headers are rejected.
func NormalizeTabHeader(header string) (TabHeader, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", ErrInvalidRequest
	}
	var b strings.Builder
	count := 0
	for _, r := range trimmed {
		if count == MaxTabHeaderRunes {
			break
		}
		if unicode.IsControl(r) {
			r = ' '
		}
		b.WriteRune(r)
		count++
	}
	return TabHeader(b.String()), nil
}

// ValidateWindowID ensures a window id is present and free of whitespace.
func ValidateWindowID(id WindowID) error {
	raw := string(id)
	if raw == "" || strings.TrimSpace(raw) != raw {
		return ErrInvalidRequest
	}
	return nil
}
