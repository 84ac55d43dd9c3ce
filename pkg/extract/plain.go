package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns the content as UTF-8 text. Invalid byte sequences
// are dropped rather than failing, so slightly mangled text files still
// produce searchable content.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	var sb strings.Builder
	sb.Grow(len(content))
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		content = content[size:]
	}
	return sb.String(), nil
}
