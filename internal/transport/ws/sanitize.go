package ws

import "strings"

// stripTags removes anything that looks like an HTML tag from a display
// name before it is validated. Unterminated tags are dropped entirely.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
