package orchestrator

import (
	"strings"
	"unicode"
)

const maxQueryLength = 500

// Sanitize strips characters that could break prompt templating from a
// free-text query and collapses runs of whitespace. This is cosmetic
// cleanup for prompt hygiene, not a security boundary.
func Sanitize(query string) string {
	var sb strings.Builder
	sb.Grow(len(query))

	for _, r := range query {
		switch {
		case r == '`' || r == '{' || r == '}' || r == '<' || r == '>':
			continue
		case unicode.IsControl(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(sb.String()), " ")
	if len(cleaned) > maxQueryLength {
		cleaned = cleaned[:maxQueryLength]
	}
	return cleaned
}
