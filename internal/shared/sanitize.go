package shared

import "strings"

// Invisible and bidirectional Unicode control characters that must never
// reach a query string. Copy-pasted titles from rich-text sources routinely
// carry these.
var invisibleRunes = map[rune]struct{}{
	'\u200B': {}, // zero width space
	'\u200C': {}, // zero width non-joiner
	'\u200D': {}, // zero width joiner
	'\u200E': {}, // left-to-right mark
	'\u200F': {}, // right-to-left mark
	'\u202A': {}, // left-to-right embedding
	'\u202B': {}, // right-to-left embedding
	'\u202C': {}, // pop directional formatting
	'\u202D': {}, // left-to-right override
	'\u202E': {}, // right-to-left override
	'\u2060': {}, // word joiner
	'\u2066': {}, // left-to-right isolate
	'\u2067': {}, // right-to-left isolate
	'\u2068': {}, // first strong isolate
	'\u2069': {}, // pop directional isolate
	'\uFEFF': {}, // byte order mark
}

// StripInvisible removes bidirectional and zero-width Unicode control
// characters from s, leaving all other runes untouched.
func StripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if _, ok := invisibleRunes[r]; ok {
			return -1
		}
		return r
	}, s)
}
