package util

import "strings"

// Normalize keeps ASCII letters and digits only, lowercased.
func Normalize(input string) string {
	var out strings.Builder
	out.Grow(len(input))
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			out.WriteByte(c + ('a' - 'A'))
		}
	}
	return out.String()
}

// TitleTokens splits a title on whitespace and normalizes every word.
// Words that normalize to nothing are skipped.
func TitleTokens(title string) map[string]struct{} {
	words := strings.Fields(title)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func StringPtr(v string) *string {
	return &v
}

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
