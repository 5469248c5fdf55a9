package text

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize collapses every whitespace run into a single space and trims the ends.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// TruncateWords keeps the first n words of s. Separators between the kept
// words are preserved so that line structure survives truncation; trailing
// whitespace is dropped. n <= 0 yields the empty string.
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				if count == n {
					return strings.TrimRightFunc(s[:i], unicode.IsSpace)
				}
			}
			continue
		}
		if !inWord {
			inWord = true
			count++
		}
	}
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// Join normalizes each part, drops empty ones, and joins the rest with a space.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Normalize(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
