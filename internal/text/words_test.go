package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\n\tb   c \r\n"))
	assert.Equal(t, "", Normalize(" \n\t "))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount("one  two\nthree"))
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"Zero Budget", "a b c", 0, ""},
		{"Negative Budget", "a b c", -1, ""},
		{"Under Budget", "a b", 5, "a b"},
		{"Exact Budget", "a b c", 3, "a b c"},
		{"Over Budget", "a b c d", 2, "a b"},
		{"Keeps Line Breaks", "Source 1\nalpha beta\n\ngamma", 4, "Source 1\nalpha beta"},
		{"Leading Whitespace", "   a b c", 1, "   a"},
		{"Trailing Whitespace", "a b  \n", 5, "a b"},
		{"Unicode", "héllo wörld ñ", 2, "héllo wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			if tt.n > 0 {
				assert.LessOrEqual(t, WordCount(got), tt.n)
			}
		})
	}
}

func TestTruncateWords_LargeInput(t *testing.T) {
	in := strings.Repeat("word ", 5000)
	got := TruncateWords(in, 700)
	assert.Equal(t, 700, WordCount(got))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "Title para one para two", Join(" Title ", "", "para\none", "  ", "para two"))
	assert.Equal(t, "", Join())
}
