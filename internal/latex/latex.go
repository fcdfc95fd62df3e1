// Package latex post-processes recognized formula strings.
package latex

import (
	"regexp"
	"strings"
	"unicode"
)

// textCommand matches font and text commands whose braced argument is
// collapsed by removing every space, e.g. "\mathrm {d x}" becomes "\mathrm{dx}".
var textCommand = regexp.MustCompile(`\\(operatorname|mathrm|text|mathbf)\s?\*? \{.*?\}`)

// RemoveWhitespace drops spaces that carry no meaning in LaTeX source. A run
// of whitespace is removed unless it separates two ASCII letters (which would
// merge command names) or follows a backslash (an explicit "\ " space).
func RemoveWhitespace(s string) string {
	s = textCommand.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
	for {
		next := collapseOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func collapseOnce(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsSpace(r) || i == 0 {
			b.WriteRune(r)
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == len(runes) {
			for k := i; k < j; k++ {
				b.WriteRune(runes[k])
			}
			break
		}
		prev, next := runes[i-1], runes[j]
		switch {
		case prev == '\\':
			// escaped space: keep it, drop the rest of the run
			b.WriteRune(r)
		case isLetter(prev) && isLetter(next):
			for k := i; k < j; k++ {
				b.WriteRune(runes[k])
			}
		}
		i = j - 1
	}
	return b.String()
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
