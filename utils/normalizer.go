package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes combining marks, so "DESCRIPCIÓN" becomes "DESCRIPCION".
func FoldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeLine returns the matching form of a line: accents folded, every
// character outside [0-9A-Za-z] and whitespace replaced by a space,
// whitespace collapsed, trimmed and upper-cased.
func NormalizeLine(line string) string {
	folded := FoldAccents(line)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(b.String()), " "))
}

// SplitLines splits page text into lines, dropping carriage returns.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// Preview returns up to n non-empty trimmed lines of a document's text.
func Preview(pages []string, n int) []string {
	var out []string
	for _, page := range pages {
		for _, line := range SplitLines(page) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			out = append(out, line)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}
