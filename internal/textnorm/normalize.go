// Package textnorm cleans extracted text before chunking: layout whitespace, boilerplate
// lines and wrap hyphenation. Normalize is pure and idempotent.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	extraNewlines   = regexp.MustCompile(`\n{3,}`)
	// word characters are Unicode-aware so Cyrillic wraps are rejoined too.
	hyphenBreak = regexp.MustCompile(`([\p{L}\p{N}_])-\n([\p{L}\p{N}_])`)
)

// BoilerplatePatterns are matched against each trimmed line; a match drops the line.
// Patterns are case-insensitive and kept narrow so real content survives.
var BoilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^страница\s+\d+\s+из\s+\d+`),
	regexp.MustCompile(`(?i)^page\s+\d+\s+of\s+\d+`),
	regexp.MustCompile(`(?i)(https?://|www\.)`),
	regexp.MustCompile(`(?i)улучшенн(ая|ой)\s+в[её]рстк`),
}

// Normalize applies the cleaning pass until the text stops changing.
// After the first pass every step only removes characters, so the loop
// terminates and Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := raw
	for {
		next := pass(s)
		if next == s {
			return next
		}
		s = next
	}
}

func pass(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\u00ad", "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = collapse(s)
	s = filterLines(s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")
	return collapse(s)
}

func collapse(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = extraNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// filterLines trims every line and drops boilerplate. Blank lines are kept as
// paragraph separators; runs of them are collapsed afterwards.
func filterLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t != "" && IsBoilerplate(t) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, "\n")
}

// IsBoilerplate reports whether a trimmed line matches one of BoilerplatePatterns.
func IsBoilerplate(line string) bool {
	for _, re := range BoilerplatePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
