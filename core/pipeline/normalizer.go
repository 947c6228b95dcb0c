package pipeline

import (
	"regexp"
	"strings"
)

var (
	lineEndings          = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	excessNewlines       = regexp.MustCompile(`\n{3,}`)
	horizontalWhitespace = regexp.MustCompile(`[ \t]+`)
)

// Normalize canonicalizes raw text before chunking: strips null bytes,
// converts all line endings to \n, collapses 3+ newlines to exactly 2
// (paragraph breaks survive, excess blank lines don't), collapses runs of
// spaces and tabs to one space and trims the result.
//
// It is total and deterministic, and performs no language-specific
// transformation (no case folding, no diacritic stripping) so downstream
// matching stays language-agnostic.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = lineEndings.Replace(text)
	text = horizontalWhitespace.ReplaceAllString(text, " ")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
