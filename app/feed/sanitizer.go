package feed

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const SynopsisMaxLength = 160

var (
	citationPattern    = regexp.MustCompile(`\[\d+\]`)
	parentheticPattern = regexp.MustCompile(`\(.*?\)`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Sanitizer shortens free-text synopses into a clean display string.
type Sanitizer struct {
	maxLength int
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{maxLength: SynopsisMaxLength}
}

func NewSanitizerWithLimit(maxLength int) *Sanitizer {
	return &Sanitizer{maxLength: maxLength}
}

// Run trims the text, drops citation markers and parentheticals, keeps
// whole sentences while they fit the length limit (the first one always
// fits), collapses whitespace and terminates a non-empty result with ".".
func (s *Sanitizer) Run(text string) string {
	text = strings.TrimSpace(norm.NFC.String(text))
	text = citationPattern.ReplaceAllString(text, "")
	text = parentheticPattern.ReplaceAllString(text, "")

	var sentences []string
	count := 0
	for _, fragment := range strings.Split(text, ".") {
		length := utf8.RuneCountInString(fragment)
		if length == 0 {
			continue
		}
		if len(sentences) > 0 && count+length+1 > s.maxLength {
			break
		}
		sentences = append(sentences, fragment)
		count += length + 1
	}

	result := whitespacePattern.ReplaceAllString(strings.Join(sentences, "."), " ")
	if result == "" {
		return ""
	}
	return result + "."
}
