package domain

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// TextCleaner normalizes passages and queries before they are embedded.
type TextCleaner struct {
	policy *bluemonday.Policy
}

// NewTextCleaner returns a cleaner that drops all markup.
func NewTextCleaner() *TextCleaner {
	return &TextCleaner{policy: bluemonday.StrictPolicy()}
}

// Clean strips markup, replaces every character other than letters,
// digits, underscore, whitespace and basic punctuation with a space, then
// collapses whitespace.
func (c *TextCleaner) Clean(text string) string {
	stripped := html.UnescapeString(c.policy.Sanitize(text))
	stripped = disallowedChars.ReplaceAllString(stripped, " ")
	stripped = whitespaceRuns.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}

// CleanAll applies Clean to each text.
func (c *TextCleaner) CleanAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = c.Clean(t)
	}
	return out
}
