package pipelines

import "strings"

// CleanupRule is one artifact substitution applied after decoding.
type CleanupRule struct {
	From, To string
}

// DefaultCleanupRules collapse the space the forward pipeline inserts before
// punctuation and contractions back to natural spacing. A vocabulary with
// different decode artifacts swaps in its own table.
var DefaultCleanupRules = []CleanupRule{
	{" .", "."},
	{" ?", "?"},
	{" !", "!"},
	{" ,", ","},
	{" ' ", "'"},
	{" n't", "n't"},
	{" 'm", "'m"},
	{" 's", "'s"},
	{" 've", "'ve"},
	{" 're", "'re"},
}

// Cleanup applies an ordered rule table. The replacer is built once at
// construction and shared read-only by all invocations.
type Cleanup struct {
	replacer *strings.Replacer
}

func NewCleanup(rules []CleanupRule) *Cleanup {
	oldnew := make([]string, 0, len(rules)*2)
	for _, rule := range rules {
		oldnew = append(oldnew, rule.From, rule.To)
	}
	return &Cleanup{replacer: strings.NewReplacer(oldnew...)}
}

func (c *Cleanup) Apply(s string) string {
	if c == nil {
		return s
	}
	return c.replacer.Replace(s)
}
