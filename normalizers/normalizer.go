// Package normalizers implements the text-rewriting stages that run before
// encoding: unicode canonicalization, case folding, accent stripping,
// pattern splitting, and the byte-level remapping that turns every raw byte
// into a printable, mergeable symbol.
package normalizers

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the closed set of normalization steps. The legal set is fixed at
// design time, so a tagged variant carries the whole configuration.
type Kind int

const (
	NFC Kind = iota
	NFD
	Lowercase
	StripAccents
)

// Normalizer applies an ordered sequence of normalization steps. All steps
// are idempotent, so applying a Normalizer twice equals applying it once.
type Normalizer struct {
	steps []Kind
}

// NewNormalizer builds a normalizer running the given steps in order.
func NewNormalizer(steps ...Kind) *Normalizer {
	return &Normalizer{steps: steps}
}

// Empty reports whether the normalizer is a no-op.
func (n *Normalizer) Empty() bool {
	return n == nil || len(n.steps) == 0
}

// Apply normalizes a single span. Invalid UTF-8 bytes are replaced with the
// unicode replacement rune up front so every later stage sees valid text.
func (n *Normalizer) Apply(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	if n.Empty() {
		return s
	}
	for _, step := range n.steps {
		switch step {
		case NFC:
			s = norm.NFC.String(s)
		case NFD:
			s = norm.NFD.String(s)
		case Lowercase:
			s = strings.ToLower(s)
		case StripAccents:
			s = stripAccents(s)
		}
	}
	return s
}

// stripAccents removes combining marks after NFD decomposition. The result
// is recomposed so the overall pipeline stays NFC unless NFD was asked for
// explicitly later.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
