package normalizers

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// GPT2SplitPattern is the pre-segmentation pattern byte-level BPE and rank
// tables were trained with. It needs the lookahead in `\s+(?!\S)`, which is
// why splitting is built on regexp2 and not the standard library.
const GPT2SplitPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// SplitKind is the closed set of span splitters.
type SplitKind int

const (
	// SplitWhitespace keeps maximal runs of non-space characters.
	SplitWhitespace SplitKind = iota
	// SplitBert splits on whitespace, isolates punctuation, and treats CJK
	// characters as standalone spans.
	SplitBert
	// SplitPattern keeps every match of a regexp2 pattern, in order.
	SplitPattern
)

// Splitter partitions a span into an ordered sequence of sub-spans.
type Splitter struct {
	kind SplitKind
	re   *regexp2.Regexp
}

func NewSplitter(kind SplitKind, pattern string) (*Splitter, error) {
	s := &Splitter{kind: kind}
	if kind == SplitPattern {
		if pattern == "" {
			pattern = GPT2SplitPattern
		}
		re, err := regexp2.Compile(pattern, regexp2.Unicode|regexp2.RE2)
		if err != nil {
			return nil, err
		}
		s.re = re
	}
	return s, nil
}

// Split partitions s left to right. Characters outside every match are
// dropped only by the whitespace and bert splitters (the whitespace itself);
// the pattern splitter's patterns cover all input by construction.
func (s *Splitter) Split(text string) []string {
	switch s.kind {
	case SplitBert:
		return splitBert(text)
	case SplitPattern:
		var spans []string
		for m, _ := s.re.FindStringMatch(text); m != nil; m, _ = s.re.FindNextMatch(m) {
			spans = append(spans, m.String())
		}
		return spans
	default:
		return strings.Fields(text)
	}
}

// splitBert whitespace-splits, isolates punctuation into single-character
// spans, and pads CJK characters so they split off as their own words.
func splitBert(text string) []string {
	runes := make([]rune, 0, len(text))
	for _, r := range text {
		if isCJK(r) {
			runes = append(runes, ' ', r, ' ')
		} else {
			runes = append(runes, r)
		}
	}

	var spans []string
	for _, w := range strings.FieldsFunc(string(runes), unicode.IsSpace) {
		var start int
		for start < len(w) {
			end := strings.IndexFunc(w[start:], unicode.IsPunct)
			if end < 0 {
				end = len(w) - start
			} else if end == 0 {
				end = 1
			}
			spans = append(spans, w[start:start+end])
			start += end
		}
	}
	return spans
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0x20000 && r <= 0x2A6DF,
		r >= 0x2A700 && r <= 0x2B73F,
		r >= 0x2B740 && r <= 0x2B81F,
		r >= 0x2B820 && r <= 0x2CEAF,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0x2F800 && r <= 0x2FA1F:
		return true
	}
	return false
}
