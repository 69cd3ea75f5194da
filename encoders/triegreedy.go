package encoders

import (
	"strings"
	"unicode/utf8"

	"github.com/tokenpipe/tokenpipe/vocab"
)

// TrieGreedy repeatedly matches the longest vocabulary entry prefixing the
// remaining span against the vocabulary's byte trie. A position matching
// nothing consumes one rune and maps to unk, or is dropped when the
// vocabulary defines no unk slot and the pipeline opted into dropping.
type TrieGreedy struct {
	vocab       *vocab.Vocabulary
	dropUnknown bool
}

func NewTrieGreedy(v *vocab.Vocabulary, dropUnknown bool) *TrieGreedy {
	return &TrieGreedy{vocab: v, dropUnknown: dropUnknown}
}

func (tg *TrieGreedy) Encode(span string) []int32 {
	trie := tg.vocab.Trie()
	unk := tg.vocab.Special(vocab.Unk)

	var ids []int32
	for pos := 0; pos < len(span); {
		id, n := trie.LongestPrefix(span[pos:])
		if n > 0 {
			ids = append(ids, id)
			pos += n
			continue
		}

		_, size := utf8.DecodeRuneInString(span[pos:])
		pos += size
		if tg.dropUnknown {
			continue
		}
		// adjacent unmatched runes collapse into one unk
		if len(ids) == 0 || ids[len(ids)-1] != unk {
			ids = append(ids, unk)
		}
	}

	// a non-empty span never encodes to nothing unless dropping was asked for
	if len(ids) == 0 && len(span) > 0 && !tg.dropUnknown {
		ids = append(ids, unk)
	}
	return ids
}

func (tg *TrieGreedy) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(tg.vocab.Decode(id))
	}
	return sb.String()
}
