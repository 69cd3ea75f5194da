// Package vocab holds the immutable vocabulary shared read-only by every
// pipeline invocation: the token/id bijection, BPE merge ranks, Unigram
// scores, the byte trie used by greedy matching, and the named special-token
// slots. Everything here is built once at pipeline construction; lookup maps
// are populated lazily behind sync.Once and never mutated afterwards.
package vocab

import (
	"fmt"
	"sync"
)

// Special names a reserved token slot. Not every tokenizer defines every
// slot; absent slots resolve to id -1.
type Special int

const (
	Unk Special = iota
	Bos
	Eos
	Pad
	Cls
	Sep
	Mask
	numSpecials
)

func (s Special) String() string {
	switch s {
	case Unk:
		return "unk"
	case Bos:
		return "bos"
	case Eos:
		return "eos"
	case Pad:
		return "pad"
	case Cls:
		return "cls"
	case Sep:
		return "sep"
	case Mask:
		return "mask"
	default:
		return fmt.Sprintf("special(%d)", int(s))
	}
}

type Vocabulary struct {
	// Values is the id-ordered token table. Values[id] is the token string.
	Values []string
	// Scores holds per-token log probabilities for Unigram models. Empty
	// otherwise.
	Scores []float32
	// Merges is the rank-ordered BPE merge list, each entry "left right".
	Merges []string

	specials [numSpecials]int32

	valuesOnce sync.Once
	values     map[string]int32

	mergeOnce sync.Once
	merge     map[string]int32

	trieOnce sync.Once
	trie     *Trie

	maxLenOnce  sync.Once
	maxTokenLen int
}

// New builds a vocabulary from an id-ordered token table. Special slots
// default to absent.
func New(values []string) *Vocabulary {
	v := &Vocabulary{Values: values}
	for i := range v.specials {
		v.specials[i] = -1
	}
	return v
}

// SetSpecial binds a special slot to an id. id must be in range.
func (v *Vocabulary) SetSpecial(s Special, id int32) error {
	if int(id) < 0 || int(id) >= len(v.Values) {
		return fmt.Errorf("special token %s id %d out of range [0, %d)", s, id, len(v.Values))
	}
	v.specials[s] = id
	return nil
}

// Special returns the id bound to a slot, or -1 when the slot is absent.
func (v *Vocabulary) Special(s Special) int32 {
	return v.specials[s]
}

// Has reports whether a special slot is bound.
func (v *Vocabulary) Has(s Special) bool {
	return v.specials[s] >= 0
}

// IsSpecial reports whether id is bound to any special slot.
func (v *Vocabulary) IsSpecial(id int32) bool {
	for _, s := range v.specials {
		if s >= 0 && s == id {
			return true
		}
	}
	return false
}

// Encode returns the id for a token string, or -1 when absent.
func (v *Vocabulary) Encode(s string) int32 {
	v.valuesOnce.Do(func() {
		v.values = make(map[string]int32, len(v.Values))
		for i, value := range v.Values {
			v.values[value] = int32(i)
		}
	})

	if id, ok := v.values[s]; ok {
		return id
	}

	return -1
}

// Decode returns the token string for an id, or "" when out of range.
func (v *Vocabulary) Decode(id int32) string {
	if id < 0 || int(id) >= len(v.Values) {
		return ""
	}
	return v.Values[id]
}

// Size returns the number of tokens.
func (v *Vocabulary) Size() int {
	return len(v.Values)
}

// Merge returns the rank of the merge (left, right), or -1 when the pair was
// never learned. Lower rank means earlier-learned, applied first.
func (v *Vocabulary) Merge(left, right string) int {
	v.mergeOnce.Do(func() {
		v.merge = make(map[string]int32, len(v.Merges))
		for i, merge := range v.Merges {
			v.merge[merge] = int32(i)
		}
	})

	if id, ok := v.merge[left+" "+right]; ok {
		return int(id)
	}

	return -1
}

// Score returns the Unigram log probability of a token id.
func (v *Vocabulary) Score(id int32) float32 {
	if len(v.Scores) == 0 || id < 0 || int(id) >= len(v.Scores) {
		return 0
	}
	return v.Scores[id]
}

// Trie returns the byte prefix tree over every non-special token string,
// built on first use.
func (v *Vocabulary) Trie() *Trie {
	v.trieOnce.Do(func() {
		v.trie = NewTrie()
		for i, value := range v.Values {
			if v.IsSpecial(int32(i)) {
				continue
			}
			v.trie.Insert(value, int32(i))
		}
	})
	return v.trie
}

// MaxTokenLen returns the byte length of the longest non-special token,
// bounding the Viterbi window in the Unigram encoder.
func (v *Vocabulary) MaxTokenLen() int {
	v.maxLenOnce.Do(func() {
		for i, value := range v.Values {
			if v.IsSpecial(int32(i)) {
				continue
			}
			if len(value) > v.maxTokenLen {
				v.maxTokenLen = len(value)
			}
		}
	})
	return v.maxTokenLen
}

// CheckByteCoverage verifies every single-byte token is present, which the
// rank-table encoder requires so that any input resolves without unk.
func (v *Vocabulary) CheckByteCoverage() error {
	for b := 0; b < 256; b++ {
		if v.Encode(string([]byte{byte(b)})) < 0 {
			return fmt.Errorf("rank table does not cover byte 0x%02X", b)
		}
	}
	return nil
}

// CheckMerges verifies the merge table is well formed: every entry has two
// non-empty symbols and its concatenation is a known token.
func (v *Vocabulary) CheckMerges() error {
	for i, m := range v.Merges {
		var left, right string
		for j := 0; j < len(m); j++ {
			if m[j] == ' ' {
				left, right = m[:j], m[j+1:]
				break
			}
		}
		if left == "" || right == "" {
			return fmt.Errorf("merge %d %q is not a symbol pair", i, m)
		}
		if v.Encode(left+right) < 0 {
			return fmt.Errorf("merge %d produces %q which is not in the vocabulary", i, left+right)
		}
	}
	return nil
}
