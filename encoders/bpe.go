package encoders

import (
	"cmp"
	"strings"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/tokenpipe/tokenpipe/normalizers"
	"github.com/tokenpipe/tokenpipe/vocab"
)

// BPE merges adjacent symbol pairs by learned rank until no mergeable pair
// remains. Symbols start as single runes (byte-remapped bytes when byte
// level is on), tracked in a doubly linked list so a merge is O(1) and new
// candidate pairs surface through a priority queue keyed by rank.
type BPE struct {
	vocab     *vocab.Vocabulary
	byteLevel bool
}

func NewBPE(v *vocab.Vocabulary, byteLevel bool) *BPE {
	return &BPE{vocab: v, byteLevel: byteLevel}
}

// pair is a merge candidate: positions a and b in the symbol list, the rank
// of the merge, and the merged value used to detect stale queue entries.
type pair struct {
	a, b  int
	rank  int
	value string
}

// symbol is a linked-list node over the working sequence. p and n are the
// previous and next live positions; runes empties when merged away.
type symbol struct {
	p, n  int
	runes []rune
}

func (bpe *BPE) Encode(span string) []int32 {
	if span == "" {
		return nil
	}
	if bpe.byteLevel {
		span = normalizers.ByteEncode(span)
	}

	// short circuit if the whole span is in the vocabulary
	if id := bpe.vocab.Encode(span); id >= 0 {
		return []int32{id}
	}

	runes := []rune(span)
	symbols := make([]symbol, len(runes))
	for r := range runes {
		symbols[r] = symbol{
			p:     r - 1,
			n:     r + 1,
			runes: []rune{runes[r]},
		}
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(runes) {
			return nil
		}

		left, right := string(symbols[a].runes), string(symbols[b].runes)
		rank := bpe.vocab.Merge(left, right)
		if rank < 0 {
			return nil
		}

		return &pair{
			a:     a,
			b:     b,
			rank:  rank,
			value: left + right,
		}
	}

	// equal ranks resolve to the leftmost occurrence
	pairs := heap.NewWith(func(i, j *pair) int {
		if c := cmp.Compare(i.rank, j.rank); c != 0 {
			return c
		}
		return cmp.Compare(i.a, j.a)
	})

	for i := range len(runes) - 1 {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := symbols[pair.a], symbols[pair.b]
		if len(left.runes) == 0 || len(right.runes) == 0 ||
			string(left.runes)+string(right.runes) != pair.value {
			continue
		}

		symbols[pair.a].runes = append(left.runes, right.runes...)
		symbols[pair.b].runes = nil

		symbols[pair.a].n = right.n
		if right.n < len(symbols) {
			symbols[right.n].p = pair.a
		}

		if pair := pairwise(symbols[pair.a].p, pair.a); pair != nil {
			pairs.Push(pair)
		}

		if pair := pairwise(pair.a, symbols[pair.a].n); pair != nil {
			pairs.Push(pair)
		}
	}

	var ids []int32
	for _, sym := range symbols {
		if len(sym.runes) == 0 {
			continue
		}
		if id := bpe.vocab.Encode(string(sym.runes)); id >= 0 {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, bpe.fallback(string(sym.runes))...)
	}
	return ids
}

// fallback resolves a final symbol absent from the vocabulary. Byte-level
// vocabularies carry every single-byte symbol, so decomposition always
// lands; otherwise the symbol collapses to unk.
func (bpe *BPE) fallback(sym string) []int32 {
	var ids []int32
	if bpe.byteLevel {
		for _, r := range sym {
			if id := bpe.vocab.Encode(string(r)); id >= 0 {
				ids = append(ids, id)
			} else if unk := bpe.vocab.Special(vocab.Unk); unk >= 0 {
				ids = append(ids, unk)
			}
		}
		return ids
	}
	if unk := bpe.vocab.Special(vocab.Unk); unk >= 0 {
		return []int32{unk}
	}
	return nil
}

func (bpe *BPE) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(bpe.vocab.Decode(id))
	}
	if bpe.byteLevel {
		return normalizers.ByteDecode(sb.String())
	}
	return sb.String()
}
