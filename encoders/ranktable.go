package encoders

import (
	"cmp"
	"strings"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/tokenpipe/tokenpipe/vocab"
)

// RankTable applies byte-pair merges driven directly by the token table: a
// token's id is its rank, lower merges first. The same merge loop as BPE,
// but over raw bytes and with ranks looked up as whole byte sequences
// instead of a learned pair list. Construction verifies the table covers
// all 256 single bytes, so every input resolves without unk.
type RankTable struct {
	vocab *vocab.Vocabulary
}

func NewRankTable(v *vocab.Vocabulary) *RankTable {
	return &RankTable{vocab: v}
}

// byteSymbol mirrors the BPE linked list, but over byte ranges of the span.
type byteSymbol struct {
	p, n       int
	start, end int // [start, end) into the span bytes; start == end when merged away
}

func (rt *RankTable) Encode(span string) []int32 {
	if span == "" {
		return nil
	}

	if id := rt.vocab.Encode(span); id >= 0 {
		return []int32{id}
	}

	symbols := make([]byteSymbol, len(span))
	for i := range symbols {
		symbols[i] = byteSymbol{p: i - 1, n: i + 1, start: i, end: i + 1}
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(symbols) {
			return nil
		}
		merged := span[symbols[a].start:symbols[a].end] + span[symbols[b].start:symbols[b].end]
		rank := rt.vocab.Encode(merged)
		if rank < 0 {
			return nil
		}
		return &pair{a: a, b: b, rank: int(rank), value: merged}
	}

	pairs := heap.NewWith(func(i, j *pair) int {
		if c := cmp.Compare(i.rank, j.rank); c != 0 {
			return c
		}
		return cmp.Compare(i.a, j.a)
	})

	for i := range len(symbols) - 1 {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := symbols[pair.a], symbols[pair.b]
		if left.start == left.end || right.start == right.end ||
			span[left.start:left.end]+span[right.start:right.end] != pair.value {
			continue
		}

		symbols[pair.a].end = right.end
		symbols[pair.b].start, symbols[pair.b].end = 0, 0

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
		if sym.start == sym.end {
			continue
		}
		// single bytes are guaranteed present, so this lookup cannot miss
		ids = append(ids, rt.vocab.Encode(span[sym.start:sym.end]))
	}
	return ids
}

// Decode concatenates the raw byte sequences behind each id. The result is
// exact for any id sequence the encoder produced.
func (rt *RankTable) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(rt.vocab.Decode(id))
	}
	return sb.String()
}
