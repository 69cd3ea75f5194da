package pipelines

import (
	"fmt"

	"github.com/tokenpipe/tokenpipe/ragged"
	"github.com/tokenpipe/tokenpipe/vocab"
)

// Template interleaves configured special tokens with one or two encoded
// sequences. Two layouts exist: the classification layout driven by cls/sep
// slots ([CLS] A [SEP] B [SEP]) and the generative layout driven by bos/eos
// (<s> A </s>). The layout is picked from which slots the vocabulary binds.
type Template struct {
	cls, sep   int32
	bos, eos   int32
	addSpecial bool
	maxLen     int
	truncSide  ragged.Side
	pair       bool
}

// NewTemplate builds the template processor. A pair template requires the
// sep slot (or eos for the generative layout) so the two sequences can be
// delimited; a missing required slot is a construction error.
func NewTemplate(v *vocab.Vocabulary, addSpecial, pair bool, maxLen int, truncSide ragged.Side) (*Template, error) {
	t := &Template{
		cls:        v.Special(vocab.Cls),
		sep:        v.Special(vocab.Sep),
		bos:        v.Special(vocab.Bos),
		eos:        v.Special(vocab.Eos),
		addSpecial: addSpecial,
		maxLen:     maxLen,
		truncSide:  truncSide,
		pair:       pair,
	}
	if pair && addSpecial && t.sep < 0 && t.eos < 0 {
		return nil, fmt.Errorf("pair template requires a sep or eos token")
	}
	return t, nil
}

// numSpecials returns how many ids the template injects for the given arity.
func (t *Template) numSpecials(pair bool) int {
	if !t.addSpecial {
		return 0
	}
	n := 0
	if t.cls >= 0 || t.bos >= 0 {
		n++
	}
	if t.sep >= 0 || t.eos >= 0 {
		n++
		if pair {
			n++
		}
	}
	return n
}

// Apply assembles the final id and segment-type sequences for one row.
// second is nil for single-sequence templates. Truncation happens against
// the budget left after special insertion, before any ids are injected, so
// an over-long row lands on exactly maxLen ids, specials included.
func (t *Template) Apply(first, second []int32) (ids, typeIDs []int32) {
	pair := second != nil
	if t.maxLen > 0 {
		budget := t.maxLen - t.numSpecials(pair)
		if budget < 0 {
			budget = 0
		}
		first, second = truncateLongestFirst(first, second, budget, t.truncSide)
	}

	lead := t.cls
	if lead < 0 {
		lead = t.bos
	}
	trail := t.sep
	if trail < 0 {
		trail = t.eos
	}

	n := len(first) + len(second) + t.numSpecials(pair)
	ids = make([]int32, 0, n)
	typeIDs = make([]int32, 0, n)

	if t.addSpecial && lead >= 0 {
		ids = append(ids, lead)
		typeIDs = append(typeIDs, 0)
	}
	ids = append(ids, first...)
	for range first {
		typeIDs = append(typeIDs, 0)
	}
	if t.addSpecial && trail >= 0 {
		ids = append(ids, trail)
		typeIDs = append(typeIDs, 0)
	}

	if pair {
		ids = append(ids, second...)
		for range second {
			typeIDs = append(typeIDs, 1)
		}
		if t.addSpecial && trail >= 0 {
			ids = append(ids, trail)
			typeIDs = append(typeIDs, 1)
		}
	}

	return ids, typeIDs
}

// truncateLongestFirst drops ids one at a time from whichever sequence is
// currently longer until the pair fits the budget, matching the reference
// longest-first strategy. With a single sequence it reduces to a plain cut.
func truncateLongestFirst(first, second []int32, budget int, side ragged.Side) ([]int32, []int32) {
	if second == nil {
		if len(first) > budget {
			first = cut(first, budget, side)
		}
		return first, nil
	}

	for len(first)+len(second) > budget {
		if len(first) >= len(second) {
			if len(first) == 0 {
				second = cut(second, budget, side)
				break
			}
			first = cut(first, len(first)-1, side)
		} else {
			if len(second) == 0 {
				first = cut(first, budget, side)
				break
			}
			second = cut(second, len(second)-1, side)
		}
	}
	return first, second
}

func cut(ids []int32, keep int, side ragged.Side) []int32 {
	if keep >= len(ids) {
		return ids
	}
	if side == ragged.Left {
		return ids[len(ids)-keep:]
	}
	return ids[:keep]
}
