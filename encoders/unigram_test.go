package encoders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenpipe/tokenpipe/vocab"
)

func newUnigramVocab(t *testing.T, values []string, scores []float32) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New(values)
	v.Scores = scores
	assert.NoError(t, v.SetSpecial(vocab.Unk, 0))
	return v
}

func TestUnigramBestSegmentation(t *testing.T) {
	v := newUnigramVocab(t,
		[]string{"<unk>", "▁", "▁hello", "▁world", "hello", "wor", "ld"},
		[]float32{-10, -2, -3, -5, -4, -3, -3},
	)
	u := NewUnigram(v)

	// "▁world" at -5 beats "▁" + "wor" + "ld" at -8
	assert.Equal(t, []int32{3}, u.Encode("world"))
	assert.Equal(t, []int32{2, 3}, u.Encode("hello world"))
	assert.Nil(t, u.Encode(""))
}

func TestUnigramTiePrefersLongerToken(t *testing.T) {
	v := newUnigramVocab(t,
		[]string{"<unk>", "▁", "a", "b", "ab"},
		[]float32{-10, -1, -1, -1, -2},
	)
	u := NewUnigram(v)

	// "a"+"b" and "ab" both score -3 after the metaspace; the single
	// longer token wins
	assert.Equal(t, []int32{1, 4}, u.Encode("ab"))
}

func TestUnigramUnknownRunesCollapse(t *testing.T) {
	v := newUnigramVocab(t,
		[]string{"<unk>", "▁"},
		[]float32{-10, -1},
	)
	u := NewUnigram(v)

	// x and y both fall back to unk and collapse into one
	assert.Equal(t, []int32{1, 0}, u.Encode("xy"))
}

func TestUnigramDecode(t *testing.T) {
	v := newUnigramVocab(t,
		[]string{"<unk>", "▁", "▁hello", "▁world"},
		[]float32{-10, -1, -3, -5},
	)
	u := NewUnigram(v)

	assert.Equal(t, "hello world", u.Decode([]int32{2, 3}))

	// out-of-range ids decode to the replacement rune instead of vanishing
	assert.Equal(t, "hello�", u.Decode([]int32{2, 999}))
}
