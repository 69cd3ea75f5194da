package encoders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenpipe/tokenpipe/normalizers"
	"github.com/tokenpipe/tokenpipe/vocab"
)

func newBPEVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New([]string{"a", "b", "c", "ab", "abc", "<unk>"})
	v.Merges = []string{"a b", "ab c"}
	assert.NoError(t, v.SetSpecial(vocab.Unk, 5))
	return v
}

func TestBPEEncode(t *testing.T) {
	bpe := NewBPE(newBPEVocab(t), false)

	tests := []struct {
		span string
		want []int32
	}{
		{"", nil},
		{"a", []int32{0}},
		{"abc", []int32{4}},       // whole span present
		{"abcb", []int32{4, 1}},   // "a b" then "ab c", trailing b stays
		{"cba", []int32{2, 1, 0}}, // no merge applies
		{"ax", []int32{0, 5}},     // x falls back to unk
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bpe.Encode(tt.span), "span %q", tt.span)
	}
}

func TestBPEEqualRanksMergeLeftmostFirst(t *testing.T) {
	v := vocab.New([]string{"a", "aa", "<unk>"})
	v.Merges = []string{"a a"}
	assert.NoError(t, v.SetSpecial(vocab.Unk, 2))
	bpe := NewBPE(v, false)

	// both pairs of "aaa" carry the same rank; the left one must win,
	// leaving [aa, a] rather than [a, aa]
	assert.Equal(t, []int32{1, 0}, bpe.Encode("aaa"))
}

func TestBPEByteLevel(t *testing.T) {
	values := make([]string, 256)
	for i := range values {
		values[i] = string(normalizers.ByteToRune(byte(i)))
	}
	v := vocab.New(values)
	bpe := NewBPE(v, true)

	// printable ASCII remaps to itself, space to the visible symbol
	assert.Equal(t, []int32{104, 105}, bpe.Encode("hi"))
	assert.Equal(t, []int32{32}, bpe.Encode(" "))

	for _, s := range []string{"hi", " a b ", "café", "\x00\xff"} {
		assert.Equal(t, s, bpe.Decode(bpe.Encode(s)), "round trip %q", s)
	}
}

func TestBPEDecode(t *testing.T) {
	bpe := NewBPE(newBPEVocab(t), false)
	assert.Equal(t, "abcb", bpe.Decode([]int32{4, 1}))
	assert.Equal(t, "", bpe.Decode(nil))
}

func TestBPEDeterministic(t *testing.T) {
	bpe := NewBPE(newBPEVocab(t), false)
	want := bpe.Encode("abcabcb")
	for range 50 {
		assert.Equal(t, want, bpe.Encode("abcabcb"))
	}
}
