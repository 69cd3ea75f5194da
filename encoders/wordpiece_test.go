package encoders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenpipe/tokenpipe/vocab"
)

func newWordPieceVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "un", "##able", "unable", "hello", "world", "##s", ",", "!"})
	assert.NoError(t, v.SetSpecial(vocab.Unk, 1))
	assert.NoError(t, v.SetSpecial(vocab.Pad, 0))
	assert.NoError(t, v.SetSpecial(vocab.Cls, 2))
	assert.NoError(t, v.SetSpecial(vocab.Sep, 3))
	return v
}

func TestWordPieceEncode(t *testing.T) {
	wp := NewWordPiece(newWordPieceVocab(t), "")

	tests := []struct {
		span string
		want []int32
	}{
		{"", nil},
		{"unable", []int32{6}},     // longest prefix is the whole span
		{"unables", []int32{6, 9}}, // unable + ##s
		{"worlds", []int32{8, 9}},
		{"hello", []int32{7}},
		{"unbelievable", []int32{1}}, // no piece chain, whole span is unk
		{"zzz", []int32{1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wp.Encode(tt.span), "span %q", tt.span)
	}
}

func TestWordPieceOverlongSpanIsUnk(t *testing.T) {
	wp := NewWordPiece(newWordPieceVocab(t), "")
	assert.Equal(t, []int32{1}, wp.Encode(strings.Repeat("a", 200)))
}

func TestWordPieceCustomPrefix(t *testing.T) {
	v := vocab.New([]string{"[UNK]", "un", "@@able"})
	assert.NoError(t, v.SetSpecial(vocab.Unk, 0))
	wp := NewWordPiece(v, "@@")
	assert.Equal(t, []int32{1, 2}, wp.Encode("unable"))
}

func TestWordPieceDecode(t *testing.T) {
	wp := NewWordPiece(newWordPieceVocab(t), "")

	// continuation pieces attach without a space, word starts get one
	assert.Equal(t, "unable", wp.Decode([]int32{4, 5}))
	assert.Equal(t, "hello worlds", wp.Decode([]int32{7, 8, 9}))
	assert.Equal(t, "hello , world !", wp.Decode([]int32{7, 10, 8, 11}))
}
