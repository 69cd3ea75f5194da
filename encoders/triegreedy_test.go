package encoders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenpipe/tokenpipe/vocab"
)

func newTrieVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New([]string{"<unk>", "Hello", "He", "l", "o", " world"})
	assert.NoError(t, v.SetSpecial(vocab.Unk, 0))
	return v
}

func TestTrieGreedyEncode(t *testing.T) {
	tg := NewTrieGreedy(newTrieVocab(t), false)

	tests := []struct {
		span string
		want []int32
	}{
		{"", nil},
		{"Hello", []int32{1}},          // longest match wins over He
		{"Hel", []int32{2, 3}},         // He then l
		{"Hello world", []int32{1, 5}}, // matches may span spaces
		{"Hello!", []int32{1, 0}},      // unmatched rune maps to unk
		{"He!!o", []int32{2, 0, 4}},    // adjacent unmatched runes collapse
		{"???", []int32{0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tg.Encode(tt.span), "span %q", tt.span)
	}
}

func TestTrieGreedyDropUnknown(t *testing.T) {
	tg := NewTrieGreedy(newTrieVocab(t), true)

	assert.Equal(t, []int32{1}, tg.Encode("Hello!"))
	assert.Equal(t, []int32{2, 4}, tg.Encode("He!!o"))
	assert.Empty(t, tg.Encode("???"))
}

func TestTrieGreedyDecode(t *testing.T) {
	tg := NewTrieGreedy(newTrieVocab(t), false)
	assert.Equal(t, "Hello world", tg.Decode([]int32{1, 5}))
	assert.Equal(t, "Hel", tg.Decode([]int32{2, 3}))
}

func TestEncoderFactory(t *testing.T) {
	wpv := newWordPieceVocab(t)
	bare := vocab.New([]string{"a", "b"})

	tests := []struct {
		name      string
		v         *vocab.Vocabulary
		modelType vocab.ModelType
		byteLevel bool
		dropUnk   bool
		wantErr   bool
	}{
		{"bpe with unk", newBPEVocab(t), vocab.ModelBPE, false, false, false},
		{"bpe byte level without unk", bare, vocab.ModelBPE, true, false, false},
		{"bpe without unk or byte level", bare, vocab.ModelBPE, false, false, true},
		{"wordpiece", wpv, vocab.ModelWordPiece, false, false, false},
		{"wordpiece without unk", bare, vocab.ModelWordPiece, false, false, true},
		{"unigram without unk", bare, vocab.ModelUnigram, false, false, true},
		{"rank table", newRankVocab(t), vocab.ModelRankTable, false, false, false},
		{"trie without unk must drop", bare, vocab.ModelTrieGreedy, false, false, true},
		{"trie without unk dropping", bare, vocab.ModelTrieGreedy, false, true, false},
		{"unknown model type", bare, vocab.ModelType("nope"), false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := New(tt.v, tt.modelType, tt.byteLevel, "", tt.dropUnk)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}

func TestEncodeCached(t *testing.T) {
	tg := NewTrieGreedy(newTrieVocab(t), false)
	cache := Cache{}

	first := EncodeCached(tg, "Hello", cache)
	assert.Equal(t, []int32{1}, first)
	assert.Len(t, cache, 1)

	// a second hit comes from the cache
	again := EncodeCached(tg, "Hello", cache)
	assert.Equal(t, first, again)
	assert.Len(t, cache, 1)

	// nil cache still encodes
	assert.Equal(t, []int32{1}, EncodeCached(tg, "Hello", nil))
}
