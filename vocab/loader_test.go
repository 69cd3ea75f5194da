package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWordPieceDefinition(t *testing.T) {
	def, err := Load("../testData/wordpiece.json")
	require.NoError(t, err)
	assert.Equal(t, ModelWordPiece, def.Model.Type)
	assert.True(t, def.Normalizer.Lowercase)
	assert.Equal(t, "bert", def.PreTokenizer.Type)

	v, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, int32(6), v.Encode("unable"))
	assert.Equal(t, int32(1), v.Special(Unk))
	assert.Equal(t, int32(0), v.Special(Pad))
	assert.True(t, v.Has(Cls))
	assert.False(t, v.Has(Mask))
}

func TestLoadBPEDefinition(t *testing.T) {
	def, err := Load("../testData/bpe.json")
	require.NoError(t, err)

	v, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Merge("a", "b"))
	assert.Equal(t, int32(5), v.Special(Unk))
}

func TestParseUnigramVocabPairs(t *testing.T) {
	def, err := Parse([]byte(`{
		"model": {
			"type": "Unigram",
			"vocab": [["<unk>", 0.0], ["▁hi", -1.5], ["x", -2.25]]
		},
		"special_tokens": {"unk": "<unk>"}
	}`))
	require.NoError(t, err)

	v, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, v.Size())
	assert.Equal(t, float32(-1.5), v.Score(1))
	assert.Equal(t, int32(2), v.Encode("x"))
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{
			"no model type",
			`{"model": {"vocab": {"a": 0}}}`,
		},
		{
			"empty vocab",
			`{"model": {"type": "WordPiece", "vocab": {}}}`,
		},
		{
			"id out of range",
			`{"model": {"type": "WordPiece", "vocab": {"a": 0, "b": 7}}}`,
		},
		{
			"duplicate id",
			`{"model": {"type": "WordPiece", "vocab": {"a": 0, "b": 0}}}`,
		},
		{
			"dangling special token",
			`{"model": {"type": "WordPiece", "vocab": {"a": 0}}, "special_tokens": {"unk": "[UNK]"}}`,
		},
		{
			"unknown special slot",
			`{"model": {"type": "WordPiece", "vocab": {"a": 0}}, "special_tokens": {"sot": "a"}}`,
		},
		{
			"malformed merge",
			`{"model": {"type": "BPE", "vocab": {"a": 0, "b": 1}, "merges": ["ab"]}}`,
		},
		{
			"merge to unknown token",
			`{"model": {"type": "BPE", "vocab": {"a": 0, "b": 1}, "merges": ["a b"]}}`,
		},
		{
			"rank table missing bytes",
			`{"model": {"type": "RankTable", "vocab": {"a": 0}}}`,
		},
		{
			"unknown model type",
			`{"model": {"type": "Magic", "vocab": {"a": 0}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte(tt.def))
			if err != nil {
				return // rejected at parse time is also acceptable
			}
			_, err = def.Build()
			assert.Error(t, err)
		})
	}
}

func TestUnigramScoreCountMismatch(t *testing.T) {
	def, err := Parse([]byte(`{
		"model": {"type": "Unigram", "vocab": {"<unk>": 0, "a": 1}},
		"special_tokens": {"unk": "<unk>"}
	}`))
	require.NoError(t, err)

	_, err = def.Build()
	assert.Error(t, err)
}
