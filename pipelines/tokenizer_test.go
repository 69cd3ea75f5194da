package pipelines

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenpipe/tokenpipe/options"
	"github.com/tokenpipe/tokenpipe/vocab"
)

func newBertDefinition() *vocab.Definition {
	def := &vocab.Definition{}
	def.Model.Type = vocab.ModelWordPiece
	def.Normalizer.Lowercase = true
	def.PreTokenizer.Type = "bert"
	return def
}

func newBertPipeline(t *testing.T, opts ...options.WithOption) *TokenizerPipeline {
	t.Helper()
	o := options.Defaults()
	for _, opt := range opts {
		assert.NoError(t, opt(o))
	}
	p, err := NewTokenizerPipeline("bert-test", newBertVocab(t), newBertDefinition(), o)
	assert.NoError(t, err)
	return p
}

func TestTokenizerRun(t *testing.T) {
	p := newBertPipeline(t)

	out, err := p.Run([]string{"Hello, world!"})
	assert.NoError(t, err)

	assert.Equal(t, []int32{2, 7, 10, 8, 11, 3}, out.IDs.Row(0))
	assert.Equal(t, 6, out.SeqLen)
	assert.Equal(t, []int{1, 6}, []int(out.InputIDs.Shape()))
	assert.Equal(t, []int32{1, 1, 1, 1, 1, 1}, out.AttentionMask.Data().([]int32))
	assert.Nil(t, out.TokenTypeIDs)
}

func TestTokenizerPadsToLongestRow(t *testing.T) {
	p := newBertPipeline(t)

	out, err := p.Run([]string{"hello", "hello world"})
	assert.NoError(t, err)

	assert.Equal(t, 4, out.SeqLen)
	assert.Equal(t, []int32{2, 7, 3, 0, 2, 7, 8, 3}, out.InputIDs.Data().([]int32))
	assert.Equal(t, []int32{1, 1, 1, 0, 1, 1, 1, 1}, out.AttentionMask.Data().([]int32))
}

func TestTokenizerRowsAreIndependent(t *testing.T) {
	p := newBertPipeline(t)

	solo, err := p.Run([]string{"unable"})
	assert.NoError(t, err)
	batch, err := p.Run([]string{"hello world", "unable", "zzz"})
	assert.NoError(t, err)

	assert.Equal(t, solo.IDs.Row(0), batch.IDs.Row(1))
	assert.Equal(t, []int32{2, 1, 3}, batch.IDs.Row(2))
}

func TestTokenizerIsDeterministic(t *testing.T) {
	p := newBertPipeline(t)
	inputs := []string{"Hello, world!", "unable worlds", "zzz hello"}

	first, err := p.Run(inputs)
	assert.NoError(t, err)
	for range 10 {
		again, err := p.Run(inputs)
		assert.NoError(t, err)
		assert.Equal(t, first.IDs, again.IDs)
	}
}

func TestTokenizerEmptyBatch(t *testing.T) {
	p := newBertPipeline(t)

	out, err := p.Run(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, out.IDs.NumRows())
}

func TestTokenizerPairTemplate(t *testing.T) {
	p := newBertPipeline(t, options.WithPairTemplate())

	out, err := p.RunPair([]string{"hello"}, []string{"world"})
	assert.NoError(t, err)

	assert.Equal(t, []int32{2, 7, 3, 8, 3}, out.IDs.Row(0))
	assert.NotNil(t, out.TokenTypeIDs)
	assert.Equal(t, []int32{0, 0, 0, 1, 1}, out.TokenTypeIDs.Data().([]int32))
}

func TestTokenizerArityMismatch(t *testing.T) {
	single := newBertPipeline(t)
	pair := newBertPipeline(t, options.WithPairTemplate())

	_, err := single.RunPair([]string{"a"}, []string{"b"})
	assert.Error(t, err)

	_, err = pair.Run([]string{"a"})
	assert.Error(t, err)

	_, err = pair.RunPair([]string{"a", "b"}, []string{"c"})
	assert.Error(t, err)
}

func TestTokenizerMaxLengthTruncates(t *testing.T) {
	p := newBertPipeline(t, options.WithMaxLength(4))

	out, err := p.Run([]string{"hello, world!"})
	assert.NoError(t, err)
	assert.Equal(t, []int32{2, 7, 10, 3}, out.IDs.Row(0))
}

func TestTokenizerPadToMax(t *testing.T) {
	p := newBertPipeline(t, options.WithMaxLength(8), options.WithPadToMax())

	out, err := p.Run([]string{"hello"})
	assert.NoError(t, err)
	assert.Equal(t, 8, out.SeqLen)
	assert.Equal(t, []int{1, 8}, []int(out.InputIDs.Shape()))
}

func TestTokenizerConstructionErrors(t *testing.T) {
	v := newBertVocab(t)

	badForm := newBertDefinition()
	badForm.Normalizer.Form = "NFKQ"
	_, err := NewTokenizerPipeline("bad-form", v, badForm, options.Defaults())
	assert.Error(t, err)

	badSplit := newBertDefinition()
	badSplit.PreTokenizer.Type = "characters"
	_, err = NewTokenizerPipeline("bad-split", v, badSplit, options.Defaults())
	assert.Error(t, err)

	badOpts := options.Defaults()
	badOpts.PadToMax = true
	_, err = NewTokenizerPipeline("bad-opts", v, newBertDefinition(), badOpts)
	assert.Error(t, err)
}

func TestTokenizerStats(t *testing.T) {
	p := newBertPipeline(t)
	_, err := p.Run([]string{"hello"})
	assert.NoError(t, err)

	stats := p.GetStats()
	assert.Len(t, stats, 2)
	assert.Contains(t, stats[0], "bert-test")
	assert.Contains(t, stats[1], "Execution count=1")
	assert.NoError(t, p.Validate())
}

func TestGraphValidate(t *testing.T) {
	p := newBertPipeline(t)
	assert.NoError(t, p.Graph.Validate())

	assert.Error(t, Graph{}.Validate())

	// encode feeds ids, normalize wants text
	bad := Graph{
		{Kind: StageEncode},
		{Kind: StageNormalize},
	}
	assert.Error(t, bad.Validate())

	// the pad stage cannot sit mid-graph
	misplaced := Graph{
		{Kind: StageEncode},
		{Kind: StagePad},
		{Kind: StageDecode},
	}
	assert.Error(t, misplaced.Validate())

	// a graph may not end on raw ids
	unterminated := Graph{
		{Kind: StageNormalize},
		{Kind: StageEncode},
	}
	assert.Error(t, unterminated.Validate())
}
