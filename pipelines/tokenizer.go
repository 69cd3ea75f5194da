package pipelines

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/tokenpipe/tokenpipe/encoders"
	"github.com/tokenpipe/tokenpipe/normalizers"
	"github.com/tokenpipe/tokenpipe/options"
	"github.com/tokenpipe/tokenpipe/ragged"
	"github.com/tokenpipe/tokenpipe/vocab"
)

// TokenizerPipeline turns batches of raw strings into fixed-shape id
// tensors. After construction the pipeline is read-only and safe to invoke
// from multiple goroutines; every invocation owns its intermediate ragged
// batches exclusively.
type TokenizerPipeline struct {
	Name    string
	Vocab   *vocab.Vocabulary
	Config  *options.Options
	Graph   Graph
	timings timings
}

// TokenizerOutput is the named tensor set of the tokenizer direction.
// TokenTypeIDs is nil unless a pair template was configured.
type TokenizerOutput struct {
	InputIDs      *tensor.Dense
	AttentionMask *tensor.Dense
	TokenTypeIDs  *tensor.Dense
	// IDs is the ragged form before padding, one row per input.
	IDs    *ragged.Batch[int32]
	SeqLen int
}

// GetOutput returns the output tensors in interface form.
func (o *TokenizerOutput) GetOutput() []any {
	out := []any{o.InputIDs, o.AttentionMask}
	if o.TokenTypeIDs != nil {
		out = append(out, o.TokenTypeIDs)
	}
	return out
}

// NewTokenizerPipeline assembles the stage graph for a built vocabulary.
// The graph is validated here; a malformed configuration never reaches Run.
func NewTokenizerPipeline(name string, v *vocab.Vocabulary, def *vocab.Definition, opts *options.Options) (*TokenizerPipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var graph Graph

	var steps []normalizers.Kind
	switch def.Normalizer.Form {
	case "NFC":
		steps = append(steps, normalizers.NFC)
	case "NFD":
		steps = append(steps, normalizers.NFD)
	case "":
	default:
		return nil, fmt.Errorf("unknown normalization form %q", def.Normalizer.Form)
	}
	if def.Normalizer.Lowercase || opts.Lowercase {
		steps = append(steps, normalizers.Lowercase)
	}
	if def.Normalizer.StripAccents || opts.StripAccents {
		steps = append(steps, normalizers.StripAccents)
	}
	graph = append(graph, Stage{Kind: StageNormalize, Normalizer: normalizers.NewNormalizer(steps...)})

	splitter, err := newSplitter(def)
	if err != nil {
		return nil, err
	}
	if splitter != nil {
		graph = append(graph, Stage{Kind: StageSplit, Splitter: splitter})
	}

	byteLevel := def.Model.ByteLevel || opts.ByteLevel
	enc, err := encoders.New(v, def.Model.Type, byteLevel, def.Model.ContinuingSubwordPrefix, opts.Unknown == options.UnknownDrop)
	if err != nil {
		return nil, err
	}
	graph = append(graph, Stage{Kind: StageEncode, Encoder: enc})

	tmpl, err := NewTemplate(v, opts.AddSpecialTokens, opts.PairTemplate, opts.MaxLength, opts.TruncationSide)
	if err != nil {
		return nil, err
	}
	graph = append(graph, Stage{Kind: StageTemplate, Template: tmpl})
	graph = append(graph, Stage{Kind: StagePad})

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("assembled tokenizer pipeline",
		"name", name, "model", def.Model.Type, "stages", len(graph), "vocab", v.Size())

	return &TokenizerPipeline{Name: name, Vocab: v, Config: opts, Graph: graph}, nil
}

func newSplitter(def *vocab.Definition) (*normalizers.Splitter, error) {
	switch def.PreTokenizer.Type {
	case "whitespace":
		return normalizers.NewSplitter(normalizers.SplitWhitespace, "")
	case "bert":
		return normalizers.NewSplitter(normalizers.SplitBert, "")
	case "pattern":
		return normalizers.NewSplitter(normalizers.SplitPattern, def.PreTokenizer.Pattern)
	case "":
		// rank tables and byte-level models need pattern pre-segmentation
		// even when the definition is silent
		if def.Model.Type == vocab.ModelRankTable || def.Model.ByteLevel {
			return normalizers.NewSplitter(normalizers.SplitPattern, "")
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pre-tokenizer type %q", def.PreTokenizer.Type)
	}
}

// Validate implements Pipeline.
func (p *TokenizerPipeline) Validate() error {
	return p.Graph.Validate()
}

// GetStats implements Pipeline.
func (p *TokenizerPipeline) GetStats() []string {
	return []string{
		fmt.Sprintf("Statistics for pipeline: %s", p.Name),
		p.timings.stats("Tokenizer"),
	}
}

// Run tokenizes a batch of UTF-8 strings. Configuring a pair template makes
// single-sequence input a typed failure; use RunPair.
func (p *TokenizerPipeline) Run(inputs []string) (*TokenizerOutput, error) {
	if p.Config.PairTemplate {
		return nil, fmt.Errorf("pipeline %s is configured with a pair template, use RunPair", p.Name)
	}
	return p.run(inputs, nil)
}

// RunPair tokenizes aligned batches of first and second sequences under the
// pair template, producing token type ids alongside.
func (p *TokenizerPipeline) RunPair(firsts, seconds []string) (*TokenizerOutput, error) {
	if !p.Config.PairTemplate {
		return nil, fmt.Errorf("pipeline %s is not configured with a pair template", p.Name)
	}
	if len(firsts) != len(seconds) {
		return nil, fmt.Errorf("pair batch is unaligned: %d first sequences, %d second", len(firsts), len(seconds))
	}
	return p.run(firsts, seconds)
}

func (p *TokenizerPipeline) run(firsts, seconds []string) (*TokenizerOutput, error) {
	defer p.timings.observe(time.Now())

	n := len(firsts)
	if n == 0 {
		return &TokenizerOutput{IDs: ragged.New[int32]()}, nil
	}
	rowIDs := make([][]int32, n)
	rowTypes := make([][]int32, n)

	// rows partition into contiguous chunks, one worker and one span cache
	// per chunk; workers share only the immutable vocabulary
	var g errgroup.Group
	workers := p.Config.NumWorkers
	if workers > n {
		workers = max(n, 1)
	}
	chunk := (n + workers - 1) / max(workers, 1)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			cache := encoders.Cache{}
			for i := lo; i < hi; i++ {
				first := p.encodeRow(firsts[i], cache)
				var second []int32
				if seconds != nil {
					second = p.encodeRow(seconds[i], cache)
				}
				rowIDs[i], rowTypes[i] = p.template().Apply(first, second)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := ragged.FromRows(rowIDs)
	padded := ragged.ToPadded(ids, p.padID(), p.Config.MaxLength,
		p.Config.TruncationSide, p.Config.PaddingSide, p.Config.PadToMax)

	out := &TokenizerOutput{
		InputIDs:      padded.InputIDs,
		AttentionMask: padded.AttentionMask,
		IDs:           ids,
		SeqLen:        padded.SeqLen,
	}

	if seconds != nil {
		types := ragged.FromRows(rowTypes)
		paddedTypes := ragged.ToPadded(types, 0, p.Config.MaxLength,
			p.Config.TruncationSide, p.Config.PaddingSide, p.Config.PadToMax)
		out.TokenTypeIDs = paddedTypes.InputIDs
	}

	return out, nil
}

// encodeRow runs one input string through the text stages and the encoder.
func (p *TokenizerPipeline) encodeRow(input string, cache encoders.Cache) []int32 {
	spans := []string{input}
	var ids []int32
	for _, stage := range p.Graph {
		switch stage.Kind {
		case StageNormalize:
			for i, span := range spans {
				spans[i] = stage.Normalizer.Apply(span)
			}
		case StageSplit:
			var split []string
			for _, span := range spans {
				split = append(split, stage.Splitter.Split(span)...)
			}
			spans = split
		case StageEncode:
			for _, span := range spans {
				ids = append(ids, encoders.EncodeCached(stage.Encoder, span, cache)...)
			}
		}
	}
	return ids
}

func (p *TokenizerPipeline) template() *Template {
	for _, stage := range p.Graph {
		if stage.Kind == StageTemplate {
			return stage.Template
		}
	}
	return nil
}

func (p *TokenizerPipeline) padID() int32 {
	if id := p.Vocab.Special(vocab.Pad); id >= 0 {
		return id
	}
	return 0
}
