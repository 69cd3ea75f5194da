package pipelines

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/tokenpipe/tokenpipe/encoders"
	"github.com/tokenpipe/tokenpipe/options"
	"github.com/tokenpipe/tokenpipe/ragged"
	"github.com/tokenpipe/tokenpipe/vocab"
)

// DetokenizerPipeline turns id batches back into strings: vocabulary
// lookup, special-token filtering, algorithm-specific re-join, artifact
// cleanup. Like the tokenizer direction it is read-only after construction.
type DetokenizerPipeline struct {
	Name    string
	Vocab   *vocab.Vocabulary
	Config  *options.Options
	Graph   Graph
	timings timings
}

// NewDetokenizerPipeline assembles the decode-direction graph. The cleanup
// rule table may be nil to use the defaults tuned against reference output.
func NewDetokenizerPipeline(name string, v *vocab.Vocabulary, def *vocab.Definition, opts *options.Options, rules []CleanupRule) (*DetokenizerPipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	byteLevel := def.Model.ByteLevel || opts.ByteLevel
	enc, err := encoders.New(v, def.Model.Type, byteLevel, def.Model.ContinuingSubwordPrefix, opts.Unknown == options.UnknownDrop)
	if err != nil {
		return nil, err
	}

	graph := Graph{{Kind: StageDecode, Encoder: enc}}
	if opts.CleanUpTokenizationSpaces {
		if rules == nil {
			rules = DefaultCleanupRules
		}
		graph = append(graph, Stage{Kind: StageCleanup, Cleanup: NewCleanup(rules)})
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("assembled detokenizer pipeline", "name", name, "model", def.Model.Type)

	return &DetokenizerPipeline{Name: name, Vocab: v, Config: opts, Graph: graph}, nil
}

// Validate implements Pipeline.
func (p *DetokenizerPipeline) Validate() error {
	return p.Graph.Validate()
}

// GetStats implements Pipeline.
func (p *DetokenizerPipeline) GetStats() []string {
	return []string{
		fmt.Sprintf("Statistics for pipeline: %s", p.Name),
		p.timings.stats("Detokenizer"),
	}
}

// Run decodes one string per id row.
func (p *DetokenizerPipeline) Run(rows [][]int32) ([]string, error) {
	defer p.timings.observe(time.Now())

	out := make([]string, len(rows))
	var g errgroup.Group
	g.SetLimit(p.Config.NumWorkers)
	for i, row := range rows {
		g.Go(func() error {
			out[i] = p.decodeRow(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunBatch decodes a ragged id batch, the shape the tokenizer direction
// produces before padding.
func (p *DetokenizerPipeline) RunBatch(ids *ragged.Batch[int32]) ([]string, error) {
	if err := ids.Validate(); err != nil {
		return nil, err
	}
	return p.Run(ids.Rows())
}

// RunPadded decodes a [N, L] id tensor, dropping padding positions via the
// pad slot before decoding.
func (p *DetokenizerPipeline) RunPadded(ids *tensor.Dense) ([]string, error) {
	shape := ids.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("padded id tensor must be 2D, got shape %v", shape)
	}
	data, ok := ids.Data().([]int32)
	if !ok {
		return nil, fmt.Errorf("padded id tensor must hold int32, got %T", ids.Data())
	}

	n, l := shape[0], shape[1]
	pad := p.Vocab.Special(vocab.Pad)
	rows := make([][]int32, n)
	for i := 0; i < n; i++ {
		row := data[i*l : (i+1)*l]
		kept := make([]int32, 0, l)
		for _, id := range row {
			if pad >= 0 && id == pad {
				continue
			}
			kept = append(kept, id)
		}
		rows[i] = kept
	}
	return p.Run(rows)
}

// decodeRow applies the decode stages to one row. Out-of-range ids never
// fail the row: policy substitutes the replacement rune or drops them.
func (p *DetokenizerPipeline) decodeRow(row []int32) string {
	var enc encoders.Encoder
	var cleanup *Cleanup
	for _, stage := range p.Graph {
		switch stage.Kind {
		case StageDecode:
			enc = stage.Encoder
		case StageCleanup:
			cleanup = stage.Cleanup
		}
	}

	// filtered specials drop out silently; an invalid id breaks the row
	// into separate decode runs with a replacement marker (or nothing)
	// standing in for it
	var out string
	var run []int32
	flush := func() {
		if len(run) > 0 {
			out += enc.Decode(run)
			run = run[:0]
		}
	}
	for _, id := range row {
		switch {
		case id < 0 || int(id) >= p.Vocab.Size():
			flush()
			if p.Config.Unknown == options.UnknownToUnk {
				out += string(utf8.RuneError)
			}
		case p.Config.SkipSpecialTokens && p.Vocab.IsSpecial(id):
			// skipped in place, the surrounding run stays joined
		default:
			run = append(run, id)
		}
	}
	flush()

	if cleanup != nil {
		out = cleanup.Apply(out)
	}
	return out
}
