// Package pipelines composes normalization, encoding, template assembly and
// decoding stages into runnable tokenizer and detokenizer pipelines. The
// package owns no algorithmic logic; it sequences the stage packages and
// drives batch execution across worker goroutines.
package pipelines

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/tokenpipe/tokenpipe/encoders"
	"github.com/tokenpipe/tokenpipe/normalizers"
)

// StageKind is the closed set of pipeline stages.
type StageKind int

const (
	StageNormalize StageKind = iota
	StageSplit
	StageEncode
	StageTemplate
	StagePad
	StageDecode
	StageCleanup
)

func (k StageKind) String() string {
	switch k {
	case StageNormalize:
		return "normalize"
	case StageSplit:
		return "split"
	case StageEncode:
		return "encode"
	case StageTemplate:
		return "template"
	case StagePad:
		return "pad"
	case StageDecode:
		return "decode"
	case StageCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// stageType is the value type flowing between stages.
type stageType int

const (
	typeText stageType = iota
	typeIDs
	typeTensor
)

func (k StageKind) inType() stageType {
	switch k {
	case StageNormalize, StageSplit, StageEncode:
		return typeText
	case StageDecode:
		return typeIDs
	case StageCleanup:
		return typeText
	default:
		return typeIDs
	}
}

func (k StageKind) outType() stageType {
	switch k {
	case StageNormalize, StageSplit, StageDecode, StageCleanup:
		return typeText
	case StagePad:
		return typeTensor
	default:
		return typeIDs
	}
}

// terminal stages can only close a graph, never feed another stage.
func (k StageKind) terminal() bool {
	return k == StagePad || k == StageCleanup
}

// Stage is one descriptor in a pipeline graph. It is a tagged variant: only
// the state its kind needs is set.
type Stage struct {
	Kind       StageKind
	Normalizer *normalizers.Normalizer
	Splitter   *normalizers.Splitter
	Encoder    encoders.Encoder
	Template   *Template
	Cleanup    *Cleanup
}

// Graph is an ordered acyclic stage list. Each stage's output type must be
// compatible with the next stage's input type, and exactly one terminal
// tensor- or string-producing stage closes the graph.
type Graph []Stage

func (g Graph) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("pipeline graph is empty")
	}
	for i := 1; i < len(g); i++ {
		if g[i-1].Kind.outType() != g[i].Kind.inType() {
			return fmt.Errorf("stage %s output is incompatible with stage %s input",
				g[i-1].Kind, g[i].Kind)
		}
	}
	for i, stage := range g {
		if stage.Kind.terminal() && i != len(g)-1 {
			return fmt.Errorf("stage %s must be the last stage", stage.Kind)
		}
	}
	if last := g[len(g)-1].Kind; last.outType() == typeIDs {
		return fmt.Errorf("stage %s cannot close a pipeline", last)
	}
	return nil
}

// Pipeline is the interface both directions implement.
type Pipeline interface {
	GetStats() []string
	Validate() error
}

// timings accumulate across concurrent invocations, hence the atomics.
type timings struct {
	NumCalls atomic.Uint64
	TotalNS  atomic.Uint64
}

func (t *timings) observe(start time.Time) {
	t.NumCalls.Add(1)
	t.TotalNS.Add(uint64(time.Since(start)))
}

func (t *timings) stats(name string) string {
	calls := t.NumCalls.Load()
	total := t.TotalNS.Load()
	return fmt.Sprintf("%s: Total time=%s, Execution count=%d, Average batch time=%s",
		name,
		time.Duration(total),
		calls,
		time.Duration(float64(total)/math.Max(1, float64(calls))))
}
