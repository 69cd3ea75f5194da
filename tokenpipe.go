// Package tokenpipe converts declarative tokenizer definitions into
// composable pipelines of pure, batch-parallel operations that reproduce a
// reference tokenizer token-for-token without depending on it at run time.
//
// A Session owns the pipelines built from definitions. Construction is the
// only moment shared state is written; afterwards every pipeline is
// read-only and safe for concurrent callers.
package tokenpipe

import (
	"errors"
	"fmt"

	"github.com/tokenpipe/tokenpipe/options"
	"github.com/tokenpipe/tokenpipe/pipelines"
	"github.com/tokenpipe/tokenpipe/vocab"
)

// Session holds the pipelines created against it so they can be enumerated
// for stats and discarded together.
type Session struct {
	tokenizers   map[string]*pipelines.TokenizerPipeline
	detokenizers map[string]*pipelines.DetokenizerPipeline
}

func NewSession() *Session {
	return &Session{
		tokenizers:   map[string]*pipelines.TokenizerPipeline{},
		detokenizers: map[string]*pipelines.DetokenizerPipeline{},
	}
}

// PipelineConfig describes one pipeline to create: where its definition
// lives (Path) or the definition itself (Definition), plus the construction
// options.
type PipelineConfig struct {
	Name       string
	Path       string
	Definition *vocab.Definition
	Options    []options.WithOption
}

func (c *PipelineConfig) resolve() (*vocab.Definition, *vocab.Vocabulary, *options.Options, error) {
	if c.Name == "" {
		return nil, nil, nil, errors.New("a name for the pipeline is required")
	}

	def := c.Definition
	if def == nil {
		if c.Path == "" {
			return nil, nil, nil, fmt.Errorf("pipeline %s needs a definition or a path to one", c.Name)
		}
		var err error
		def, err = vocab.Load(c.Path)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	v, err := def.Build()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := options.Defaults()
	for _, option := range c.Options {
		if err := option(opts); err != nil {
			return nil, nil, nil, err
		}
	}
	return def, v, opts, nil
}

// NewTokenizer builds the tokenizer-direction pipeline for a definition and
// registers it with the session.
func NewTokenizer(s *Session, config PipelineConfig) (*pipelines.TokenizerPipeline, error) {
	if _, ok := s.tokenizers[config.Name]; ok {
		return nil, fmt.Errorf("a tokenizer pipeline named %s already exists", config.Name)
	}
	def, v, opts, err := config.resolve()
	if err != nil {
		return nil, err
	}
	p, err := pipelines.NewTokenizerPipeline(config.Name, v, def, opts)
	if err != nil {
		return nil, err
	}
	s.tokenizers[config.Name] = p
	return p, nil
}

// NewDetokenizer builds the decode-direction pipeline for a definition and
// registers it with the session. rules overrides the artifact cleanup table;
// nil keeps the defaults.
func NewDetokenizer(s *Session, config PipelineConfig, rules []pipelines.CleanupRule) (*pipelines.DetokenizerPipeline, error) {
	if _, ok := s.detokenizers[config.Name]; ok {
		return nil, fmt.Errorf("a detokenizer pipeline named %s already exists", config.Name)
	}
	def, v, opts, err := config.resolve()
	if err != nil {
		return nil, err
	}
	p, err := pipelines.NewDetokenizerPipeline(config.Name, v, def, opts, rules)
	if err != nil {
		return nil, err
	}
	s.detokenizers[config.Name] = p
	return p, nil
}

// GetTokenizer returns a previously created tokenizer pipeline by name.
func (s *Session) GetTokenizer(name string) (*pipelines.TokenizerPipeline, error) {
	if p, ok := s.tokenizers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no tokenizer pipeline named %s", name)
}

// GetDetokenizer returns a previously created detokenizer pipeline by name.
func (s *Session) GetDetokenizer(name string) (*pipelines.DetokenizerPipeline, error) {
	if p, ok := s.detokenizers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no detokenizer pipeline named %s", name)
}

// GetStats returns the runtime statistics of every pipeline in the session.
func (s *Session) GetStats() []string {
	var stats []string
	for _, p := range s.tokenizers {
		stats = append(stats, p.GetStats()...)
	}
	for _, p := range s.detokenizers {
		stats = append(stats, p.GetStats()...)
	}
	return stats
}
