// Package options collects the configuration fixed at pipeline construction.
// A pipeline never consults anything mutable after construction, so a built
// Options value is shared read-only across concurrent invocations.
package options

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/tokenpipe/tokenpipe/ragged"
)

// UnknownPolicy controls what happens to positions no vocabulary entry
// covers (greedy matching) and to out-of-range ids during decoding.
type UnknownPolicy int

const (
	// UnknownToUnk substitutes the unk slot (encode) or the replacement
	// marker (decode).
	UnknownToUnk UnknownPolicy = iota
	// UnknownDrop silently drops the offending unit.
	UnknownDrop
)

// Options is the full configuration surface of a pipeline.
type Options struct {
	// Template assembly.
	AddSpecialTokens bool
	MaxLength        int
	TruncationSide   ragged.Side
	PaddingSide      ragged.Side
	PadToMax         bool
	PairTemplate     bool

	// Normalization.
	Lowercase    bool
	StripAccents bool
	ByteLevel    bool

	// Decode direction.
	SkipSpecialTokens         bool
	CleanUpTokenizationSpaces bool
	Unknown                   UnknownPolicy

	// Batch execution.
	NumWorkers int
}

// Defaults mirror the reference tokenizer defaults: specials added, cleanup
// on, right-side truncation and padding, workers sized to the machine.
func Defaults() *Options {
	return &Options{
		AddSpecialTokens:          true,
		CleanUpTokenizationSpaces: true,
		TruncationSide:            ragged.Right,
		PaddingSide:               ragged.Right,
		NumWorkers:                runtime.GOMAXPROCS(0),
	}
}

// WithOption is the interface for all option functions.
type WithOption func(o *Options) error

func WithoutSpecialTokens() WithOption {
	return func(o *Options) error {
		o.AddSpecialTokens = false
		return nil
	}
}

func WithMaxLength(maxLength int) WithOption {
	return func(o *Options) error {
		if maxLength <= 0 {
			return fmt.Errorf("max length must be positive, got %d", maxLength)
		}
		o.MaxLength = maxLength
		return nil
	}
}

func WithTruncationSide(side string) WithOption {
	return func(o *Options) (err error) {
		o.TruncationSide, err = ragged.ParseSide(side)
		return err
	}
}

func WithPaddingSide(side string) WithOption {
	return func(o *Options) (err error) {
		o.PaddingSide, err = ragged.ParseSide(side)
		return err
	}
}

// WithPadToMax pads every batch to MaxLength instead of the longest row.
func WithPadToMax() WithOption {
	return func(o *Options) error {
		o.PadToMax = true
		return nil
	}
}

// WithPairTemplate assembles two encoded sequences per input with segment
// type ids, for tasks that take sentence pairs.
func WithPairTemplate() WithOption {
	return func(o *Options) error {
		o.PairTemplate = true
		return nil
	}
}

func WithLowercase() WithOption {
	return func(o *Options) error {
		o.Lowercase = true
		return nil
	}
}

func WithStripAccents() WithOption {
	return func(o *Options) error {
		o.StripAccents = true
		return nil
	}
}

func WithByteLevel() WithOption {
	return func(o *Options) error {
		o.ByteLevel = true
		return nil
	}
}

func WithSkipSpecialTokens() WithOption {
	return func(o *Options) error {
		o.SkipSpecialTokens = true
		return nil
	}
}

func WithoutCleanup() WithOption {
	return func(o *Options) error {
		o.CleanUpTokenizationSpaces = false
		return nil
	}
}

func WithUnknownPolicy(p UnknownPolicy) WithOption {
	return func(o *Options) error {
		o.Unknown = p
		return nil
	}
}

func WithWorkers(n int) WithOption {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		o.NumWorkers = n
		return nil
	}
}

// Validate rejects conflicting configurations at construction, never at
// batch time.
func (o *Options) Validate() error {
	if o.PadToMax && o.MaxLength == 0 {
		return errors.New("padding to max length requested but no max length configured")
	}
	if o.NumWorkers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", o.NumWorkers)
	}
	return nil
}
