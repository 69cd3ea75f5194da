// Package encoders implements the five subword algorithms that map text
// spans to token id sequences, with their paired decoders. Every encoder is
// a pure function of the span and an immutable vocabulary: no call mutates
// shared state, so batch rows can be encoded on independent goroutines.
//
// Encoders never abort on unknown input. A non-empty span always produces
// some id sequence, via the unk slot or single-unit consumption.
package encoders

import (
	"fmt"

	"github.com/tokenpipe/tokenpipe/vocab"
)

// Encoder maps one span to an ordered id sequence and back. Decode is the
// algorithm-specific re-join (continuation markers, byte-level inversion,
// metaspace); special-token filtering and artifact cleanup sit above it in
// the pipeline.
type Encoder interface {
	Encode(span string) []int32
	Decode(ids []int32) string
}

// Cache memoizes encoded spans within a single batch invocation. Natural
// text repeats words constantly, so this pays for itself on the first
// duplicate. A cache must not be shared across invocations or goroutines.
type Cache map[string][]int32

// EncodeCached runs enc.Encode through a per-invocation cache. A nil cache
// disables memoization.
func EncodeCached(enc Encoder, span string, cache Cache) []int32 {
	if cache == nil {
		return enc.Encode(span)
	}
	if ids, ok := cache[span]; ok {
		return ids
	}
	ids := enc.Encode(span)
	cache[span] = ids
	return ids
}

// New builds the encoder for a model type. Model types whose fallback is the
// unk slot require it to be bound; that is a construction error, not a
// runtime one.
func New(v *vocab.Vocabulary, modelType vocab.ModelType, byteLevel bool, continuingPrefix string, dropUnknown bool) (Encoder, error) {
	switch modelType {
	case vocab.ModelBPE:
		if !byteLevel && !v.Has(vocab.Unk) {
			return nil, fmt.Errorf("BPE without byte level requires an unk token")
		}
		return NewBPE(v, byteLevel), nil
	case vocab.ModelWordPiece:
		if !v.Has(vocab.Unk) {
			return nil, fmt.Errorf("WordPiece requires an unk token")
		}
		return NewWordPiece(v, continuingPrefix), nil
	case vocab.ModelUnigram:
		if !v.Has(vocab.Unk) {
			return nil, fmt.Errorf("Unigram requires an unk token")
		}
		return NewUnigram(v), nil
	case vocab.ModelRankTable:
		return NewRankTable(v), nil
	case vocab.ModelTrieGreedy:
		if !dropUnknown && !v.Has(vocab.Unk) {
			return nil, fmt.Errorf("trie matching without an unk token must drop unknown positions")
		}
		return NewTrieGreedy(v, dropUnknown), nil
	default:
		return nil, fmt.Errorf("unknown model type %q", modelType)
	}
}
