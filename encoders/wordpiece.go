package encoders

import (
	"strings"
	"unicode/utf8"

	"github.com/tokenpipe/tokenpipe/vocab"
)

// DefaultContinuingPrefix marks subword pieces that continue the previous
// piece without an implied space.
const DefaultContinuingPrefix = "##"

// maxWordPieceChars bounds the greedy search per span; longer spans map to
// unk outright, matching the reference behavior for degenerate input.
const maxWordPieceChars = 100

// WordPiece greedily takes the longest vocabulary prefix of the remaining
// span, marking every piece after the first with the continuation prefix.
// A span with no valid piece chain collapses to a single unk.
type WordPiece struct {
	vocab  *vocab.Vocabulary
	prefix string
}

func NewWordPiece(v *vocab.Vocabulary, prefix string) *WordPiece {
	if prefix == "" {
		prefix = DefaultContinuingPrefix
	}
	return &WordPiece{vocab: v, prefix: prefix}
}

func (wp *WordPiece) Encode(span string) []int32 {
	if span == "" {
		return nil
	}

	unk := wp.vocab.Special(vocab.Unk)
	if utf8.RuneCountInString(span) > maxWordPieceChars {
		return []int32{unk}
	}

	var pieces []int32
	start := 0
	for start < len(span) {
		end := len(span)
		piece := int32(-1)
		for start < end {
			sub := span[start:end]
			if start > 0 {
				sub = wp.prefix + sub
			}
			if id := wp.vocab.Encode(sub); id >= 0 {
				piece = id
				break
			}
			// shrink from the right, staying on a rune boundary
			_, size := utf8.DecodeLastRuneInString(span[start:end])
			end -= size
		}

		if piece < 0 {
			return []int32{unk}
		}
		pieces = append(pieces, piece)
		start = end
	}

	return pieces
}

// Decode re-joins pieces: continuation pieces attach directly, everything
// else is preceded by a space. The leading space of the first piece is
// trimmed by the pipeline-level join.
func (wp *WordPiece) Decode(ids []int32) string {
	var sb strings.Builder
	for i, id := range ids {
		piece := wp.vocab.Decode(id)
		if cut, ok := strings.CutPrefix(piece, wp.prefix); ok {
			sb.WriteString(cut)
			continue
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(piece)
	}
	return sb.String()
}
