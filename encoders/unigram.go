package encoders

import (
	"strings"
	"unicode/utf8"

	"github.com/tokenpipe/tokenpipe/vocab"
)

// metaspace is the visible whitespace symbol SentencePiece-style
// vocabularies are expressed in.
const metaspace = "▁"

// unkPenalty scores an unmatched rune below every real segmentation so the
// Viterbi search only falls back to unk when nothing else covers a position.
const unkPenalty = -20.0

// Unigram finds the maximum-log-probability segmentation of a span with a
// Viterbi pass over rune boundaries: the best score at each boundary is the
// max over all vocabulary tokens ending there. Ties prefer the longer token.
type Unigram struct {
	vocab *vocab.Vocabulary
}

func NewUnigram(v *vocab.Vocabulary) *Unigram {
	return &Unigram{vocab: v}
}

func (u *Unigram) Encode(span string) []int32 {
	if span == "" {
		return nil
	}

	// project the span into the vocabulary's alphabet
	text := metaspace + strings.ReplaceAll(span, " ", metaspace)

	// byte positions of rune boundaries; the score tables are bounded
	// arrays sized to the span, indexed by boundary
	bounds := make([]int, 0, len(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(text))

	n := len(bounds) - 1
	const negInf = float32(-1e9)

	best := make([]float32, n+1)
	parent := make([]int, n+1)   // boundary index the winning token starts at
	tokenAt := make([]int32, n+1) // winning token id ending at boundary i
	for i := 1; i <= n; i++ {
		best[i] = negInf
		parent[i] = -1
	}

	maxLen := u.vocab.MaxTokenLen()
	unk := u.vocab.Special(vocab.Unk)

	for i := 1; i <= n; i++ {
		// j descends, so candidate tokens grow; an equal-score candidate
		// seen later is longer and wins the tie
		for j := i - 1; j >= 0; j-- {
			if bounds[i]-bounds[j] > maxLen {
				break
			}
			id := u.vocab.Encode(text[bounds[j]:bounds[i]])
			if id < 0 || u.vocab.IsSpecial(id) {
				continue
			}
			score := best[j] + u.vocab.Score(id)
			if score > best[i] || (score == best[i] && parent[i] >= 0) {
				best[i] = score
				parent[i] = j
				tokenAt[i] = id
			}
		}

		if parent[i] < 0 {
			// no token covers this position; consume one rune as unk
			best[i] = best[i-1] + unkPenalty
			parent[i] = i - 1
			tokenAt[i] = unk
		}
	}

	ids := make([]int32, 0, n)
	for pos := n; pos > 0; pos = parent[pos] {
		ids = append(ids, tokenAt[pos])
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	// adjacent unmatched runes collapse into one unk
	out := ids[:0]
	for _, id := range ids {
		if id == unk && len(out) > 0 && out[len(out)-1] == unk {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Decode maps ids back to pieces and turns the metaspace symbol back into
// ordinary spaces, trimming the leading one the encoder introduced.
func (u *Unigram) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		piece := u.vocab.Decode(id)
		if piece == "" {
			piece = string(utf8.RuneError)
		}
		sb.WriteString(piece)
	}
	return strings.TrimPrefix(strings.ReplaceAll(sb.String(), metaspace, " "), " ")
}
