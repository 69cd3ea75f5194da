package ragged

import (
	"gorgonia.org/tensor"
)

// Padded is the fixed-shape materialization of a ragged id batch.
type Padded struct {
	InputIDs      *tensor.Dense
	AttentionMask *tensor.Dense
	SeqLen        int
}

// ToPadded truncates and pads every row of an id batch to a common length and
// returns [N, L] int32 tensors for the ids and the 1/0 attention mask.
//
// If maxLen > 0 rows longer than maxLen are truncated from truncSide and,
// when padToMax is set, L is forced to maxLen even if every row is shorter.
// Otherwise L is the longest post-truncation row. Empty rows survive as
// all-padding rows; no row is dropped.
func ToPadded(in *Batch[int32], padID int32, maxLen int, truncSide, padSide Side, padToMax bool) *Padded {
	n := in.NumRows()

	seqLen := 0
	for i := 0; i < n; i++ {
		l := in.RowLen(i)
		if maxLen > 0 && l > maxLen {
			l = maxLen
		}
		if l > seqLen {
			seqLen = l
		}
	}
	if padToMax && maxLen > 0 {
		seqLen = maxLen
	}
	if seqLen == 0 {
		// zero-width backings are rejected by the tensor allocator; a batch
		// of empty rows keeps one all-padding column instead
		seqLen = 1
	}

	ids := make([]int32, n*seqLen)
	mask := make([]int32, n*seqLen)
	for i := range ids {
		ids[i] = padID
	}

	for i := 0; i < n; i++ {
		row := in.Row(i)
		if maxLen > 0 && len(row) > maxLen {
			if truncSide == Left {
				row = row[len(row)-maxLen:]
			} else {
				row = row[:maxLen]
			}
		}

		base := i * seqLen
		start := 0
		if padSide == Left {
			start = seqLen - len(row)
		}
		for j, id := range row {
			ids[base+start+j] = id
			mask[base+start+j] = 1
		}
	}

	return &Padded{
		InputIDs: tensor.New(
			tensor.Of(tensor.Int32),
			tensor.WithShape(n, seqLen),
			tensor.WithBacking(ids),
		),
		AttentionMask: tensor.New(
			tensor.Of(tensor.Int32),
			tensor.WithShape(n, seqLen),
			tensor.WithBacking(mask),
		),
		SeqLen: seqLen,
	}
}
