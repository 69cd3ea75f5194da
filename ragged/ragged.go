// Package ragged implements the flat-buffer batch representation used to move
// variable-length sequences between pipeline stages. A batch of N rows is a
// single flat element slice plus N+1 monotonically non-decreasing offsets, so
// row i occupies Flat[Offsets[i]:Offsets[i+1]]. Rows may be empty.
package ragged

import (
	"fmt"
)

// Side selects which end of a row padding or truncation applies to.
type Side int

const (
	Right Side = iota
	Left
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ParseSide parses "left" or "right" as found in tokenizer configs.
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return Left, nil
	case "right", "":
		return Right, nil
	default:
		return Right, fmt.Errorf("unknown side %q", s)
	}
}

// Batch is a batch of variable-length rows of T. Each stage that produces a
// Batch owns it exclusively; stages never mutate their input in place.
type Batch[T any] struct {
	Flat    []T
	Offsets []int32
}

// New returns an empty batch ready for AppendRow.
func New[T any]() *Batch[T] {
	return &Batch[T]{Offsets: []int32{0}}
}

// FromRows builds a batch from per-row slices.
func FromRows[T any](rows [][]T) *Batch[T] {
	b := New[T]()
	for _, row := range rows {
		b.AppendRow(row)
	}
	return b
}

// FromStrings builds a one-span-per-row batch from raw input strings.
func FromStrings(inputs []string) *Batch[string] {
	b := New[string]()
	for _, s := range inputs {
		b.AppendRow([]string{s})
	}
	return b
}

// NumRows returns the number of rows in the batch.
func (b *Batch[T]) NumRows() int {
	return len(b.Offsets) - 1
}

// Row returns the i-th row. The returned slice aliases the flat buffer and
// must not be retained past the invocation that owns the batch.
func (b *Batch[T]) Row(i int) []T {
	return b.Flat[b.Offsets[i]:b.Offsets[i+1]]
}

// RowLen returns the length of the i-th row.
func (b *Batch[T]) RowLen(i int) int {
	return int(b.Offsets[i+1] - b.Offsets[i])
}

// AppendRow adds a row, which may be empty, to the end of the batch.
func (b *Batch[T]) AppendRow(row []T) {
	b.Flat = append(b.Flat, row...)
	b.Offsets = append(b.Offsets, int32(len(b.Flat)))
}

// Rows materializes the batch back into per-row slices. Used at the string
// output boundary and in tests.
func (b *Batch[T]) Rows() [][]T {
	out := make([][]T, b.NumRows())
	for i := range out {
		row := b.Row(i)
		out[i] = make([]T, len(row))
		copy(out[i], row)
	}
	return out
}

// Validate checks the offset invariants. Definition loaders and the pipeline
// seam call this on batches crossing a package boundary.
func (b *Batch[T]) Validate() error {
	if len(b.Offsets) == 0 {
		return fmt.Errorf("ragged batch has no offsets")
	}
	if b.Offsets[0] != 0 {
		return fmt.Errorf("ragged batch offsets must start at 0, got %d", b.Offsets[0])
	}
	for i := 1; i < len(b.Offsets); i++ {
		if b.Offsets[i] < b.Offsets[i-1] {
			return fmt.Errorf("ragged batch offsets decrease at %d: %d < %d", i, b.Offsets[i], b.Offsets[i-1])
		}
	}
	if int(b.Offsets[len(b.Offsets)-1]) != len(b.Flat) {
		return fmt.Errorf("ragged batch last offset %d does not match flat length %d",
			b.Offsets[len(b.Offsets)-1], len(b.Flat))
	}
	return nil
}

// Map applies f to every element independently, preserving row boundaries.
func Map[A, B any](in *Batch[A], f func(A) B) *Batch[B] {
	out := &Batch[B]{
		Flat:    make([]B, len(in.Flat)),
		Offsets: make([]int32, len(in.Offsets)),
	}
	copy(out.Offsets, in.Offsets)
	for i, v := range in.Flat {
		out.Flat[i] = f(v)
	}
	return out
}

// FlatMap applies f producing zero or more outputs per element. Splitters use
// this: one input span fans out into its sub-spans within the same row.
func FlatMap[A, B any](in *Batch[A], f func(A) []B) *Batch[B] {
	out := New[B]()
	out.Flat = make([]B, 0, len(in.Flat))
	for i := 0; i < in.NumRows(); i++ {
		for _, v := range in.Row(i) {
			out.Flat = append(out.Flat, f(v)...)
		}
		out.Offsets = append(out.Offsets, int32(len(out.Flat)))
	}
	return out
}

// MapRows applies f to whole rows at a time. Encoders use this to flatten a
// row of spans into a row of token ids.
func MapRows[A, B any](in *Batch[A], f func([]A) []B) *Batch[B] {
	out := New[B]()
	for i := 0; i < in.NumRows(); i++ {
		out.AppendRow(f(in.Row(i)))
	}
	return out
}
