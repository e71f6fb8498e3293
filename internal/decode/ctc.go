package decode

import (
	"errors"
	"fmt"
	"strings"
)

// AutoBlank selects the dual-hypothesis blank fallback: the decoder runs once
// assuming blank index 0 and once assuming blank index V-1, and keeps the
// longer decode (ties favor the V-1 hypothesis). This is a workaround for an
// unknown vocabulary convention, not a correctness guarantee; configure the
// real blank index once the model's convention is confirmed.
const AutoBlank = -1

// ErrLogitsShape indicates a logits matrix that matches neither a T x V nor
// a 1 x T x V layout for the configured vocabulary.
var ErrLogitsShape = errors.New("unrecognized logits shape")

// GreedyDecoder performs per-timestep argmax CTC decoding: collapse repeats,
// drop blanks, map surviving indices to vocabulary tokens.
type GreedyDecoder struct {
	vocab      *Vocabulary
	blankIndex int
}

// NewGreedyDecoder creates a decoder. blankIndex may be AutoBlank.
func NewGreedyDecoder(vocab *Vocabulary, blankIndex int) (*GreedyDecoder, error) {
	if vocab == nil || vocab.Size() == 0 {
		return nil, ErrVocabularyUnavailable
	}

	if blankIndex != AutoBlank && (blankIndex < 0 || blankIndex >= vocab.Size()) {
		return nil, fmt.Errorf("blank index %d out of range for vocabulary of %d tokens", blankIndex, vocab.Size())
	}

	return &GreedyDecoder{vocab: vocab, blankIndex: blankIndex}, nil
}

// UnwrapBatch reduces a 1 x T x V batch to its single T x V element.
func UnwrapBatch(batch [][][]float64) ([][]float64, error) {
	if len(batch) != 1 {
		return nil, fmt.Errorf("%w: batch dimension must be 1, got %d", ErrLogitsShape, len(batch))
	}
	return batch[0], nil
}

// Decode produces raw text from a T x V logits matrix. Every row must have
// exactly V = vocabulary size scores.
func (d *GreedyDecoder) Decode(logits [][]float64) (string, error) {
	indices, err := d.DecodeIndices(logits)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, idx := range indices {
		sb.WriteString(d.vocab.Render(idx))
	}
	return sb.String(), nil
}

// DecodeIndices produces the collapsed, blank-free token index sequence from
// a T x V logits matrix.
func (d *GreedyDecoder) DecodeIndices(logits [][]float64) ([]int, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("%w: empty logits matrix", ErrLogitsShape)
	}

	v := d.vocab.Size()
	argmax := make([]int, len(logits))
	for t, row := range logits {
		if len(row) != v {
			return nil, fmt.Errorf("%w: timestep %d has %d scores, vocabulary has %d tokens", ErrLogitsShape, t, len(row), v)
		}
		argmax[t] = argmaxRow(row)
	}

	if d.blankIndex != AutoBlank {
		return collapse(argmax, d.blankIndex), nil
	}

	// Blank convention unknown: try both candidates, keep the longer decode.
	lowBlank := collapse(argmax, 0)
	highBlank := collapse(argmax, v-1)
	if len(lowBlank) > len(highBlank) {
		return lowBlank, nil
	}
	return highBlank, nil
}

// argmaxRow returns the index of the highest score, ties broken by lowest
// index (strictly-greater comparison while scanning).
func argmaxRow(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// collapse removes consecutive repeats, then drops the blank index.
func collapse(indices []int, blank int) []int {
	out := make([]int, 0, len(indices))
	prev := -1
	for _, idx := range indices {
		if idx != prev && idx != blank {
			out = append(out, idx)
		}
		prev = idx
	}
	return out
}
