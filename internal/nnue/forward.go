package nnue

import "stella/internal/board"

// reluMax and outputScale match the fixed-point convention: hidden
// activations are clipped to [0, 127] before the L1 dot product, and the
// final sum is divided by 32*128 to land back in centipawns.
const (
	reluMax     = 127
	outputScale = 32 * 128
)

// Predict returns the centipawn evaluation from stm's point of view, given
// a fully computed accumulator. It is bit-exact with Propagate given the
// same underlying board state: both read the same accumulator values and
// run the same L1 dot product, differing only in how that accumulator was
// obtained (a cold rebuild vs. an incremental chain of updates).
func (s *State) Predict(acc *Accumulator, stm board.Color) int {
	return s.propagate(acc, stm)
}

// Propagate is an alias of Predict kept for callers that think in terms of
// "propagate the current accumulator" rather than "predict this position",
// mirroring the two names used interchangeably in the literature.
func (s *State) Propagate(acc *Accumulator, stm board.Color) int {
	return s.propagate(acc, stm)
}

func (s *State) propagate(acc *Accumulator, stm board.Color) int {
	own := &acc.values[stm]
	opp := &acc.values[stm.Other()]

	sum := macClippedRelu(own[:], s.w.L1[:HiddenDim])
	sum += macClippedRelu(opp[:], s.w.L1[HiddenDim:])
	sum += int32(s.w.L1Bias)

	return int(sum / outputScale)
}

func clipped(v int16) int32 {
	x := int32(v)
	if x < 0 {
		return 0
	}
	if x > reluMax {
		return reluMax
	}
	return x
}
