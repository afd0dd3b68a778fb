package nnue

import "stella/internal/board"

// EvaluateFresh computes a position's evaluation from a cold start, with no
// accumulator history to incrementally update from. Used for the search
// root and anywhere else an accumulator chain isn't being maintained.
func (s *State) EvaluateFresh(pos *board.Position) int {
	var acc Accumulator
	s.RefreshBoth(&acc, pos)
	return s.Predict(&acc, pos.SideToMove)
}
