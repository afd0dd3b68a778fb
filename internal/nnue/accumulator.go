package nnue

import "stella/internal/board"

// Accumulator holds both perspectives' 512-wide hidden activations for one
// ply. computed[c] is false when the value must be rebuilt from a refresh
// or from the previous ply's accumulator plus a delta before it can be
// read.
type Accumulator struct {
	values   [2][HiddenDim]int16
	computed [2]bool
	kingSq   [2]board.Square
}

// refreshSlot returns the (king-bucket, king-half) index for perspective c's
// king sitting on kingSq, into the 32-entry [16 buckets x 2 halves] cache.
func refreshSlot(c board.Color, kingSq board.Square) int {
	half := 0
	if kingSideFiles(kingSq) {
		half = 1
	}
	return kingBucket(c, kingSq)*2 + half
}

// refreshEntry is one cached, fully-materialized accumulator for a given
// (perspective, king-bucket, king-half) slot, together with the piece
// placement it was computed from so a later refresh for the same slot can
// tell whether the cache is still valid.
type refreshEntry struct {
	values [HiddenDim]int16
	pieces [12]board.Bitboard
	valid  bool
}

// State owns the per-color refresh cache and provides the entry points the
// searcher calls when making, unmaking, or evaluating a position: Refresh
// (full rebuild from board state, used at the root and on a king-bucket
// crossing) and ApplyMove/UnapplyMove (incremental delta, used for every
// other move).
type State struct {
	w       *Weights
	refresh [2][32]refreshEntry
}

// NewState creates an evaluator state bound to a fixed weight set.
func NewState(w *Weights) *State {
	return &State{w: w}
}

// Refresh fully recomputes acc's perspective-c accumulator from pos's piece
// placement, caching the result in the (bucket, half) slot for pos's own
// king square so a later position sharing that slot can reuse it verbatim.
func (s *State) Refresh(acc *Accumulator, pos *board.Position, c board.Color) {
	kingSq := pos.KingSquare[c]
	slot := refreshSlot(c, kingSq)
	entry := &s.refresh[c][slot]

	var pieces [12]board.Bitboard
	for pt := board.Pawn; pt <= board.King; pt++ {
		pieces[int(pt)] = pos.Pieces[board.White][pt]
		pieces[int(pt)+6] = pos.Pieces[board.Black][pt]
	}

	if entry.valid && entry.pieces == pieces {
		acc.values[c] = entry.values
		acc.computed[c] = true
		acc.kingSq[c] = kingSq
		return
	}

	values := s.w.L0Bias
	for pt := board.Pawn; pt <= board.King; pt++ {
		for color := board.White; color <= board.Black; color++ {
			bb := pos.Pieces[color][pt]
			for bb != 0 {
				sq := bb.LSB()
				bb &= bb - 1
				pc := board.NewPiece(pt, color)
				idx := featureIndex(c, sq, pc, kingSq)
				row := &s.w.L0[idx]
				for i := 0; i < HiddenDim; i++ {
					values[i] += row[i]
				}
			}
		}
	}

	entry.values = values
	entry.pieces = pieces
	entry.valid = true

	acc.values[c] = values
	acc.computed[c] = true
	acc.kingSq[c] = kingSq
}

// RefreshBoth rebuilds both perspectives from scratch, used when seeding a
// search root.
func (s *State) RefreshBoth(acc *Accumulator, pos *board.Position) {
	s.Refresh(acc, pos, board.White)
	s.Refresh(acc, pos, board.Black)
}

func (s *State) addFeature(acc *Accumulator, c board.Color, sq board.Square, pc board.Piece, kingSq board.Square) {
	idx := featureIndex(c, sq, pc, kingSq)
	row := &s.w.L0[idx]
	dst := &acc.values[c]
	for i := 0; i < HiddenDim; i++ {
		dst[i] += row[i]
	}
}

func (s *State) removeFeature(acc *Accumulator, c board.Color, sq board.Square, pc board.Piece, kingSq board.Square) {
	idx := featureIndex(c, sq, pc, kingSq)
	row := &s.w.L0[idx]
	dst := &acc.values[c]
	for i := 0; i < HiddenDim; i++ {
		dst[i] -= row[i]
	}
}

// ApplyMove updates prev (the accumulator before the move) into next (the
// accumulator to populate for after the move), for a move made by mover on
// pos which has already had MakeMove applied. captured is the piece taken
// (board.NoPiece if none); for en passant it is the captured pawn, not the
// piece on the destination square.
//
// A king move that crosses into a different (bucket, half) slot forces a
// full Refresh of that perspective, since every other piece's feature index
// for that perspective depends on the king's square.
func (s *State) ApplyMove(prev, next *Accumulator, pos *board.Position, m board.Move, mover board.Piece, captured board.Piece) {
	from, to := m.From(), m.To()
	us := mover.Color()
	them := us.Other()

	for _, c := range [2]board.Color{board.White, board.Black} {
		if mover.Type() == board.King && mover.Color() == c {
			// perspective c's own king moved: handled by full refresh below.
			continue
		}
		next.values[c] = prev.values[c]
		next.computed[c] = prev.computed[c]
		next.kingSq[c] = prev.kingSq[c]
		kingSq := next.kingSq[c]

		if m.IsCastling() {
			kingFrom, kingTo, rookFrom, rookTo := castlingSquares(us, from, to)
			s.removeFeature(next, c, kingFrom, board.NewPiece(board.King, us), kingSq)
			s.removeFeature(next, c, rookFrom, board.NewPiece(board.Rook, us), kingSq)
			s.addFeature(next, c, kingTo, board.NewPiece(board.King, us), kingSq)
			s.addFeature(next, c, rookTo, board.NewPiece(board.Rook, us), kingSq)
			continue
		}

		if m.IsEnPassant() {
			capSq := to
			if us == board.White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
			s.removeFeature(next, c, capSq, board.NewPiece(board.Pawn, them), kingSq)
		} else if captured != board.NoPiece {
			s.removeFeature(next, c, to, captured, kingSq)
		}

		s.removeFeature(next, c, from, mover, kingSq)
		placed := mover
		if m.IsPromotion() {
			placed = board.NewPiece(m.Promotion(), us)
		}
		s.addFeature(next, c, to, placed, kingSq)
	}

	if mover.Type() == board.King {
		c := mover.Color()
		newKingSq := pos.KingSquare[c]
		if refreshSlot(c, newKingSq) != refreshSlot(c, prev.kingSq[c]) {
			s.Refresh(next, pos, c)
		} else {
			next.values[c] = prev.values[c]
			next.computed[c] = prev.computed[c]
			s.removeFeature(next, c, from, mover, prev.kingSq[c])
			s.addFeature(next, c, to, mover, newKingSq)
			next.kingSq[c] = newKingSq
		}
	}
}

func castlingSquares(us board.Color, from, to board.Square) (kingFrom, kingTo, rookFrom, rookTo board.Square) {
	kingSide := to > from
	if us == board.White {
		if kingSide {
			return from, board.G1, to, board.F1
		}
		return from, board.C1, to, board.D1
	}
	if kingSide {
		return from, board.G8, to, board.F8
	}
	return from, board.C8, to, board.D8
}
