package nnue

import (
	"testing"

	"stella/internal/board"
)

func fillWeights() *Weights {
	w := &Weights{}
	for i := 0; i < InputDim; i++ {
		for h := 0; h < HiddenDim; h++ {
			w.L0[i][h] = int16((i*31 + h*17) % 401 - 200)
		}
	}
	for h := 0; h < HiddenDim; h++ {
		w.L0Bias[h] = int16((h * 13) % 101 - 50)
	}
	for i := range w.L1 {
		w.L1[i] = int16((i*7)%201 - 100)
	}
	w.L1Bias = 37
	return w
}

func TestFeatureIndexInBounds(t *testing.T) {
	for _, perspective := range []board.Color{board.White, board.Black} {
		for sq := board.A1; sq <= board.H8; sq++ {
			for pt := board.Pawn; pt <= board.King; pt++ {
				for _, col := range []board.Color{board.White, board.Black} {
					pc := board.NewPiece(pt, col)
					for kingSq := board.A1; kingSq <= board.H8; kingSq++ {
						idx := featureIndex(perspective, sq, pc, kingSq)
						if idx < 0 || idx >= InputDim {
							t.Fatalf("featureIndex out of bounds: %d (perspective=%v sq=%v pc=%v kingSq=%v)", idx, perspective, sq, pc, kingSq)
						}
					}
				}
			}
		}
	}
}

func TestKingBucketSymmetricAcrossCenterFile(t *testing.T) {
	// a1 (file 0) and h1 (file 7) are bilaterally symmetric and must land in
	// the same bucket.
	b1 := kingBucket(board.White, board.A1)
	b2 := kingBucket(board.White, board.H1)
	if b1 != b2 {
		t.Errorf("kingBucket(a1)=%d, kingBucket(h1)=%d, want equal", b1, b2)
	}

	b3 := kingBucket(board.White, board.D4)
	b4 := kingBucket(board.White, board.E4)
	if b3 != b4 {
		t.Errorf("kingBucket(d4)=%d, kingBucket(e4)=%d, want equal", b3, b4)
	}
}

func TestKingBucketRange(t *testing.T) {
	for sq := board.A1; sq <= board.H8; sq++ {
		b := kingBucket(board.White, sq)
		if b < 0 || b >= KingBuckets {
			t.Errorf("kingBucket(%v) = %d, out of [0,%d)", sq, b, KingBuckets)
		}
	}
}

func TestOrientFlipsOnlyForBlack(t *testing.T) {
	if orient(board.White, board.E4) != board.E4 {
		t.Errorf("orient(White, e4) should be identity")
	}
	if orient(board.Black, board.E4) == board.E4 {
		t.Errorf("orient(Black, e4) should differ from e4")
	}
	// double flip returns to the original square.
	flipped := orient(board.Black, board.E4)
	if orient(board.Black, flipped) != board.E4 {
		t.Errorf("orient should be its own inverse")
	}
}

func TestEvaluateFreshWithZeroWeightsIsBiasOnly(t *testing.T) {
	w := &Weights{L1Bias: 64}
	s := NewState(w)
	pos := board.NewPosition()
	got := s.EvaluateFresh(pos)
	if got != 0 {
		t.Errorf("zero L0/L1 weights with a 64/4096 bias should round to 0, got %d", got)
	}
}

func TestRefreshCacheHitReturnsIdenticalValues(t *testing.T) {
	w := fillWeights()
	s := NewState(w)
	pos := board.NewPosition()

	var acc1, acc2 Accumulator
	s.Refresh(&acc1, pos, board.White)
	s.Refresh(&acc2, pos, board.White)

	if acc1.values[board.White] != acc2.values[board.White] {
		t.Errorf("two fresh refreshes of the same position should agree exactly")
	}
}

// TestIncrementalAccumulatorMatchesFreshRefresh plays a short, fixed sequence of legal opening moves,
// maintaining the accumulator chain incrementally via ApplyMove, and checks
// after each move that the chain matches an independent RefreshBoth.
func TestIncrementalAccumulatorMatchesFreshRefresh(t *testing.T) {
	w := fillWeights()
	s := NewState(w)
	pos := board.NewPosition()

	moves := []board.Move{
		board.NewMove(board.E2, board.E4),
		board.NewMove(board.E7, board.E5),
		board.NewMove(board.G1, board.F3),
		board.NewMove(board.B8, board.C6),
		board.NewMove(board.F1, board.B5), // Ruy Lopez
	}

	var chain [6]Accumulator
	s.RefreshBoth(&chain[0], pos)

	for i, m := range moves {
		mover := pos.PieceAt(m.From())
		var captured board.Piece
		if m.IsEnPassant() {
			captured = board.NewPiece(board.Pawn, pos.SideToMove.Other())
		} else {
			captured = pos.PieceAt(m.To())
		}

		undo := pos.MakeMove(m)
		if !undo.Valid {
			t.Fatalf("move %d (%s) was not legal in this sequence", i, m.String())
		}
		s.ApplyMove(&chain[i], &chain[i+1], pos, m, mover, captured)

		var fresh Accumulator
		s.RefreshBoth(&fresh, pos)

		for _, c := range []board.Color{board.White, board.Black} {
			if chain[i+1].values[c] != fresh.values[c] {
				t.Fatalf("after move %d (%s), incremental accumulator for %v diverged from fresh refresh", i, m.String(), c)
			}
		}

		wantEval := s.Predict(&fresh, pos.SideToMove)
		gotEval := s.Predict(&chain[i+1], pos.SideToMove)
		if wantEval != gotEval {
			t.Fatalf("after move %d (%s), Predict on incremental chain (%d) != fresh (%d)", i, m.String(), gotEval, wantEval)
		}
	}
}

func TestCastlingUpdatesBothKingAndRookFeatures(t *testing.T) {
	w := fillWeights()
	s := NewState(w)
	pos, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	var before Accumulator
	s.RefreshBoth(&before, pos)

	castle := board.NewCastling(board.E1, board.H1) // king-captures-rook encoding
	mover := pos.PieceAt(castle.From())
	undo := pos.MakeMove(castle)
	if !undo.Valid {
		t.Fatal("kingside castle should be legal")
	}

	var after Accumulator
	s.ApplyMove(&before, &after, pos, castle, mover, board.NoPiece)

	var fresh Accumulator
	s.RefreshBoth(&fresh, pos)

	for _, c := range []board.Color{board.White, board.Black} {
		if after.values[c] != fresh.values[c] {
			t.Errorf("castling: incremental accumulator for %v diverged from fresh refresh", c)
		}
	}
}
