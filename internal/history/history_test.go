package history

import (
	"testing"

	"stella/internal/board"
)

func TestBonusMalusFormulas(t *testing.T) {
	cases := []struct {
		depth     int
		wantBonus int
		wantMalus int
	}{
		{1, 50, 150},
		{2, 350, 500},
		{5, 1250, 1550},
		{10, 1500, 1700}, // both capped
	}
	for _, c := range cases {
		if got := Bonus(c.depth); got != c.wantBonus {
			t.Errorf("Bonus(%d) = %d, want %d", c.depth, got, c.wantBonus)
		}
		if got := Malus(c.depth); got != c.wantMalus {
			t.Errorf("Malus(%d) = %d, want %d", c.depth, got, c.wantMalus)
		}
	}
}

func TestKillerRotation(t *testing.T) {
	h := New()
	m1 := board.NewMove(board.E2, board.E4)
	m2 := board.NewMove(board.D2, board.D4)
	m3 := board.NewMove(board.G1, board.F3)

	h.setKiller(board.White, 0, m1)
	k0, k1 := h.Killers(board.White, 0)
	if k0 != m1 || k1 != board.NoMove {
		t.Fatalf("after one killer, got (%v, %v)", k0, k1)
	}

	h.setKiller(board.White, 0, m2)
	k0, k1 = h.Killers(board.White, 0)
	if k0 != m2 || k1 != m1 {
		t.Fatalf("after second killer, got (%v, %v), want (%v, %v)", k0, k1, m2, m1)
	}

	// re-inserting the same move must not shuffle it into slot 1.
	h.setKiller(board.White, 0, m2)
	k0, k1 = h.Killers(board.White, 0)
	if k0 != m2 || k1 != m1 {
		t.Fatalf("re-inserting existing killer changed order: got (%v, %v)", k0, k1)
	}

	h.setKiller(board.White, 0, m3)
	k0, k1 = h.Killers(board.White, 0)
	if k0 != m3 || k1 != m2 {
		t.Fatalf("after third killer, got (%v, %v), want (%v, %v)", k0, k1, m3, m2)
	}
}

func TestButterflyGravityStaysBounded(t *testing.T) {
	h := New()
	m := board.NewMove(board.E2, board.E4)
	for i := 0; i < 10000; i++ {
		h.updateButterfly(board.White, m, int32(Bonus(30)))
	}
	got := h.Butterfly(board.White, m)
	if got > ButterflyBound || got < -ButterflyBound {
		t.Errorf("butterfly entry escaped bound: %d (bound %d)", got, ButterflyBound)
	}
	// repeated positive reinforcement should push it close to the bound.
	if got < ButterflyBound*9/10 {
		t.Errorf("butterfly entry did not converge toward bound: %d", got)
	}
}

func TestGravityUpdatePenalizesOtherMoves(t *testing.T) {
	h := New()
	pos := board.NewPosition()
	best := board.NewMove(board.E2, board.E4)
	other := board.NewMove(board.D2, board.D4)

	h.UpdateQuiet(pos, board.White, 0, false, best, []board.Move{best, other}, 4)

	bestScore := h.Butterfly(board.White, best)
	otherScore := h.Butterfly(board.White, other)
	if bestScore <= 0 {
		t.Errorf("best move's butterfly score should be positive, got %d", bestScore)
	}
	if otherScore >= 0 {
		t.Errorf("non-best tried move's butterfly score should be negative, got %d", otherScore)
	}
}

func TestContinuationOffsetsSkipDeepAncestorsInCheck(t *testing.T) {
	h := New()
	pos := board.NewPosition()
	m := board.NewMove(board.G1, board.F3)

	h.updateContinuation(pos, 10, true, m, int32(Bonus(5)))
	piece := pos.PieceAt(m.From())

	// offsets 1,2 should be updated; 3,4,6 should not, while inCheck.
	for _, off := range []int{1, 2} {
		idx := 10 - off + 7
		if h.continuation[idx][piece][m.To()] == 0 {
			t.Errorf("expected continuation[%d] to be updated (offset %d)", idx, off)
		}
	}
	for _, off := range []int{3, 4, 6} {
		idx := 10 - off + 7
		if h.continuation[idx][piece][m.To()] != 0 {
			t.Errorf("continuation[%d] (offset %d) should be untouched while inCheck", idx, off)
		}
	}
}

func TestClearResetsKillersAndEvalNotStatTables(t *testing.T) {
	h := New()
	m := board.NewMove(board.E2, board.E4)
	h.setKiller(board.White, 3, m)
	h.SetEval(board.White, 3, 55)
	h.updateButterfly(board.White, m, 500)

	h.Clear()

	k0, k1 := h.Killers(board.White, 3)
	if k0 != board.NoMove || k1 != board.NoMove {
		t.Errorf("Clear did not reset killers: got (%v, %v)", k0, k1)
	}
	if v, ok := h.Eval(board.White, 3); ok && v != 0 {
		t.Errorf("Clear did not reset eval, got %d", v)
	}
	if h.Butterfly(board.White, m) == 0 {
		t.Errorf("Clear should not reset the butterfly table")
	}
}

func TestUpdateCaptureRewardsBestPenalizesOthers(t *testing.T) {
	h := New()
	pos, err := board.ParseFEN("4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	best := board.NewMove(board.E4, board.D5)

	h.UpdateCapture(pos, best, []board.Move{best}, 6)
	attacker := pos.PieceAt(best.From())
	score := h.Capture(attacker, best.To(), board.Pawn)
	if score <= 0 {
		t.Errorf("expected positive capture-history score for rewarded capture, got %d", score)
	}
}
