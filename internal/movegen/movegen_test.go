package movegen

import (
	"testing"

	"stella/internal/board"
	"stella/internal/history"
)

func drain(g *Generator) []board.Move {
	var out []board.Move
	for {
		m := g.Next()
		if m == board.NoMove {
			return out
		}
		out = append(out, m)
	}
}

func TestTTMoveIsYieldedFirst(t *testing.T) {
	pos := board.NewPosition()
	ttMove := board.NewMove(board.D2, board.D4)
	g := New(pos, nil, PVSearch, 0, ttMove)

	first := g.Next()
	if first != ttMove {
		t.Fatalf("expected TT move first, got %s", first.String())
	}
}

func TestGeneratorYieldsEveryLegalMoveExactlyOnce(t *testing.T) {
	pos := board.NewPosition()
	ttMove := board.NewMove(board.E2, board.E4)
	g := New(pos, history.New(), PVSearch, 0, ttMove)

	seen := drain(g)
	legal := pos.GenerateLegalMoves()

	if len(seen) != legal.Len() {
		t.Fatalf("generator yielded %d moves, position has %d legal moves", len(seen), legal.Len())
	}

	counts := map[board.Move]int{}
	for _, m := range seen {
		counts[m]++
	}
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if counts[m] != 1 {
			t.Errorf("legal move %s yielded %d times, want 1", m.String(), counts[m])
		}
	}
}

func TestQSearchModeExcludesQuietMoves(t *testing.T) {
	// The start position, with no captures available: QSearch mode
	// must not yield the (many) available quiet moves.
	pos := board.NewPosition()
	g := New(pos, history.New(), QSearch, 0, board.NoMove)

	seen := drain(g)
	for _, m := range seen {
		if m.IsQuiet(pos) {
			t.Errorf("QSearch mode yielded a quiet move: %s", m.String())
		}
	}
}

func TestQSearchYieldsAvailableCaptures(t *testing.T) {
	pos, err := board.ParseFEN("rnbqkbnr/ppp2ppp/8/3pp3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	g := New(pos, history.New(), QSearch, 0, board.NoMove)
	seen := drain(g)

	want := board.NewMove(board.E4, board.D5)
	found := false
	for _, m := range seen {
		if m == want {
			found = true
		}
		if !m.IsCapture(pos) {
			t.Errorf("QSearch mode yielded a non-capture: %s", m.String())
		}
	}
	if !found {
		t.Errorf("expected QSearch to yield the available capture exd5")
	}
}

func TestSkipQuietsSuppressesQuietStages(t *testing.T) {
	pos := board.NewPosition()
	g := New(pos, history.New(), PVSearch, 0, board.NoMove)
	g.SkipQuiets()

	seen := drain(g)
	for _, m := range seen {
		if m.IsQuiet(pos) {
			t.Errorf("SkipQuiets did not suppress quiet move %s", m.String())
		}
	}
}

func TestKillersAreSkippedWhenNotPseudoLegal(t *testing.T) {
	pos := board.NewPosition()
	h := history.New()
	// A killer move that isn't legal from the starting position (the a1
	// rook is blocked by its own pawn and cannot reach a8).
	bogusKiller := board.NewMove(board.A1, board.A8)
	h.UpdateQuiet(pos, board.White, 0, false, bogusKiller, []board.Move{bogusKiller}, 4)

	g := New(pos, h, PVSearch, 0, board.NoMove)
	seen := drain(g)

	for _, m := range seen {
		if m == bogusKiller && !isPseudoLegal(pos, bogusKiller) {
			t.Errorf("generator yielded a non-pseudo-legal killer move")
		}
	}
	legal := pos.GenerateLegalMoves()
	if len(seen) != legal.Len() {
		t.Errorf("bogus killer changed the yielded move count: got %d, want %d", len(seen), legal.Len())
	}
}

func TestEvasionsOnlyGeneratedWhenInCheck(t *testing.T) {
	pos, err := board.ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !pos.InCheck() {
		t.Fatal("test position should have White in check")
	}
	g := New(pos, history.New(), PVSearch, 0, board.NoMove)
	seen := drain(g)
	legal := pos.GenerateLegalMoves()
	if len(seen) != legal.Len() {
		t.Errorf("evasion generator yielded %d moves, want %d", len(seen), legal.Len())
	}
}
