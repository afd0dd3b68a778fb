package engine

import (
	"testing"
	"time"

	"stella/internal/board"
)

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, nil)
	eng.SetDifficulty(Easy)

	move := eng.Search(pos)
	if move == board.NoMove {
		t.Error("Search returned NoMove for starting position")
	}
	t.Logf("Best move: %s", move.String())
}

func TestSearchFindsMateInOne(t *testing.T) {
	// White to play Qh5#... use a simpler forced mate: back-rank mate.
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	eng := NewEngine(16, nil)
	eng.SetThreads(1)

	move := eng.SearchWithLimits(pos, SearchLimits{Depth: 6, MoveTime: time.Second})
	if move == board.NoMove {
		t.Fatal("expected a move")
	}

	undo := pos.MakeMove(move)
	if !undo.Valid {
		t.Fatalf("engine returned illegal move %s", move.UCIString(pos))
	}
	if !pos.IsCheckmate() {
		t.Errorf("expected mate after %s, got a non-mating position", move.UCIString(pos))
	}
}

func TestSearchRespectsDepthLimit(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, nil)
	eng.SetThreads(1)

	var lastDepth int
	eng.OnInfo = func(info SearchInfo) { lastDepth = info.Depth }
	eng.SearchWithLimits(pos, SearchLimits{Depth: 3, MoveTime: 5 * time.Second})

	if lastDepth > 3 {
		t.Errorf("search exceeded requested depth: got %d", lastDepth)
	}
}

func TestPerftStartingPosition(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(1, nil)

	cases := []struct {
		depth int
		want  uint64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
	}
	for _, c := range cases {
		got := eng.Perft(pos, c.depth)
		if got != c.want {
			t.Errorf("perft(%d) = %d, want %d", c.depth, got, c.want)
		}
	}
}

func TestEvaluateSymmetric(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(1, nil)
	score := eng.Evaluate(pos)
	if score != 0 {
		t.Errorf("expected a balanced starting position to evaluate to 0 material, got %d", score)
	}
}

func TestScoreToString(t *testing.T) {
	if got := ScoreToString(150); got != "1.50" {
		t.Errorf("ScoreToString(150) = %q, want %q", got, "1.50")
	}
	if got := ScoreToString(-50); got != "-0.50" {
		t.Errorf("ScoreToString(-50) = %q, want %q", got, "-0.50")
	}
	if got := ScoreToString(MateScore - 3); got == "" {
		t.Error("expected a mate-in-N string")
	}
}

func TestSetHashSizeResizesTable(t *testing.T) {
	eng := NewEngine(1, nil)
	before := len(eng.tt.entries)

	eng.SetHashSize(4)
	after := len(eng.tt.entries)

	if after <= before {
		t.Errorf("expected a larger table after SetHashSize(4), got %d entries (was %d)", after, before)
	}
}

func TestSetMoveOverheadAffectsTimeBudget(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(1, nil)

	limits := SearchLimits{WhiteTime: 2 * time.Second, BlackTime: 2 * time.Second}
	eng.tm.Init(limits.toUCI(), pos.SideToMove, 0)
	withoutOverhead := eng.tm.MaximumTime()

	eng.SetMoveOverhead(500 * time.Millisecond)
	eng.tm.Init(limits.toUCI(), pos.SideToMove, 0)
	withOverhead := eng.tm.MaximumTime()

	if withOverhead >= withoutOverhead {
		t.Errorf("expected a larger move overhead to shrink the time budget: got %s, want less than %s", withOverhead, withoutOverhead)
	}
}

func TestStopTerminatesSearch(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, nil)

	done := make(chan board.Move, 1)
	go func() {
		done <- eng.SearchWithLimits(pos, SearchLimits{Infinite: true})
	}()

	time.Sleep(20 * time.Millisecond)
	eng.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not stop within 2s of Stop()")
	}
}
