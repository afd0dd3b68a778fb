package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stella/internal/board"
	"stella/internal/history"
	"stella/internal/nnue"
)

// SearchInfo is one iterative-deepening progress report.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
}

// SearchLimits specifies constraints on a single search, in the vocabulary
// a UCI front end would hand down from a "go" command.
type SearchLimits struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	WhiteTime time.Duration
	BlackTime time.Duration
	WhiteInc  time.Duration
	BlackInc  time.Duration
	MovesToGo int
	Infinite  bool
}

func (l SearchLimits) toUCI() UCILimits {
	return UCILimits{
		Time:      [2]time.Duration{l.WhiteTime, l.BlackTime},
		Inc:       [2]time.Duration{l.WhiteInc, l.BlackInc},
		MovesToGo: l.MovesToGo,
		MoveTime:  l.MoveTime,
		Depth:     l.Depth,
		Nodes:     l.Nodes,
		Infinite:  l.Infinite,
	}
}

// Difficulty is a coarse search-strength preset for non-UCI callers (e.g. a
// GUI "play against the computer" slider) that don't want to speak in raw
// time/depth limits.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 5, MoveTime: 2 * time.Second},
	Hard:   {Depth: 7, MoveTime: 5 * time.Second},
}

// Engine is the top-level search driver: it owns the shared transposition
// table and network weights, and fans the position out across a fixed pool
// of Lazy-SMP worker threads for each search.
type Engine struct {
	tt      *TranspositionTable
	weights *nnue.Weights
	tm      *TimeManager
	stop    atomic.Bool

	threads int
	workers []*Worker

	difficulty Difficulty

	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with a transposition table sized to ttSizeMB
// and one worker per available CPU (minus the one running the UI/protocol
// loop). weights may be nil to fall back to material-only evaluation.
func NewEngine(ttSizeMB int, weights *nnue.Weights) *Engine {
	threads := runtime.GOMAXPROCS(0) - 1
	if threads < 1 {
		threads = 1
	}
	e := &Engine{
		tt:         NewTranspositionTable(ttSizeMB),
		weights:    weights,
		tm:         NewTimeManager(),
		threads:    threads,
		difficulty: Medium,
	}
	e.rebuildWorkers()
	return e
}

// SetThreads resizes the worker pool ahead of the next search.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.threads = n
	e.rebuildWorkers()
}

func (e *Engine) rebuildWorkers() {
	e.workers = make([]*Worker, e.threads)
	for i := range e.workers {
		e.workers[i] = NewWorker(i, e.tt, e.weights, &e.stop)
	}
}

func (e *Engine) SetDifficulty(d Difficulty) { e.difficulty = d }

// SetHashSize resizes the shared transposition table, as with a UCI
// "setoption name Hash" command. The caller must ensure no search is in
// flight; resizing concurrently with probes is not safe.
func (e *Engine) SetHashSize(mb int) {
	e.tt.Resize(mb)
}

// SetMoveOverhead adjusts the time manager's assumed per-move scheduling
// overhead, as with a UCI "setoption name MoveOverhead" command.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.tm.SetMoveOverhead(d)
}

// Search finds the best move using the engine's current difficulty preset.
func (e *Engine) Search(pos *board.Position) board.Move {
	return e.SearchWithLimits(pos, DifficultySettings[e.difficulty])
}

// SearchWithLimits runs the Lazy-SMP search to completion (stopped by the
// limits or by Stop) and returns the best move found.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.stop.Store(false)
	e.tt.NewSearch()

	ply := 2*(pos.FullMoveNumber-1) + int(pos.SideToMove)
	e.tm.Init(limits.toUCI(), pos.SideToMove, ply)

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	start := time.Now()
	for _, w := range e.workers {
		w.Reset()
		w.InitSearch(pos)
	}

	var bestMove board.Move
	var bestScore int
	stability := 0
	changes := 0
	prevBest := board.NoMove

	for depth := 1; depth <= maxDepth; depth++ {
		if !e.tm.CanContinue(e.totalNodes()) {
			break
		}

		move, score, ok := e.searchDepth(depth, bestScore, bestMove != board.NoMove)
		if !ok {
			break
		}

		if move != board.NoMove {
			if move == prevBest {
				stability++
				changes = 0
			} else {
				changes++
				stability = 0
			}
			prevBest = move
			bestMove = move
			bestScore = score
		}

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				SelDepth: e.workers[0].SelDepth(),
				Score:    bestScore,
				Nodes:    e.totalNodes(),
				Time:     time.Since(start),
				PV:       e.workers[0].PV(),
				HashFull: e.tt.HashFull(),
			})
		}

		if abs(bestScore) >= MateScore-MaxPly {
			break
		}

		e.tm.AdjustForStability(stability)
		e.tm.AdjustForInstability(changes)
		if e.tm.PastOptimum() {
			break
		}
	}

	return bestMove
}

// searchDepth runs one iterative-deepening iteration across every worker
// concurrently: worker 0 drives the aspiration window and is the one whose
// PV/score is reported; the remaining workers search the same depth from
// different angles (no aspiration window) purely to diversify what they
// leave behind in the shared transposition table.
func (e *Engine) searchDepth(depth, prevScore int, haveAspirationBase bool) (board.Move, int, bool) {
	g, ctx := errgroup.WithContext(context.Background())
	_ = ctx

	results := make([]struct {
		move  board.Move
		score int
	}, len(e.workers))

	for i, w := range e.workers {
		i, w := i, w
		g.Go(func() error {
			if i == 0 {
				move, score := e.searchRootAspiration(w, depth, prevScore, haveAspirationBase)
				results[i].move, results[i].score = move, score
				return nil
			}
			helperDepth := depth
			move, score := w.SearchRoot(helperDepth, -Infinity, Infinity)
			results[i].move, results[i].score = move, score
			return nil
		})
	}
	_ = g.Wait()

	if e.workers[0].stopped() && depth > 1 {
		return board.NoMove, 0, false
	}
	return results[0].move, results[0].score, true
}

// searchRootAspiration runs worker 0's search at depth with a narrow window
// of half-width delta = 20 + avg^2/10000 around the previous iteration's
// score (from depth 5 on), widening the failed side and growing delta by
// half on each fail until the true score is bracketed.
func (e *Engine) searchRootAspiration(w *Worker, depth, prevScore int, haveBase bool) (board.Move, int) {
	if depth < 5 || !haveBase {
		return w.SearchRoot(depth, -Infinity, Infinity)
	}

	avg := prevScore
	delta := 20 + avg*avg/10000
	alpha := max(-Infinity, avg-delta)
	beta := min(Infinity, avg+delta)

	for {
		move, score := w.SearchRoot(depth, alpha, beta)
		if w.stopped() {
			return move, score
		}
		if score <= alpha {
			alpha = max(-Infinity, score-delta)
			delta += delta / 2
		} else if score >= beta {
			beta = min(Infinity, score+delta)
			delta += delta / 2
		} else {
			return move, score
		}
		if alpha <= -Infinity && beta >= Infinity {
			return w.SearchRoot(depth, -Infinity, Infinity)
		}
	}
}

// Nodes returns the total node count across every worker for the most
// recently run (or in-progress) search.
func (e *Engine) Nodes() uint64 {
	return e.totalNodes()
}

func (e *Engine) totalNodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// Stop requests cooperative termination of the in-progress search.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.tm.Stop()
}

// Clear resets the transposition table and every worker's move-ordering
// history, as on a UCI "ucinewgame".
func (e *Engine) Clear() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.Reset()
		w.hist = history.New()
	}
}

// Perft counts leaf nodes at depth, for move generator verification.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		if undo.Valid {
			nodes += e.Perft(pos, depth-1)
		}
		pos.UnmakeMove(move, undo)
	}
	return nodes
}

// Evaluate returns the static evaluation of pos from the side to move's
// perspective, with no search.
func (e *Engine) Evaluate(pos *board.Position) int {
	if e.weights == nil {
		score := pos.Material()
		if pos.SideToMove == board.Black {
			score = -score
		}
		return score
	}
	return nnue.NewState(e.weights).EvaluateFresh(pos)
}

// ScoreToString renders score as either a mate count or a pawns-and-hundredths
// figure, the way a UCI "info score" line's human-readable sibling would.
func ScoreToString(score int) string {
	if score > MateScore-MaxPly {
		return fmt.Sprintf("Mate in %d", (MateScore-score+1)/2)
	}
	if score < -MateScore+MaxPly {
		return fmt.Sprintf("Mated in %d", (MateScore+score+1)/2)
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
