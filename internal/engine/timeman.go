package engine

import (
	"math"
	"sync/atomic"
	"time"

	"stella/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// defaultMoveOverhead is the assumed round-trip cost (GUI/OS scheduling,
// network transport) subtracted from the classical time-control formula, as
// milliseconds of the mtg-scaled budget.
const defaultMoveOverhead = 10 * time.Millisecond

// TimeManager computes per-move optimal/maximum time budgets and owns the
// cooperative stop flag polled by the searcher.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time

	nodeLimit uint64
	hasNodes  bool
	forceStop atomic.Bool

	moveOverhead time.Duration
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{moveOverhead: defaultMoveOverhead}
}

// SetMoveOverhead adjusts the assumed per-move scheduling overhead, as set
// by a UCI "setoption name MoveOverhead" command.
func (tm *TimeManager) SetMoveOverhead(d time.Duration) {
	if d < 0 {
		d = 0
	}
	tm.moveOverhead = d
}

// Init initializes the time manager for a new search. ply is the current
// game ply (half-move number).
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.forceStop.Store(false)
	tm.hasNodes = limits.Nodes > 0
	tm.nodeLimit = limits.Nodes

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	if limits.Infinite || limits.Time[us] == 0 {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	timeMS := float64(limits.Time[us].Milliseconds())
	incMS := float64(limits.Inc[us].Milliseconds())

	overhead := float64(tm.moveOverhead.Milliseconds())
	if incMS > 0 {
		overhead = 0.0
	}

	mtg := limits.MovesToGo
	known := mtg > 0
	if known {
		if mtg > 50 {
			mtg = 50
		}
	} else {
		mtg = 50
		// Low-time, low-increment games can't afford to plan for 50 more
		// moves: shorten the assumed horizon so the optimum doesn't starve.
		if incMS == 0 && timeMS < 10000 {
			mtg = 20
		}
	}

	timeLeft := timeMS + incMS*float64(mtg) - overhead*float64(mtg)
	if timeLeft < 1 {
		timeLeft = 1
	}

	var optimalScale, maxScale float64
	if known {
		optimalScale = math.Min(float64(ply)/500.0+0.5/float64(mtg), 0.9*timeMS/timeLeft)
		maxScale = math.Min(6.0, 1.5+0.1*float64(mtg))
	} else {
		logTime := math.Log10(timeLeft / 1000.0)
		optimalScale = math.Min(0.01+math.Sqrt(float64(ply))*0.0039, 0.2*timeMS/timeLeft)
		maxScale = math.Min(6.0, 3.5+3*logTime+float64(ply)/10.0)
	}
	if optimalScale < 0 {
		optimalScale = 0
	}
	if maxScale < 1 {
		maxScale = 1
	}

	optimal := timeLeft * optimalScale
	maxFromRemaining := 0.7*timeMS - overhead
	maxFromScale := maxScale * optimal
	maxTime := math.Min(maxFromRemaining, maxFromScale)
	if maxTime < optimal {
		maxTime = optimal
	}

	tm.optimumTime = time.Duration(optimal) * time.Millisecond
	tm.maximumTime = time.Duration(maxTime) * time.Millisecond

	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// CanContinue reports whether the search may start or continue another
// unit of work: false once the maximum budget, a node limit, or an explicit
// Stop() has been reached.
func (tm *TimeManager) CanContinue(nodes uint64) bool {
	if tm.forceStop.Load() {
		return false
	}
	if tm.hasNodes && nodes >= tm.nodeLimit {
		return false
	}
	return tm.Elapsed() < tm.maximumTime
}

// Stop requests cooperative termination; observed at the searcher's next
// poll.
func (tm *TimeManager) Stop() {
	tm.forceStop.Store(true)
}

// Stopped reports whether Stop has been called.
func (tm *TimeManager) Stopped() bool {
	return tm.forceStop.Load()
}

// ShouldStop returns true if we should stop searching.
func (tm *TimeManager) ShouldStop() bool {
	return tm.forceStop.Load() || tm.Elapsed() >= tm.maximumTime
}

// PastOptimum returns true if we've exceeded the optimum time.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// AdjustForStability adjusts time allocation based on best move stability.
// If the best move hasn't changed for several depths, we can stop earlier.
// stability: number of consecutive depths with same best move
func (tm *TimeManager) AdjustForStability(stability int) {
	switch {
	case stability >= 6:
		tm.optimumTime = tm.optimumTime * 40 / 100
	case stability >= 4:
		tm.optimumTime = tm.optimumTime * 60 / 100
	case stability >= 2:
		tm.optimumTime = tm.optimumTime * 80 / 100
	}
}

// AdjustForInstability increases time when best move keeps changing.
// changes: number of best move changes in recent depths
func (tm *TimeManager) AdjustForInstability(changes int) {
	switch {
	case changes >= 4:
		tm.optimumTime = tm.optimumTime * 200 / 100
	case changes >= 2:
		tm.optimumTime = tm.optimumTime * 150 / 100
	default:
		return
	}
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}
