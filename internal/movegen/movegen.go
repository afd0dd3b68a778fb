// Package movegen implements the staged, lazily-scored move cursor the
// searcher drives one move at a time during the main search and quiescence
// search, instead of generating and sorting the whole move list up front.
package movegen

import (
	"stella/internal/board"
	"stella/internal/history"
)

// Mode selects which family of moves the generator produces.
type Mode int

const (
	// PVSearch is the full staged pipeline used by the main search.
	PVSearch Mode = iota
	// QSearch yields captures and queen promotions only. As in every mode,
	// a side in check gets all legal evasions instead.
	QSearch
	// QSearchChecks yields every legal evasion while in check; out of check
	// it yields all captures (good SEE first, then bad) without quiets.
	QSearchChecks
	// Perft yields the legal move set unscored, in one shot.
	Perft
)

// stage names the generator's internal state machine position.
type stage int

const (
	stageTTMove stage = iota
	stageInitCaptures
	stageGoodCaptures
	stageKiller1
	stageKiller2
	stageInitQuiets
	stageGoodQuiets
	stageBadCaptures
	stageBadQuiets
	stageInitEvasions
	stageEvasions
	stageDone
)

// goodQuietThreshold: a quiet move's history score must exceed this to be
// ordered in GOOD_QUIETS rather than deferred to BAD_QUIETS.
const goodQuietThreshold = -10000

// goodCaptureBias is added to a capture's score once classified as SEE>=0,
// and to a quiet's score once reclassified as "good", purely to keep the
// buckets non-overlapping when scores are compared across stages.
const goodCaptureBias = 100000

type scoredMove struct {
	move  board.Move
	score int
}

// Generator is a stateful move cursor over a single position.
type Generator struct {
	pos  *board.Position
	hist *history.History

	mode    Mode
	us      board.Color
	ply     int
	inCheck bool

	ttMove      board.Move
	killer1     board.Move
	killer2     board.Move
	skipQuiets  bool
	stg         stage
	captures    []scoredMove
	badCaptures []scoredMove
	quiets      []scoredMove
	badQuiets   []scoredMove
	evasions    []scoredMove

	// Searched records every move yielded so far, so the searcher can
	// apply post-cutoff history penalties to the non-best siblings.
	Searched []board.Move
}

// New creates a generator for pos in the given mode. ttMove, killer1 and
// killer2 may be board.NoMove. ply is only consulted for PVSearch (killer
// lookup and continuation history); hist, when non-nil, also scores
// captures and evasions in every mode.
func New(pos *board.Position, hist *history.History, mode Mode, ply int, ttMove board.Move) *Generator {
	g := &Generator{
		pos:     pos,
		hist:    hist,
		mode:    mode,
		us:      pos.SideToMove,
		ply:     ply,
		inCheck: pos.InCheck(),
		ttMove:  ttMove,
	}
	if hist != nil && mode == PVSearch {
		g.killer1, g.killer2 = hist.Killers(g.us, ply)
		if g.killer1 == ttMove {
			g.killer1 = board.NoMove
		}
		if g.killer2 == ttMove || g.killer2 == g.killer1 {
			g.killer2 = board.NoMove
		}
	}
	g.stg = g.firstStage()
	return g
}

// isPseudoLegal reports whether m appears in pos's pseudo-legal move set,
// the check required before trusting a TT or killer move that was read back
// from storage rather than just generated.
func isPseudoLegal(pos *board.Position, m board.Move) bool {
	if m == board.NoMove || !m.IsOk() {
		return false
	}
	return pos.GeneratePseudoLegalMoves().Contains(m)
}

func (g *Generator) firstStage() stage {
	if g.mode == Perft {
		return stageInitCaptures // unused; Perft uses Legal() instead
	}
	if g.inCheck {
		return stageInitEvasions
	}
	if g.ttMove != board.NoMove {
		return stageTTMove
	}
	return stageInitCaptures
}

// Legal returns the full legal move list unscored, for perft.
func Legal(pos *board.Position) *board.MoveList {
	return pos.GenerateLegalMoves()
}

// SkipQuiets instructs the generator to stop yielding quiet moves, once the
// searcher has decided on move-count-based pruning for this node.
func (g *Generator) SkipQuiets() {
	g.skipQuiets = true
}

// Next returns the next move in ordering sequence, or board.NoMove when
// exhausted.
func (g *Generator) Next() board.Move {
	for {
		switch g.stg {
		case stageTTMove:
			g.stg = stageInitCaptures
			if isPseudoLegal(g.pos, g.ttMove) {
				return g.emit(g.ttMove)
			}

		case stageInitCaptures:
			g.generateCaptures()
			g.stg = stageGoodCaptures

		case stageGoodCaptures:
			if m, ok := g.nextFrom(&g.captures); ok {
				return g.emit(m)
			}
			g.stg = stageKiller1

		case stageKiller1:
			g.stg = stageKiller2
			if g.mode == PVSearch && !g.skipQuiets && g.killer1 != board.NoMove && isPseudoLegal(g.pos, g.killer1) {
				return g.emit(g.killer1)
			}

		case stageKiller2:
			g.stg = stageInitQuiets
			if g.mode == PVSearch && !g.skipQuiets && g.killer2 != board.NoMove && isPseudoLegal(g.pos, g.killer2) {
				return g.emit(g.killer2)
			}

		case stageInitQuiets:
			if !g.skipQuiets && g.mode == PVSearch {
				g.generateQuiets()
			}
			g.stg = stageGoodQuiets

		case stageGoodQuiets:
			if !g.skipQuiets {
				if m, ok := g.nextFrom(&g.quiets); ok {
					return g.emit(m)
				}
			}
			g.stg = stageBadCaptures

		case stageBadCaptures:
			if m, ok := g.nextFrom(&g.badCaptures); ok {
				return g.emit(m)
			}
			g.stg = stageBadQuiets

		case stageBadQuiets:
			if !g.skipQuiets {
				if m, ok := g.nextFrom(&g.badQuiets); ok {
					return g.emit(m)
				}
			}
			g.stg = stageDone

		case stageInitEvasions:
			g.generateEvasions()
			g.stg = stageEvasions

		case stageEvasions:
			if m, ok := g.nextFrom(&g.evasions); ok {
				return g.emit(m)
			}
			g.stg = stageDone

		case stageDone:
			return board.NoMove
		}
	}
}

func (g *Generator) emit(m board.Move) board.Move {
	g.Searched = append(g.Searched, m)
	return m
}

// nextFrom performs the linear select-max-then-swap "next best" pick over
// the remaining tail of bucket, skipping the already-yielded TT/killer
// moves.
func (g *Generator) nextFrom(bucket *[]scoredMove) (board.Move, bool) {
	list := *bucket
	for len(list) > 0 {
		best := 0
		for i := 1; i < len(list); i++ {
			if list[i].score > list[best].score {
				best = i
			}
		}
		m := list[best].move
		list[best] = list[len(list)-1]
		list = list[:len(list)-1]
		*bucket = list
		if m == g.ttMove || m == g.killer1 || m == g.killer2 {
			continue
		}
		return m, true
	}
	return board.NoMove, false
}

func (g *Generator) generateCaptures() {
	ml := g.pos.GenerateCaptures()
	g.captures = g.captures[:0]
	g.badCaptures = g.badCaptures[:0]
	if g.mode == QSearch {
		for i := 0; i < ml.Len(); i++ {
			m := ml.Get(i)
			if !m.IsPromotion() || m.Promotion() == board.Queen {
				g.captures = append(g.captures, scoredMove{m, g.captureScore(m)})
			}
		}
		return
	}
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		see := g.pos.See(m)
		score := g.captureScoreSEE(m, see)
		if see >= 0 {
			g.captures = append(g.captures, scoredMove{m, score})
		} else {
			g.badCaptures = append(g.badCaptures, scoredMove{m, score})
		}
	}
}

// captureScore implements spec's capture score without a precomputed SEE
// (used in qsearch, where SEE classification into good/bad isn't needed).
func (g *Generator) captureScore(m board.Move) int {
	return g.captureScoreSEE(m, g.pos.See(m))
}

func (g *Generator) captureScoreSEE(m board.Move, see int) int {
	score := see
	if see >= 0 {
		score += goodCaptureBias
	}
	if g.hist != nil {
		attacker := g.pos.PieceAt(m.From())
		var capturedType board.PieceType
		if m.IsEnPassant() {
			capturedType = board.Pawn
		} else if cap := g.pos.PieceAt(m.To()); cap != board.NoPiece {
			capturedType = cap.Type()
		}
		score += g.hist.Capture(attacker, m.To(), capturedType)
	}
	return score
}

func (g *Generator) generateQuiets() {
	legal := g.pos.GenerateLegalMoves()
	g.quiets = g.quiets[:0]
	g.badQuiets = g.badQuiets[:0]
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if !m.IsQuiet(g.pos) {
			continue
		}
		score := 0
		if g.hist != nil {
			score = g.hist.Butterfly(g.us, m) + g.hist.Continuation(g.ply, g.inCheck, g.pos.PieceAt(m.From()), m.To())
		}
		if score > goodQuietThreshold {
			g.quiets = append(g.quiets, scoredMove{m, score + goodCaptureBias})
		} else {
			g.badQuiets = append(g.badQuiets, scoredMove{m, score})
		}
	}
}

func (g *Generator) generateEvasions() {
	legal := g.pos.GenerateLegalMoves()
	g.evasions = g.evasions[:0]
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		score := 0
		if m.IsCapture(g.pos) {
			score = goodCaptureBias + g.pos.See(m)
		} else if g.hist != nil {
			score = g.hist.Butterfly(g.us, m)
		}
		g.evasions = append(g.evasions, scoredMove{m, score})
	}
}
