package engine

import (
	"sync/atomic"

	"stella/internal/board"
	"stella/internal/history"
	"stella/internal/movegen"
	"stella/internal/nnue"
)

// Worker runs one Lazy-SMP search thread over its own position copy,
// history tables and accumulator stack, coordinating with its siblings only
// through the shared transposition table.
type Worker struct {
	id  int
	pos *board.Position

	hist        *history.History
	corrHistory *CorrectionHistory
	tt          *TranspositionTable

	nnue     *nnue.State
	accStack [MaxPly + 1]nnue.Accumulator

	undoStack [MaxPly]board.UndoInfo
	pv        PVTable

	nodes    atomic.Uint64
	seldepth int

	// skipNull suppresses null-move pruning for the duration of a
	// verification re-search, so the re-search can't itself be trusted on
	// a second unverified null-move cutoff.
	skipNull bool

	stopFlag *atomic.Bool
}

// NewWorker creates a Lazy-SMP search thread. nn may be nil, in which case
// Evaluate falls back to a flat material count; a real deployment always
// supplies a loaded network.
func NewWorker(id int, tt *TranspositionTable, nn *nnue.Weights, stopFlag *atomic.Bool) *Worker {
	w := &Worker{
		id:          id,
		hist:        history.New(),
		corrHistory: NewCorrectionHistory(),
		tt:          tt,
		stopFlag:    stopFlag,
	}
	if nn != nil {
		w.nnue = nnue.NewState(nn)
	}
	return w
}

// Reset clears per-search state ahead of a fresh iterative-deepening run,
// keeping the slower-moving history tables that carry signal across
// searches within the same game.
func (w *Worker) Reset() {
	w.nodes.Store(0)
	w.seldepth = 0
	w.hist.Clear()
}

// InitSearch binds a private copy of pos as the search root, seeding the
// accumulator stack. pos's own history stack (carried over from the game
// moves played to reach it) is what IsRepetition/HasGameCycled consult, so
// no separate repetition-tracking state is needed here.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()
	if w.nnue != nil {
		w.nnue.RefreshBoth(&w.accStack[0], w.pos)
	}
}

func (w *Worker) Nodes() uint64 { return w.nodes.Load() }
func (w *Worker) SelDepth() int { return w.seldepth }
func (w *Worker) PV() []board.Move { return w.pv.line() }

func (w *Worker) stopped() bool {
	return w.stopFlag != nil && w.stopFlag.Load()
}

// evaluate returns the static evaluation of the position at ply from the
// side to move's perspective.
func (w *Worker) evaluate(ply int) int {
	if w.nnue != nil {
		return w.nnue.Predict(&w.accStack[ply], w.pos.SideToMove)
	}
	score := w.pos.Material()
	if w.pos.SideToMove == board.Black {
		score = -score
	}
	return score
}

// makeMove applies move at ply, maintaining the NNUE accumulator chain and
// the position-hash history repetition uses. Returns false (with the
// position already unwound) if move turned out to be illegal.
func (w *Worker) makeMove(ply int, move board.Move) bool {
	mover := w.pos.PieceAt(move.From())
	var captured board.Piece
	if move.IsEnPassant() {
		captured = board.NewPiece(board.Pawn, w.pos.SideToMove.Other())
	} else {
		captured = w.pos.PieceAt(move.To())
	}

	w.undoStack[ply] = w.pos.MakeMove(move)
	if !w.undoStack[ply].Valid {
		w.pos.UnmakeMove(move, w.undoStack[ply])
		return false
	}
	if w.nnue != nil {
		w.nnue.ApplyMove(&w.accStack[ply], &w.accStack[ply+1], w.pos, move, mover, captured)
	}
	return true
}

func (w *Worker) unmakeMove(ply int, move board.Move) {
	w.pos.UnmakeMove(move, w.undoStack[ply])
}

func (w *Worker) isDraw(ply int) bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	return w.pos.IsRepetition()
}

// jitteredDrawScore nudges the draw score by one centipawn based on node
// count, so a search facing several equal drawn lines doesn't return a
// perfectly flat score that starves move ordering of a tiebreak signal.
func (w *Worker) jitteredDrawScore() int {
	if w.nodes.Load()&1 == 0 {
		return -1
	}
	return 1
}

// SearchRoot runs iterative widening at a fixed depth from alpha to beta,
// returning the best root move and its score. It assumes InitSearch has
// already been called for this search.
func (w *Worker) SearchRoot(depth, alpha, beta int) (board.Move, int) {
	w.tt.Prefetch(w.pos.Hash)
	score := w.negamax(depth, 0, alpha, beta, board.NoMove, board.NoMove)
	if w.pv.length[0] == 0 {
		moves := w.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			return moves.Get(0), score
		}
		return board.NoMove, score
	}
	return w.pv.moves[0][0], score
}

// negamax is the main alpha-beta search. excludedMove, when not
// board.NoMove, is skipped at the root of this call (the singular-extension
// verification search).
func (w *Worker) negamax(depth, ply int, alpha, beta int, prevMove, excludedMove board.Move) int {
	w.pv.length[ply] = ply

	if ply > w.seldepth {
		w.seldepth = ply
	}

	if ply >= MaxPly-1 {
		return w.evaluate(ply)
	}

	if ply > 0 {
		if w.isDraw(ply) {
			return w.jitteredDrawScore()
		}
		// Mate-distance pruning: no line through this node can beat a mate
		// already found closer to the root.
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply)
		if alpha >= beta {
			return alpha
		}
	}

	if w.nodes.Load()&2047 == 0 && w.stopped() {
		return 0
	}
	w.nodes.Add(1)

	if depth <= 0 {
		return w.quiescence(ply, 0, alpha, beta)
	}

	pvNode := beta-alpha > 1

	var ttMove board.Move
	ttPv := false
	ttEntry, found := w.tt.Probe(w.pos.Hash)
	if found && excludedMove == board.NoMove {
		ttMove = ttEntry.Move
		ttPv = ttEntry.PV()
		if ttMove != board.NoMove {
			piece := w.pos.PieceAt(ttMove.From())
			if piece == board.NoPiece || piece.Color() != w.pos.SideToMove {
				ttMove = board.NoMove
			}
		}
		if int(ttEntry.Depth) >= depth && !pvNode {
			score := ValueFromTT(int(ttEntry.Score), ply, w.pos.HalfMoveClock)
			switch ttEntry.Bound() {
			case TTExact:
				return score
			case TTLowerBound:
				if score >= beta {
					return score
				}
			case TTUpperBound:
				if score <= alpha {
					return score
				}
			}
		}
	}

	inCheck := w.pos.InCheck()

	// Internal iterative deepening: no TT move to seed ordering with, so
	// take a shallower look first.
	if depth >= 4 && ttMove == board.NoMove && excludedMove == board.NoMove {
		iidDepth := depth - 2
		if iidDepth < 1 {
			iidDepth = 1
		}
		w.negamax(iidDepth, ply, alpha, beta, prevMove, board.NoMove)
		if e, ok := w.tt.Probe(w.pos.Hash); ok {
			ttMove = e.Move
		}
	}

	extension := 0
	if inCheck {
		extension = 1
	}
	if extension == 0 && depth >= threatExtensionMinDepth && ply > 0 && w.detectSeriousThreats() {
		extension = 1
	}

	rawEval := w.evaluate(ply)
	correction := w.corrHistory.Get(w.pos)
	staticEval := rawEval + correction
	w.hist.SetEval(w.pos.SideToMove, ply, staticEval)

	improving := false
	if prev, ok := w.hist.Eval(w.pos.SideToMove, ply-2); ok && ply >= 2 {
		improving = staticEval > prev
	}

	if !inCheck && !pvNode && ply > 0 && depth <= rfpMaxDepth && excludedMove == board.NoMove {
		margin := rfpBase * depth
		if !improving {
			margin -= rfpImprovingBonus
		}
		if staticEval-margin >= beta {
			return beta
		}
	}

	if !inCheck && ply > 0 && depth <= 2 && excludedMove == board.NoMove {
		razorMargin := razorBase + razorPerDepth*depth
		if staticEval+razorMargin <= alpha {
			score := w.quiescence(ply, 0, alpha, beta)
			if score <= alpha {
				return score
			}
		}
	}

	if !inCheck && ply > 0 && depth >= nmpMinDepth && !ttPv && !w.skipNull && excludedMove == board.NoMove && w.pos.HasNonPawnMaterial() {
		r := nmpBaseReduction + depth/nmpDepthDivisor
		if r > depth-1 {
			r = depth - 1
		}
		nullUndo := w.pos.MakeNullMove()
		nullScore := -w.negamax(depth-1-r, ply+1, -beta, -beta+1, board.NoMove, board.NoMove)
		w.pos.UnmakeNullMove(nullUndo)
		if w.stopped() {
			return 0
		}
		if nullScore >= beta {
			// A proven mate score is trusted outright; anything else is a
			// cutoff a zugzwang position could have faked, so it only
			// stands if a real search at the same depth also holds.
			if abs(nullScore) >= MateScore-MaxPly {
				return nullScore
			}
			if depth < nmpVerifyMinDepth {
				return beta
			}
			w.skipNull = true
			verifyScore := w.negamax(depth-1, ply, beta-1, beta, prevMove, board.NoMove)
			w.skipNull = false
			if w.stopped() {
				return 0
			}
			if verifyScore >= beta {
				return verifyScore
			}
		}
	}

	if !inCheck && ply > 0 && depth >= probcutDepth && excludedMove == board.NoMove && abs(beta) < MateScore-MaxPly {
		probcutBeta := beta + probcutMargin
		probcutSearchDepth := depth - probcutReduction
		if probcutSearchDepth < 1 {
			probcutSearchDepth = 1
		}
		captures := w.pos.GenerateCaptures()
		for i := 0; i < captures.Len(); i++ {
			capture := captures.Get(i)
			if w.pos.See(capture) < 0 {
				continue
			}
			if !w.makeMove(ply, capture) {
				continue
			}
			score := -w.negamax(probcutSearchDepth, ply+1, -probcutBeta, -probcutBeta+1, capture, board.NoMove)
			w.unmakeMove(ply, capture)
			if score >= probcutBeta {
				return score
			}
		}
	}

	if !inCheck && ply > 0 && depth >= multicutDepth && excludedMove == board.NoMove && abs(beta) < MateScore-MaxPly {
		gen := movegen.New(w.pos, w.hist, movegen.PVSearch, ply, ttMove)
		mcSearchDepth := depth - 4
		if mcSearchDepth < 1 {
			mcSearchDepth = 1
		}
		cutoffs, searched := 0, 0
		for searched < multicutMoves {
			m := gen.Next()
			if m == board.NoMove {
				break
			}
			if !w.makeMove(ply, m) {
				continue
			}
			searched++
			score := -w.negamax(mcSearchDepth, ply+1, -beta, -beta+1, m, board.NoMove)
			w.unmakeMove(ply, m)
			if score >= beta {
				cutoffs++
				if cutoffs >= multicutRequired {
					return beta
				}
			}
		}
	}

	pruneQuiets := false
	if !inCheck && ply > 0 && depth <= 3 {
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuiets = true
		}
	}

	singularExtension := 0
	if depth >= singularMinDepth && ttMove != board.NoMove && !inCheck && excludedMove == board.NoMove &&
		found && int(ttEntry.Depth) >= depth-3 && ttEntry.Bound() != TTUpperBound {
		rBeta := int(ttEntry.Score) - singularMargin
		singularDepth := (depth - 3) / 2
		if singularDepth < 1 {
			singularDepth = 1
		}
		singularScore := w.negamax(singularDepth, ply, rBeta-1, rBeta, prevMove, ttMove)
		switch {
		case singularScore < rBeta:
			singularExtension = 1
		case singularScore >= beta && abs(singularScore) < MateScore-MaxPly:
			// Multicut: a move other than the TT move already refutes this
			// node at the exclusion window, so the TT move isn't uniquely
			// good and the whole node can be cut without searching it.
			return singularScore
		case int(ttEntry.Score) >= beta:
			singularExtension = singularNegativeExtension
		}
	}

	gen := movegen.New(w.pos, w.hist, movegen.PVSearch, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0
	var triedQuiets, triedCaptures []board.Move

	for {
		move := gen.Next()
		if move == board.NoMove {
			break
		}
		if move == excludedMove {
			continue
		}

		isCapture := move.IsCapture(w.pos)
		isPromotion := move.IsPromotion()

		if pruneQuiets && !isCapture && !isPromotion && bestMove != board.NoMove {
			continue
		}
		if isCapture && depth <= 3 && !inCheck && movesSearched > 0 && w.pos.See(move) < 0 {
			continue
		}
		if !isCapture && !isPromotion && movesSearched > 0 && !inCheck && depth <= len(lmpThreshold)-1 && move != ttMove {
			threshold := lmpThreshold[depth]
			if !improving {
				threshold = threshold * 2 / 3
			}
			if movesSearched >= threshold {
				gen.SkipQuiets()
				continue
			}
		}
		if !isCapture && !isPromotion && movesSearched > 0 && !inCheck && depth <= 3 && move != ttMove {
			if w.hist.Butterfly(w.pos.SideToMove, move) < historyPruningThreshold {
				continue
			}
		}

		if !w.makeMove(ply, move) {
			continue
		}
		movesSearched++
		if isCapture {
			triedCaptures = append(triedCaptures, move)
		} else {
			triedQuiets = append(triedQuiets, move)
		}

		newDepth := depth - 1 + extension
		if move == ttMove {
			newDepth += singularExtension
			if newDepth < 1 {
				newDepth = 1
			}
		}

		var score int
		if movesSearched > 4 && depth >= 3 && !inCheck && !isCapture && !isPromotion {
			d := min(depth, 63)
			mv := min(movesSearched, 63)
			reduction := lmrReductions[d][mv]
			if !improving {
				reduction++
			}
			if move == ttMove {
				reduction -= 2
			}
			reduction -= w.hist.Butterfly(w.pos.SideToMove.Other(), move) / historyReductionDivisor
			if reduction < 1 {
				reduction = 1
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}
			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, move, board.NoMove)
			if score > alpha {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove)
			}
		} else if movesSearched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove)
		} else {
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, move, board.NoMove)
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove)
			}
		}

		w.unmakeMove(ply, move)

		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				flag = TTExact
				w.pv.update(ply, move)
			}
		}

		if score >= beta {
			if !isCapture {
				w.hist.UpdateQuiet(w.pos, w.pos.SideToMove, ply, inCheck, move, triedQuiets, depth)
			} else {
				w.hist.UpdateCapture(w.pos, move, triedCaptures, depth)
			}
			w.tt.Store(w.pos.Hash, depth, ValueToTT(score, ply), staticEval, TTLowerBound, ttPv, move)
			return score
		}
	}

	if movesSearched == 0 {
		if excludedMove != board.NoMove {
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if flag == TTExact && !inCheck && depth >= 2 {
		w.corrHistory.Update(w.pos, bestScore, rawEval, depth)
	}

	w.tt.Store(w.pos.Hash, depth, ValueToTT(bestScore, ply), staticEval, flag, ttPv || flag == TTExact, bestMove)
	return bestScore
}

// quiescence resolves captures (and, at any ply where the side to move is in
// check, every evasion) until the position is quiet enough to trust static
// eval. Quiet checking moves are not generated.
func (w *Worker) quiescence(ply, qPly int, alpha, beta int) int {
	if ply >= MaxPly-1 || qPly > maxQuiescencePly {
		return w.evaluate(ply)
	}
	if w.stopped() {
		return 0
	}
	w.nodes.Add(1)
	if ply > w.seldepth {
		w.seldepth = ply
	}

	inCheck := w.pos.InCheck()
	standPat := w.evaluate(ply)

	if !inCheck {
		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}
		bigDelta := board.PieceValue[board.Queen]
		if standPat+bigDelta < alpha {
			return alpha
		}
	}

	mode := movegen.QSearch
	if inCheck {
		mode = movegen.QSearchChecks
	}
	gen := movegen.New(w.pos, w.hist, mode, ply, board.NoMove)
	movesTried := 0

	for {
		move := gen.Next()
		if move == board.NoMove {
			break
		}

		if !inCheck && move.IsCapture(w.pos) {
			captureValue := 0
			if move.IsEnPassant() {
				captureValue = board.PieceValue[board.Pawn]
			} else if captured := w.pos.PieceAt(move.To()); captured != board.NoPiece {
				captureValue = board.PieceValue[captured.Type()]
			}
			if move.IsPromotion() {
				captureValue += board.PieceValue[board.Queen] - board.PieceValue[board.Pawn]
			}
			if standPat+captureValue+deltaPruningMargin < alpha {
				continue
			}
		}

		if !w.makeMove(ply, move) {
			continue
		}
		movesTried++
		score := -w.quiescence(ply+1, qPly+1, -beta, -alpha)
		w.unmakeMove(ply, move)

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	if inCheck && movesTried == 0 {
		return -MateScore + ply
	}

	return alpha
}

// detectSeriousThreats reports whether the opponent has a hanging piece of
// ours worth at least threatExtensionThreshold, or attacks one of our
// queens/rooks with a lesser piece, justifying a one-ply extension so the
// search doesn't horizon past a tactical blow.
func (w *Worker) detectSeriousThreats() bool {
	pos := w.pos
	us := pos.SideToMove
	them := us.Other()
	occ := pos.AllOccupied

	var enemyAttacks, ourDefenses board.Bitboard
	for pt := board.Pawn; pt <= board.Queen; pt++ {
		bb := pos.Pieces[them][pt]
		for bb != 0 {
			sq := bb.LSB()
			bb &= bb - 1
			enemyAttacks |= attacksFrom(pt, sq, them, occ)
		}
	}
	for pt := board.Pawn; pt <= board.Queen; pt++ {
		bb := pos.Pieces[us][pt]
		for bb != 0 {
			sq := bb.LSB()
			bb &= bb - 1
			ourDefenses |= attacksFrom(pt, sq, us, occ)
		}
	}
	ourDefenses |= board.KingAttacks(pos.KingSquare[us])

	ourPieces := pos.Occupied[us] &^ board.SquareBB(pos.KingSquare[us])
	hanging := ourPieces & enemyAttacks &^ ourDefenses
	for hanging != 0 {
		sq := hanging.LSB()
		hanging &= hanging - 1
		if piece := pos.PieceAt(sq); piece != board.NoPiece && board.PieceValue[piece.Type()] >= threatExtensionThreshold {
			return true
		}
	}

	minorOrPawnAttacks := enemyAttacks &^ attacksFromSet(board.Rook, them, occ, pos) &^ attacksFromSet(board.Queen, them, occ, pos)
	if pos.Pieces[us][board.Queen]&enemyAttacks != 0 {
		return true
	}
	if pos.Pieces[us][board.Rook]&minorOrPawnAttacks != 0 {
		return true
	}
	return false
}

func attacksFrom(pt board.PieceType, sq board.Square, c board.Color, occ board.Bitboard) board.Bitboard {
	switch pt {
	case board.Pawn:
		return board.PawnAttacks(sq, c)
	case board.Knight:
		return board.KnightAttacks(sq)
	case board.Bishop:
		return board.BishopAttacks(sq, occ)
	case board.Rook:
		return board.RookAttacks(sq, occ)
	case board.Queen:
		return board.QueenAttacks(sq, occ)
	default:
		return 0
	}
}

func attacksFromSet(pt board.PieceType, c board.Color, occ board.Bitboard, pos *board.Position) board.Bitboard {
	var out board.Bitboard
	bb := pos.Pieces[c][pt]
	for bb != 0 {
		sq := bb.LSB()
		bb &= bb - 1
		out |= attacksFrom(pt, sq, c, occ)
	}
	return out
}
