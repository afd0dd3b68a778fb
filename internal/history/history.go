// Package history implements the per-thread move-ordering statistics the
// searcher consults while walking the staged move generator: killers,
// butterfly (from/to), capture, continuation (follow-up) and per-ply static
// eval history.
package history

import "stella/internal/board"

// MaxPly bounds the search stack depth; killers, continuation slots and the
// eval history are all sized against it.
const MaxPly = 128

// Bound clamps applied to the three gravity-updated tables.
const (
	ButterflyBound    = 7000
	CaptureBound      = 10000
	ContinuationBound = 25000
)

// continuationOffsets are the ply offsets updated on a quiet beta cutoff,
// each pairing the current move against the move played that many plies
// earlier (fewer offsets are applied when the side to move is in check,
// since ply-3/-4/-6 ancestors are less informative against a checking
// reply).
var continuationOffsets = [...]int{1, 2, 3, 4, 6}

// History holds one search thread's move-ordering tables. Zero value is
// ready to use.
type History struct {
	// killers[color][ply][slot] are the two most recent quiet moves that
	// caused a beta cutoff at that ply.
	killers [2][MaxPly + 2][2]board.Move

	// butterfly[color][from][to], clamped to +/-ButterflyBound.
	butterfly [2][64][64]int32

	// continuation[ply][piece][to] is the table "owned" by the move played
	// at that ply: a later move's (piece, to) is looked up in the tables
	// owned by its recent ancestors to score follow-ups. Padded by 7 so ply
	// - 6 never underflows when ply is small.
	continuation [MaxPly + 7][12][64]int32

	// capture[piece][to][capturedType], clamped to +/-CaptureBound.
	capture [12][64][6]int32

	// eval[color][ply] is the static eval recorded at that ply, used to
	// derive the "improving" flag.
	eval [2][MaxPly]int
}

// New returns a ready-to-use History.
func New() *History {
	return &History{}
}

// Clear resets killers and per-ply eval for a new search while leaving the
// slower-moving butterfly/capture/continuation tables in place: those decay
// naturally via the gravity update and carry useful signal across
// iterative-deepening iterations within the same search.
func (h *History) Clear() {
	for c := 0; c < 2; c++ {
		for ply := range h.killers[c] {
			h.killers[c][ply][0] = board.NoMove
			h.killers[c][ply][1] = board.NoMove
		}
		for ply := range h.eval[c] {
			h.eval[c][ply] = 0
		}
	}
}

// ClearKillers clears the killer slots at a single ply, used by the
// searcher to keep grandchild killers from leaking stale moves.
func (h *History) ClearKillers(us board.Color, ply int) {
	if ply < 0 || ply >= len(h.killers[us]) {
		return
	}
	h.killers[us][ply][0] = board.NoMove
	h.killers[us][ply][1] = board.NoMove
}

// Killers returns the two killer moves recorded at ply.
func (h *History) Killers(us board.Color, ply int) (board.Move, board.Move) {
	if ply < 0 || ply >= len(h.killers[us]) {
		return board.NoMove, board.NoMove
	}
	return h.killers[us][ply][0], h.killers[us][ply][1]
}

func (h *History) setKiller(us board.Color, ply int, m board.Move) {
	if ply < 0 || ply >= len(h.killers[us]) {
		return
	}
	if h.killers[us][ply][0] == m {
		return
	}
	h.killers[us][ply][1] = h.killers[us][ply][0]
	h.killers[us][ply][0] = m
}

// Butterfly returns the from/to history score for us's move.
func (h *History) Butterfly(us board.Color, m board.Move) int {
	return int(h.butterfly[us][m.From()][m.To()])
}

// Capture returns the capture-history score for attacker placed on to,
// taking a piece of capturedType.
func (h *History) Capture(attacker board.Piece, to board.Square, capturedType board.PieceType) int {
	return int(h.capture[attacker][to][capturedType])
}

// Continuation returns the sum of the follow-up history contributions for
// placing piece on to, drawn from the tables owned by the moves played at
// ply-1, ply-2, ply-3, ply-4 and ply-6 (ply-3/-4/-6 omitted while inCheck).
func (h *History) Continuation(ply int, inCheck bool, piece board.Piece, to board.Square) int {
	total := 0
	for _, off := range continuationOffsets {
		if inCheck && off > 2 {
			continue
		}
		idx := ply - off + 7
		if idx < 0 {
			continue
		}
		total += int(h.continuation[idx][piece][to])
	}
	return total
}

// SetEval records the static eval observed at ply.
func (h *History) SetEval(us board.Color, ply int, eval int) {
	if ply < 0 || ply >= len(h.eval[us]) {
		return
	}
	h.eval[us][ply] = eval
}

// Eval returns the static eval recorded at ply for us; the searcher reads
// ply-2 to compute the "improving" flag. ok is false only when ply is
// outside the table (e.g. negative); a ply with nothing recorded reads 0.
func (h *History) Eval(us board.Color, ply int) (value int, ok bool) {
	if ply < 0 || ply >= len(h.eval[us]) {
		return 0, false
	}
	return h.eval[us][ply], true
}

// gravity applies entry += bonus - entry*|bonus|/bound, the update that
// keeps a counter bounded in [-bound, bound] without ever clamping.
func gravity(entry int32, bonus int32, bound int32) int32 {
	abs := bonus
	if abs < 0 {
		abs = -abs
	}
	entry += bonus - entry*abs/bound
	return entry
}

// Bonus is the cutoff reward at depth d: min(300d-250, 1500).
func Bonus(depth int) int {
	b := 300*depth - 250
	if b > 1500 {
		b = 1500
	}
	if b < 0 {
		b = 0
	}
	return b
}

// Malus is the cutoff penalty applied to non-best siblings at depth d:
// min(350d-200, 1700).
func Malus(depth int) int {
	m := 350*depth - 200
	if m > 1700 {
		m = 1700
	}
	if m < 0 {
		m = 0
	}
	return m
}

// UpdateQuiet applies the quiet-cutoff history update at best: sets it as a
// killer at ply, rewards its butterfly and continuation entries with bonus,
// and penalizes every other tried quiet move in tried with malus.
func (h *History) UpdateQuiet(pos *board.Position, us board.Color, ply int, inCheck bool, best board.Move, tried []board.Move, depth int) {
	bonus := int32(Bonus(depth))
	malus := int32(Malus(depth))

	h.setKiller(us, ply, best)
	h.updateButterfly(us, best, bonus)
	h.updateContinuation(pos, ply, inCheck, best, bonus)

	for _, m := range tried {
		if m == best {
			continue
		}
		h.updateButterfly(us, m, -malus)
		h.updateContinuation(pos, ply, inCheck, m, -malus)
	}
}

func (h *History) updateButterfly(us board.Color, m board.Move, bonus int32) {
	from, to := m.From(), m.To()
	h.butterfly[us][from][to] = gravity(h.butterfly[us][from][to], bonus, ButterflyBound)
}

func (h *History) updateContinuation(pos *board.Position, ply int, inCheck bool, m board.Move, bonus int32) {
	piece := pos.PieceAt(m.From())
	to := m.To()
	for _, off := range continuationOffsets {
		if inCheck && off > 2 {
			continue
		}
		idx := ply - off + 7
		if idx < 0 {
			continue
		}
		h.continuation[idx][piece][to] = gravity(h.continuation[idx][piece][to], bonus, ContinuationBound)
	}
}

// UpdateCapture applies the capture-cutoff history update: rewards best's
// capture-history entry with bonus and penalizes every other tried capture
// in tried with malus.
func (h *History) UpdateCapture(pos *board.Position, best board.Move, tried []board.Move, depth int) {
	bonus := int32(Bonus(depth))
	malus := int32(Malus(depth))

	h.updateCaptureEntry(pos, best, bonus)
	for _, m := range tried {
		if m == best {
			continue
		}
		h.updateCaptureEntry(pos, m, -malus)
	}
}

func (h *History) updateCaptureEntry(pos *board.Position, m board.Move, bonus int32) {
	attacker := pos.PieceAt(m.From())
	to := m.To()
	var capturedType board.PieceType
	if m.IsEnPassant() {
		capturedType = board.Pawn
	} else {
		captured := pos.PieceAt(to)
		if captured == board.NoPiece {
			return
		}
		capturedType = captured.Type()
	}
	h.capture[attacker][to][capturedType] = gravity(h.capture[attacker][to][capturedType], bonus, CaptureBound)
}
