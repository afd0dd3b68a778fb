package engine

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"stella/internal/board"
)

// CorrectionHistorySize is the table width: 2^18 entries trades memory
// (512KB at 2 bytes/entry) against collision rate.
const CorrectionHistorySize = 262144
const CorrectionHistoryMask = CorrectionHistorySize - 1

// CorrectionHistory tracks, per position signature, how far the static
// evaluator's output has historically drifted from what search actually
// found, and nudges future static evals in that direction.
type CorrectionHistory struct {
	table [CorrectionHistorySize]int16
}

func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

// slot re-mixes the zobrist key through xxhash before masking it down to
// the table width. A raw zobrist key's low bits already double as the TT
// index; reusing them unmixed here would correlate this table's collisions
// with the transposition table's, so the index is drawn from an
// independent hash of the same key instead.
func (ch *CorrectionHistory) slot(hash uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], hash)
	return uint32(xxhash.Sum64(buf[:])) & CorrectionHistoryMask
}

// Get returns the stored correction (in centipawns) for pos's signature.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	return int(ch.table[ch.slot(pos.Hash)])
}

// Update folds one more (staticEval, searchScore) sample into the
// correction for pos's signature via a depth-scaled gravity step: heavier
// at high depth, capped so one noisy result can't swing the table far.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	target := (searchScore - staticEval) * depth / 8
	if target > 256 {
		target = 256
	} else if target < -256 {
		target = -256
	}

	idx := ch.slot(pos.Hash)
	old := int(ch.table[idx])
	updated := old + (target-old)/16

	if updated > 16000 {
		updated = 16000
	} else if updated < -16000 {
		updated = -16000
	}
	ch.table[idx] = int16(updated)
}

// Clear zeroes every entry, as on a UCI "ucinewgame".
func (ch *CorrectionHistory) Clear() {
	for i := range ch.table {
		ch.table[i] = 0
	}
}

// Age halves every entry, softening corrections carried over from a
// previous search without discarding them outright.
func (ch *CorrectionHistory) Age() {
	for i := range ch.table {
		ch.table[i] /= 2
	}
}
