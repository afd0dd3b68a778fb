// Package nnue implements the efficiently-updatable neural network
// evaluator: a sparse per-(king-bucket, piece, square, perspective) input
// layer feeding two 512-wide perspective accumulators, maintained
// incrementally as moves are made and undone, and a single output layer
// producing a centipawn value.
package nnue

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"stella/internal/board"
)

// zstdMagic is the frame magic number zstd prepends to a compressed
// stream, used to tell a compressed weight bundle from a raw one without
// requiring a separate file extension or flag.
var zstdMagic = [4]byte{0x28, 0xb5, 0x2f, 0xfd}

const (
	// KingBuckets is the number of king-square buckets per perspective.
	KingBuckets = 16
	// HiddenDim is the accumulator / L0 output width.
	HiddenDim = 512
	// InputDim is the full sparse feature-layer dimension:
	// 16 king buckets x 12 piece-color channels x 64 squares.
	InputDim = KingBuckets * 12 * 64
)

// Weights holds the network parameters, loaded once at startup from an
// external blob and immutable thereafter.
type Weights struct {
	L0     [InputDim][HiddenDim]int16
	L0Bias [HiddenDim]int16
	L1     [2 * HiddenDim]int16
	L1Bias int32
}

// Load reads a weight bundle in fixed order: L0 weights (int16, row-major
// by input feature), L0 bias (int16), L1 weights (int16), L1 bias (int32).
// A zstd-framed blob (network files are large enough that shipping them
// compressed is worth it) is transparently inflated first. A corrupt or
// truncated blob is a startup-time fatal condition; the evaluator itself
// never surfaces a runtime error for bad weights.
func Load(r io.Reader) (*Weights, error) {
	br := bufio.NewReader(r)

	if header, err := br.Peek(4); err == nil && [4]byte(header) == zstdMagic {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("nnue: opening zstd stream: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	w := &Weights{}

	for i := 0; i < InputDim; i++ {
		if err := binary.Read(br, binary.LittleEndian, &w.L0[i]); err != nil {
			return nil, fmt.Errorf("nnue: reading L0 row %d: %w", i, err)
		}
	}
	if err := binary.Read(br, binary.LittleEndian, &w.L0Bias); err != nil {
		return nil, fmt.Errorf("nnue: reading L0 bias: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &w.L1); err != nil {
		return nil, fmt.Errorf("nnue: reading L1 weights: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &w.L1Bias); err != nil {
		return nil, fmt.Errorf("nnue: reading L1 bias: %w", err)
	}
	return w, nil
}

// orient maps an absolute square into perspective-relative coordinates: a
// vertical flip for Black, identity for White.
func orient(perspective board.Color, sq board.Square) board.Square {
	if perspective == board.Black {
		return sq ^ 56
	}
	return sq
}

// kingBucket buckets an (absolute) king square into one of KingBuckets
// slots, mirrored across the center file so bilaterally symmetric king
// positions land in the same bucket: a quadrant of (file distance from
// center) x (rank halved).
func kingBucket(perspective board.Color, kingSq board.Square) int {
	sq := orient(perspective, kingSq)
	file := int(sq.File())
	rank := int(sq.Rank())
	fileGroup := file
	if fileGroup > 7-fileGroup {
		fileGroup = 7 - fileGroup
	}
	return fileGroup*4 + rank/2
}

// kingSideFiles reports whether sq sits on the e-h files, the boundary the
// feature index XORs by 7 so a queenside/kingside castled king still maps
// consistently.
func kingSideFiles(sq board.Square) bool {
	return sq.File() >= 4
}

// featureIndex computes the L0 row for placing pc on sq, as seen by
// perspective whose king sits on kingSq (perspective's own, absolute
// square).
func featureIndex(perspective board.Color, sq board.Square, pc board.Piece, kingSq board.Square) int {
	s := orient(perspective, sq)
	if kingSideFiles(kingSq) {
		s ^= 7
	}
	colorOffset := 0
	if pc.Color() != perspective {
		colorOffset = 1
	}
	idx := int(s) + int(pc.Type())*64 + colorOffset*64*6 + kingBucket(perspective, kingSq)*64*6*2
	return idx
}
