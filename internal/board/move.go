package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: flags (0=normal, 1=promotion, 2=en passant, 3=castling)
type Move uint16

// Move flags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NullMove is the sentinel value used for the null move passed to
// MakeNullMove/UnmakeNullMove. It never appears in generated move lists.
const NullMove Move = 65

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	// promo: Knight=0, Bishop=1, Rook=2, Queen=3
	promoIdx := promo - Knight
	return Move(from) | Move(to)<<6 | Move(promoIdx)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move, encoded as the king's square to the
// castling rook's square.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type (only valid if IsPromotion() is true).
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	return !pos.IsEmpty(m.To())
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// IsNoisy returns true if this move is a capture or promotion, the
// complement of IsQuiet.
func (m Move) IsNoisy(pos *Position) bool {
	return !m.IsQuiet(pos)
}

// IsOk returns false for the degenerate from==to encoding, which is never
// a legal move but can appear as a cleared/sentinel slot.
func (m Move) IsOk() bool {
	return m.From() != m.To()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := []byte{'n', 'b', 'r', 'q'}
		s += string(promoChars[m.Promotion()-Knight])
	}

	return s
}

// ParseMove parses a UCI format move string.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	// Check for promotion
	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	// Detect special moves
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	pt := piece.Type()

	// Castling: a move onto a friendly rook is the Chess960/UCI_Chess960
	// king-captures-rook notation; a classical two-square king hop is
	// translated to that same rook-square encoding so every castling Move
	// in this engine has one internal representation.
	if pt == King {
		if toPiece := pos.PieceAt(to); toPiece != NoPiece && toPiece.Color() == piece.Color() && toPiece.Type() == Rook {
			return NewCastling(from, to), nil
		}
		if abs(int(to)-int(from)) == 2 {
			kingSide := to > from
			var right CastlingRights
			switch {
			case piece.Color() == White && kingSide:
				right = WhiteKingSideCastle
			case piece.Color() == White && !kingSide:
				right = WhiteQueenSideCastle
			case piece.Color() == Black && kingSide:
				right = BlackKingSideCastle
			default:
				right = BlackQueenSideCastle
			}
			rookSq := pos.rookSquare[castlingRightIndex(right)]
			if rookSq == NoSquare {
				return NoMove, fmt.Errorf("no rook available for castling move %s", s)
			}
			return NewCastling(from, rookSq), nil
		}
	}

	// En passant
	if pt == Pawn && to == pos.EnPassant {
		return NewEnPassant(from, to), nil
	}

	return NewMove(from, to), nil
}

// UCIString formats m the way a UCI front end would print it: the
// Chess960 king-captures-rook encoding when pos plays Chess960 rules,
// otherwise the classical two-square king move notation engines and GUIs
// expect for standard games.
func (m Move) UCIString(pos *Position) string {
	if !m.IsCastling() || pos.Chess960 {
		return m.String()
	}
	from := m.From()
	rookSq := m.To()
	us := pos.PieceAt(from).Color()
	kingSide := rookSq > from
	var kingTo Square
	switch {
	case us == White && kingSide:
		kingTo = G1
	case us == White && !kingSide:
		kingTo = C1
	case us == Black && kingSide:
		kingTo = G8
	default:
		kingTo = C8
	}
	return from.String() + kingTo.String()
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// PositionInfo is the per-ply snapshot pushed before a move is made and
// popped when it is undone. It carries both the state needed to restore
// the board (captured piece, bitboards, occupancy) and the state that is a
// function of the position at that ply (checkers, repetition flag,
// plies-from-null counter) which is otherwise expensive to recompute
// walking back up the search stack.
type PositionInfo struct {
	Move           Move // the move that produced this position, NoMove at the root
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	PliesFromNull  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	Repetition     bool
	KingSquare     [2]Square      // King positions before move
	Pieces         [2][6]Bitboard // Full piece bitboards for reliable restoration
	Occupied       [2]Bitboard    // Occupancy bitboards
	AllOccupied    Bitboard       // All pieces
	Valid          bool           // True if move was actually applied
}

// UndoInfo is the historical name for PositionInfo, kept as an alias so
// existing call sites built around MakeMove's return value keep compiling.
type UndoInfo = PositionInfo
