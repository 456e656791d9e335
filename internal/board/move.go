package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-15: move-type tag (see the MoveType* constants)
//
// The moved piece and any captured piece are not stored in the Move — they
// are derived from the Position at play time.
type Move uint16

// MoveType is the 4-bit tag occupying the top nibble of a Move.
type MoveType uint16

const (
	Quiet MoveType = iota
	DoublePush
	KingCastle
	QueenCastle
	Capture
	EnPassant
	PromoKnight
	PromoBishop
	PromoRook
	PromoQueen
	PromoCaptureKnight
	PromoCaptureBishop
	PromoCaptureRook
	PromoCaptureQueen
)

const (
	moveFromShift = 0
	moveToShift   = 6
	moveTagShift  = 12
	moveFromMask  = 0x3F
	moveToMask    = 0x3F
	moveTagMask   = 0xF
)

// NoMove represents an invalid or null move, encoded as all zero bits
// (from=A1, to=A1, tag=Quiet) — a1a1 never arises as a legal move.
const NoMove Move = 0

// promoTypeByTag maps a promotion move-type tag to the promoted PieceType.
var promoTypeByTag = map[MoveType]PieceType{
	PromoKnight: Knight, PromoBishop: Bishop, PromoRook: Rook, PromoQueen: Queen,
	PromoCaptureKnight: Knight, PromoCaptureBishop: Bishop, PromoCaptureRook: Rook, PromoCaptureQueen: Queen,
}

var promoTagByPieceQuiet = map[PieceType]MoveType{
	Knight: PromoKnight, Bishop: PromoBishop, Rook: PromoRook, Queen: PromoQueen,
}

var promoTagByPieceCapture = map[PieceType]MoveType{
	Knight: PromoCaptureKnight, Bishop: PromoCaptureBishop, Rook: PromoCaptureRook, Queen: PromoCaptureQueen,
}

func newMove(from, to Square, tag MoveType) Move {
	return Move(from)<<moveFromShift | Move(to)<<moveToShift | Move(tag)<<moveTagShift
}

// NewMove creates a quiet (non-capture, non-special) move.
func NewMove(from, to Square) Move {
	return newMove(from, to, Quiet)
}

// NewDoublePush creates a two-square pawn push, the only move that can set
// the en-passant square.
func NewDoublePush(from, to Square) Move {
	return newMove(from, to, DoublePush)
}

// NewCapture creates a non-special capture.
func NewCapture(from, to Square) Move {
	return newMove(from, to, Capture)
}

// NewKingCastle creates a kingside castling move (king's movement only).
func NewKingCastle(from, to Square) Move {
	return newMove(from, to, KingCastle)
}

// NewQueenCastle creates a queenside castling move (king's movement only).
func NewQueenCastle(from, to Square) Move {
	return newMove(from, to, QueenCastle)
}

// NewEnPassant creates an en-passant capture move.
func NewEnPassant(from, to Square) Move {
	return newMove(from, to, EnPassant)
}

// NewPromotion creates a non-capturing promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	tag, ok := promoTagByPieceQuiet[promo]
	if !ok {
		tag = PromoQueen
	}
	return newMove(from, to, tag)
}

// NewPromoCapture creates a promotion move that also captures.
func NewPromoCapture(from, to Square, promo PieceType) Move {
	tag, ok := promoTagByPieceCapture[promo]
	if !ok {
		tag = PromoCaptureQueen
	}
	return newMove(from, to, tag)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square((m >> moveFromShift) & moveFromMask)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> moveToShift) & moveToMask)
}

// Tag returns the 4-bit move-type tag.
func (m Move) Tag() MoveType {
	return MoveType((m >> moveTagShift) & moveTagMask)
}

// Promotion returns the promoted PieceType. Only valid if IsPromotion().
func (m Move) Promotion() PieceType {
	pt, ok := promoTypeByTag[m.Tag()]
	if !ok {
		return NoPieceType
	}
	return pt
}

// IsPromotion returns true if this move promotes a pawn.
func (m Move) IsPromotion() bool {
	_, ok := promoTypeByTag[m.Tag()]
	return ok
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	t := m.Tag()
	return t == KingCastle || t == QueenCastle
}

// IsEnPassant returns true if this is an en-passant capture.
func (m Move) IsEnPassant() bool {
	return m.Tag() == EnPassant
}

// IsDoublePush returns true if this is a two-square pawn push.
func (m Move) IsDoublePush() bool {
	return m.Tag() == DoublePush
}

// IsCapture returns true if this move captures a piece (the move-type tag
// alone determines this — no board lookup needed).
func (m Move) IsCapture() bool {
	switch m.Tag() {
	case Capture, EnPassant, PromoCaptureKnight, PromoCaptureBishop, PromoCaptureRook, PromoCaptureQueen:
		return true
	default:
		return false
	}
}

// IsQuiet returns true if this move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// IsTactical returns true if this move is a capture or a promotion — the
// set of moves the staged generator yields before ordinary quiets.
func (m Move) IsTactical() bool {
	return m.IsCapture() || m.IsPromotion()
}

// String returns the UCI format of the move (e.g. "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := map[PieceType]byte{Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q'}
		s += string(promoChars[m.Promotion()])
	}

	return s
}

// ParseMove parses a UCI long-algebraic move string against the current
// position, which supplies the context (moved piece, en-passant square,
// capture-or-not) that the wire format itself omits.
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

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	pt := piece.Type()
	captures := !pos.IsEmpty(to)

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
		if captures {
			return NewPromoCapture(from, to, promo), nil
		}
		return NewPromotion(from, to, promo), nil
	}

	if pt == King && abs(int(to)-int(from)) == 2 {
		if to.File() == 6 {
			return NewKingCastle(from, to), nil
		}
		return NewQueenCastle(from, to), nil
	}

	if pt == Pawn && to == pos.EnPassant && to != NoSquare {
		return NewEnPassant(from, to), nil
	}

	if pt == Pawn && abs(to.Rank()-from.Rank()) == 2 {
		return NewDoublePush(from, to), nil
	}

	if captures {
		return NewCapture(from, to), nil
	}
	return NewMove(from, to), nil
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

// UndoInfo stores information needed to undo a move, including the
// incremental material/PSQT accumulators so UnmakeMove can restore them
// without recomputing from scratch.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	MaterialKey    uint64
	MinorKey       uint64
	NonPawnKey     [2]uint64
	Checkers       Bitboard
	KingSquare     [2]Square
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
	MaterialPST    Score
	Phase          int
	Valid          bool
}
