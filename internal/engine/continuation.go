package engine

import (
	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/config"
)

// continuationTable tracks move-pair correlation for one fixed ply
// distance, indexed the same way as MoveOrderer's 1-ply countermove
// history: [pieceAtDistance][toSquareAtDistance][movePiece][moveToSquare].
type continuationTable [12][64][12][64]int

func (t *continuationTable) update(prevPiece board.Piece, prevTo board.Square, movePiece board.Piece, moveTo board.Square, bonus, max int) {
	if prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return
	}
	v := &t[prevPiece][prevTo][movePiece][moveTo]
	*v += bonus
	if *v > max {
		t.scale()
	} else if *v < -max {
		*v = -max
	}
}

func (t *continuationTable) get(prevPiece board.Piece, prevTo board.Square, movePiece board.Piece, moveTo board.Square) int {
	if prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return 0
	}
	return t[prevPiece][prevTo][movePiece][moveTo]
}

func (t *continuationTable) scale() {
	for i := range t {
		for j := range t[i] {
			for k := range t[i][j] {
				for l := range t[i][j][k] {
					t[i][j][k][l] /= 2
				}
			}
		}
	}
}

func (t *continuationTable) clear() {
	for i := range t {
		t[i] = [64][12][64]int{}
	}
}

// ContinuationHistory complements MoveOrderer's 1-ply countermove history
// with move-pair correlation two and four plies back: "this quiet move
// tends to follow that one" learned not just for the immediately
// preceding move but for the position as it stood one and two full move
// pairs earlier. Grounded on the same gravity-free, depth-squared-bonus
// update MoveOrderer's history tables use, generalized from one fixed
// distance (MoveOrderer's countermove history) to the two/four-ply
// distances described for continuation history.
type ContinuationHistory struct {
	twoPly  continuationTable
	fourPly continuationTable
	max     int
}

// NewContinuationHistory creates an empty continuation history using the
// published default overflow clamp.
func NewContinuationHistory() *ContinuationHistory {
	return &ContinuationHistory{max: config.Default().HistoryMax}
}

// SetMax overrides the overflow clamp shared with MoveOrderer's tables.
func (ch *ContinuationHistory) SetMax(max int) {
	ch.max = max
}

// Update records a bonus or penalty for the quiet move just played,
// correlated against whatever moved two and four plies before it.
// moveAt/pieceAt are the worker's per-ply move/piece stacks; ply is the
// current node's ply (the move being scored was just made at this ply).
func (ch *ContinuationHistory) Update(moveAt []board.Move, pieceAt []board.Piece, ply int, movePiece board.Piece, moveTo board.Square, depth int, isGood bool) {
	bonus := depth * depth
	if !isGood {
		bonus = -bonus
	}
	if ply >= 2 {
		ch.twoPly.update(pieceAt[ply-2], moveAt[ply-2].To(), movePiece, moveTo, bonus, ch.max)
	}
	if ply >= 4 {
		ch.fourPly.update(pieceAt[ply-4], moveAt[ply-4].To(), movePiece, moveTo, bonus, ch.max)
	}
}

// Score returns the combined two-ply and four-ply continuation bonus for
// a candidate quiet move, used as a move-ordering tiebreaker alongside
// the 1-ply countermove history.
func (ch *ContinuationHistory) Score(moveAt []board.Move, pieceAt []board.Piece, ply int, movePiece board.Piece, moveTo board.Square) int {
	score := 0
	if ply >= 2 {
		score += ch.twoPly.get(pieceAt[ply-2], moveAt[ply-2].To(), movePiece, moveTo)
	}
	if ply >= 4 {
		score += ch.fourPly.get(pieceAt[ply-4], moveAt[ply-4].To(), movePiece, moveTo)
	}
	return score
}

// Clear resets both tables for a new search.
func (ch *ContinuationHistory) Clear() {
	ch.twoPly.clear()
	ch.fourPly.clear()
}
