package engine

import (
	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/config"
)

// CorrectionHistorySize is the number of entries per correction table
// (256k = 4x reduction in collisions).
const CorrectionHistorySize = 262144 // 2^18
const CorrectionHistoryMask = CorrectionHistorySize - 1

// correctionTable is one gravity-updated correction-history table, indexed
// by one of the position's structural hash keys rather than its full hash —
// grouping positions that share a pawn/material/minor-piece skeleton so the
// correction generalizes across transpositions instead of overfitting to a
// single exact position.
type correctionTable [CorrectionHistorySize]int16

func hashIndex(key uint64) int {
	return int((key ^ (key >> 18)) & CorrectionHistoryMask)
}

func (t *correctionTable) get(key uint64) int {
	return int(t[hashIndex(key)])
}

func (t *correctionTable) update(key uint64, bonus, gravityDivisor, clamp int) {
	idx := hashIndex(key)
	old := int(t[idx])
	newVal := old + (bonus-old)/gravityDivisor
	if newVal > clamp {
		newVal = clamp
	} else if newVal < -clamp {
		newVal = -clamp
	}
	t[idx] = int16(newVal)
}

func (t *correctionTable) clear() {
	for i := range t {
		t[i] = 0
	}
}

func (t *correctionTable) age() {
	for i := range t {
		t[i] /= 2
	}
}

// CorrectionHistory adjusts static evaluation based on search results,
// split into four tables the way the data model's four correction-history
// hash inputs call for: pawn structure, non-pawn material per side, total
// material, and minor-piece placement. When the search discovers the
// static eval was wrong, each table records its slice of the error and
// the corrections are summed back into future static evals of positions
// sharing that same structural key. Based on Stockfish's correction
// history, generalized from its single table to four.
type CorrectionHistory struct {
	pawn     correctionTable
	nonPawn  [2]correctionTable
	material correctionTable
	minor    correctionTable
	params   *config.Params
}

// NewCorrectionHistory creates a new correction history table using the
// published default gravity constants.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{params: config.Default()}
}

// SetParams swaps in a tuned parameter set for this table's gravity
// constants.
func (ch *CorrectionHistory) SetParams(p *config.Params) {
	ch.params = p
}

// Get returns the correction value for a position, the sum of what each
// of the four tables has learned about positions sharing this skeleton.
// The correction should be added to the static evaluation.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	sum := ch.pawn.get(pos.PawnKey)
	sum += ch.nonPawn[board.White].get(pos.NonPawnKey[board.White])
	sum += ch.nonPawn[board.Black].get(pos.NonPawnKey[board.Black])
	sum += ch.material.get(pos.MaterialKey)
	sum += ch.minor.get(pos.MinorKey)
	return sum
}

// Update records a correction based on the difference between the static
// evaluation and the search result, using gravity updates (new = old +
// (target - old) / 16) on each of the four tables independently.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	diff := searchScore - staticEval
	bonus := diff * depth / ch.params.CorrectionBonusScale
	if bonus > ch.params.CorrectionBonusClamp {
		bonus = ch.params.CorrectionBonusClamp
	} else if bonus < -ch.params.CorrectionBonusClamp {
		bonus = -ch.params.CorrectionBonusClamp
	}

	gravity, clamp := ch.params.CorrectionGravityDivisor, ch.params.CorrectionClamp
	ch.pawn.update(pos.PawnKey, bonus, gravity, clamp)
	ch.nonPawn[board.White].update(pos.NonPawnKey[board.White], bonus, gravity, clamp)
	ch.nonPawn[board.Black].update(pos.NonPawnKey[board.Black], bonus, gravity, clamp)
	ch.material.update(pos.MaterialKey, bonus, gravity, clamp)
	ch.minor.update(pos.MinorKey, bonus, gravity, clamp)
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	ch.pawn.clear()
	ch.nonPawn[board.White].clear()
	ch.nonPawn[board.Black].clear()
	ch.material.clear()
	ch.minor.clear()
}

// Age scales down all correction values (called between games/positions).
func (ch *CorrectionHistory) Age() {
	ch.pawn.age()
	ch.nonPawn[board.White].age()
	ch.nonPawn[board.Black].age()
	ch.material.age()
	ch.minor.age()
}
