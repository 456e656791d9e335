package engine

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

// TestTTProbeAfterStore checks the packed-entry round trip through
// Store/Probe: every field (move, score, depth, flag, PV bit, static eval)
// a caller sets must come back unchanged, since the search trusts a probe
// hit without re-deriving any of this from the board.
func TestTTProbeAfterStore(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()

	move := board.NewMove(board.E2, board.E4)
	tt.Store(pos.Hash, 7, -123, TTLowerBound, move, true, 42)

	entry, found := tt.Probe(pos.Hash)
	if !found {
		t.Fatal("expected a hit after Store")
	}
	if entry.BestMove != move {
		t.Errorf("BestMove = %v, want %v", entry.BestMove, move)
	}
	if entry.Score != -123 {
		t.Errorf("Score = %d, want -123", entry.Score)
	}
	if entry.Depth != 7 {
		t.Errorf("Depth = %d, want 7", entry.Depth)
	}
	if entry.Flag != TTLowerBound {
		t.Errorf("Flag = %v, want TTLowerBound", entry.Flag)
	}
	if !entry.IsPV {
		t.Error("IsPV = false, want true")
	}
	if entry.StaticEval != 42 {
		t.Errorf("StaticEval = %d, want 42", entry.StaticEval)
	}
}

// TestTTProbeAfterStoreNegativeEval checks a negative static eval survives
// the round trip, since the field is stored as an unsigned bit pattern.
func TestTTProbeAfterStoreNegativeEval(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()

	tt.Store(pos.Hash, 3, 10, TTExact, board.NoMove, false, -77)

	entry, found := tt.Probe(pos.Hash)
	if !found {
		t.Fatal("expected a hit after Store")
	}
	if entry.StaticEval != -77 {
		t.Errorf("StaticEval = %d, want -77", entry.StaticEval)
	}
}

// TestTTProbeMissOnDifferentHash checks a hash that was never stored (and
// doesn't happen to collide in the sampled bucket) reports a miss rather
// than returning another entry's data.
func TestTTProbeMissOnDifferentHash(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()
	tt.Store(pos.Hash, 5, 10, TTExact, board.NewMove(board.E2, board.E4), false, 0)

	_, found := tt.Probe(pos.Hash ^ 0xFFFFFFFFFFFF0000)
	if found {
		t.Error("expected a miss for an unstored hash")
	}
}

// TestSEEMonotonicInVictimValue checks SEE's output scales with the
// captured piece's value when nothing else about the exchange changes: an
// undefended knight and an undefended queen sitting on otherwise
// equivalent squares must produce strictly ordered SEE scores, since SEE
// pruning and capture ordering both rely on bigger captures scoring
// higher when the exchange itself isn't more favorable for the defender.
func TestSEEMonotonicInVictimValue(t *testing.T) {
	knightPos, err := board.ParseFEN("4k3/8/8/3n4/4P3/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	queenPos, err := board.ParseFEN("4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	capture := board.NewMove(board.E4, board.D5)

	knightSEE := SEE(knightPos, capture)
	queenSEE := SEE(queenPos, capture)

	if queenSEE <= knightSEE {
		t.Errorf("SEE(capture queen)=%d should exceed SEE(capture knight)=%d: neither capture is defended", queenSEE, knightSEE)
	}
	if knightSEE != KnightValue {
		t.Errorf("undefended knight capture SEE = %d, want exactly %d", knightSEE, KnightValue)
	}
	if queenSEE != QueenValue {
		t.Errorf("undefended queen capture SEE = %d, want exactly %d", queenSEE, QueenValue)
	}
}
