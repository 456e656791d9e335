package engine

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

// walkAndUnwind recursively plays every legal move to the given depth and
// asserts that unmaking it restores the position's hash, material/PST
// score, and phase counter bit-for-bit — the property every pruning and
// reduction technique in the search silently depends on.
func walkAndUnwind(t *testing.T, pos *board.Position, depth int) {
	if depth == 0 {
		return
	}

	beforeHash := pos.Hash
	beforePST := pos.MaterialPST
	beforePhase := pos.Phase
	beforePawnKey := pos.PawnKey
	beforeMaterialKey := pos.MaterialKey
	beforeMinorKey := pos.MinorKey
	beforeNonPawn := pos.NonPawnKey

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		if !undo.Valid {
			continue
		}

		walkAndUnwind(t, pos, depth-1)

		pos.UnmakeMove(move, undo)

		if pos.Hash != beforeHash {
			t.Fatalf("move %v: Hash not restored: got %d, want %d", move, pos.Hash, beforeHash)
		}
		if pos.MaterialPST != beforePST {
			t.Fatalf("move %v: MaterialPST not restored: got %v, want %v", move, pos.MaterialPST, beforePST)
		}
		if pos.Phase != beforePhase {
			t.Fatalf("move %v: Phase not restored: got %d, want %d", move, pos.Phase, beforePhase)
		}
		if pos.PawnKey != beforePawnKey {
			t.Fatalf("move %v: PawnKey not restored: got %d, want %d", move, pos.PawnKey, beforePawnKey)
		}
		if pos.MaterialKey != beforeMaterialKey {
			t.Fatalf("move %v: MaterialKey not restored: got %d, want %d", move, pos.MaterialKey, beforeMaterialKey)
		}
		if pos.MinorKey != beforeMinorKey {
			t.Fatalf("move %v: MinorKey not restored: got %d, want %d", move, pos.MinorKey, beforeMinorKey)
		}
		if pos.NonPawnKey != beforeNonPawn {
			t.Fatalf("move %v: NonPawnKey not restored: got %v, want %v", move, pos.NonPawnKey, beforeNonPawn)
		}
	}
}

func TestMakeUnmakeRoundTrip(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
		"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
		"rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2",
	}

	for _, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		walkAndUnwind(t, pos, 3)
	}
}
