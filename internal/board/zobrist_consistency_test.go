package board

import "testing"

// TestHashMoveOrderIndependence plays the same four half-moves in two
// different orders that commute (neither knight move interferes with the
// squares the other touches) and checks the resulting position's
// incrementally maintained hash, not just the board layout, agrees —
// exactly the case that lets the search treat transposed move orders as
// the same transposition-table entry.
func TestHashMoveOrderIndependence(t *testing.T) {
	playUCI := func(moves ...string) *Position {
		pos := NewPosition()
		for _, mv := range moves {
			from := NewSquare(int(mv[0]-'a'), int(mv[1]-'1'))
			to := NewSquare(int(mv[2]-'a'), int(mv[3]-'1'))
			legal := pos.GenerateLegalMoves()
			var found Move
			for i := 0; i < legal.Len(); i++ {
				m := legal.Get(i)
				if m.From() == from && m.To() == to && !m.IsPromotion() {
					found = m
					break
				}
			}
			if found == NoMove {
				t.Fatalf("no legal move %s from position %s", mv, pos.ToFEN())
			}
			pos.MakeMove(found)
			pos.UpdateCheckers()
		}
		return pos
	}

	a := playUCI("g1f3", "g8f6", "b1c3", "b8c6")
	b := playUCI("b1c3", "b8c6", "g1f3", "g8f6")

	if a.ToFEN() != b.ToFEN() {
		t.Fatalf("move orders did not reach the same position: %s vs %s", a.ToFEN(), b.ToFEN())
	}
	if a.Hash != b.Hash {
		t.Errorf("same position reached via different move orders hashed differently: %016x vs %016x", a.Hash, b.Hash)
	}
	if a.PawnKey != b.PawnKey || a.MaterialKey != b.MaterialKey || a.MinorKey != b.MinorKey || a.NonPawnKey != b.NonPawnKey {
		t.Error("auxiliary Zobrist keys diverged between transposed move orders")
	}
}

// TestHashMatchesFromScratchComputation checks the incrementally updated
// Hash field, maintained by MakeMove/UnmakeMove touching only the squares
// a move affects, agrees with ComputeHash's full recomputation from board
// state. A drift here would mean some move type updates the incremental
// hash incorrectly while leaving the board itself correct, a bug perft
// alone can't catch since perft never inspects Hash.
func TestHashMatchesFromScratchComputation(t *testing.T) {
	positions := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
		"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
	}

	for _, fen := range positions {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got, want := pos.Hash, pos.ComputeHash(); got != want {
			t.Errorf("%s: incremental Hash %016x != ComputeHash() %016x", fen, got, want)
		}

		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len() && i < 8; i++ {
			move := moves.Get(i)
			undo := pos.MakeMove(move)
			if !undo.Valid {
				continue
			}
			if got, want := pos.Hash, pos.ComputeHash(); got != want {
				t.Errorf("%s after %v: incremental Hash %016x != ComputeHash() %016x", fen, move, got, want)
			}
			pos.UnmakeMove(move, undo)
		}
	}
}
