package board

import "testing"

// TestPerftKiwipeteDeep and TestPerftPosition3Deep exercise the two depths
// large enough to catch generator bugs the shallower counts in
// perft_test.go can't: a single missed edge case only shows up once the
// node count is large enough to reach it by chance. Skipped under -short
// since depth 5/6 take seconds, not milliseconds.
func TestPerftKiwipeteDeep(t *testing.T) {
	if testing.Short() {
		t.Skip("perft(5) from Kiwipete is expensive; skipping under -short")
	}

	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	const want = 193690690
	if got := perft(pos, 5); got != want {
		t.Errorf("perft(5) = %d, want %d", got, want)
	}
}

func TestPerftPosition3Deep(t *testing.T) {
	if testing.Short() {
		t.Skip("perft(6) from position 3 is expensive; skipping under -short")
	}

	pos, err := ParseFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	const want = 11030083
	if got := perft(pos, 6); got != want {
		t.Errorf("perft(6) = %d, want %d", got, want)
	}
}
