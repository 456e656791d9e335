package engine

import (
	"strconv"
	"strings"
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

// transformedFEN rebuilds a position's FEN under a square/piece transform
// that swaps the side to move and every piece's color. mirrorRank flips
// the board top-to-bottom (file unchanged); otherwise it flips left-to-
// right (rank unchanged). The rank flip gives exactly the same position
// viewed from the other player's seat, so Evaluate, which scores from the
// side to move's point of view, returns the same value for both;
// TestEvalSymmetryFlip checks the left-to-right variant for negation.
func transformedFEN(t *testing.T, fen string, mirrorRank bool) string {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}

	transformSquare := func(sq board.Square) board.Square {
		if mirrorRank {
			return sq.Mirror() // rank flip: sq ^ 56
		}
		return sq ^ 7 // file flip
	}

	var grid [64]board.Piece
	for i := range grid {
		grid[i] = board.NoPiece
	}
	for sq := board.Square(0); sq < 64; sq++ {
		p := pos.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		newPiece := board.NewPiece(p.Type(), p.Color().Other())
		grid[transformSquare(sq)] = newPiece
	}

	var ranks []string
	for rank := 7; rank >= 0; rank-- {
		var b strings.Builder
		empty := 0
		for file := 0; file < 8; file++ {
			p := grid[board.NewSquare(file, rank)]
			if p == board.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			b.WriteString(p.String())
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
		ranks = append(ranks, b.String())
	}
	boardPart := strings.Join(ranks, "/")

	side := "b"
	if pos.SideToMove == board.Black {
		side = "w"
	}

	castling := ""
	if mirrorRank {
		if pos.CastlingRights.CanCastle(board.Black, true) {
			castling += "K"
		}
		if pos.CastlingRights.CanCastle(board.Black, false) {
			castling += "Q"
		}
		if pos.CastlingRights.CanCastle(board.White, true) {
			castling += "k"
		}
		if pos.CastlingRights.CanCastle(board.White, false) {
			castling += "q"
		}
	} else {
		// file flip also swaps kingside<->queenside
		if pos.CastlingRights.CanCastle(board.Black, false) {
			castling += "K"
		}
		if pos.CastlingRights.CanCastle(board.Black, true) {
			castling += "Q"
		}
		if pos.CastlingRights.CanCastle(board.White, false) {
			castling += "k"
		}
		if pos.CastlingRights.CanCastle(board.White, true) {
			castling += "q"
		}
	}
	if castling == "" {
		castling = "-"
	}

	ep := "-"
	if pos.EnPassant.IsValid() {
		newEP := transformSquare(pos.EnPassant)
		file := string(rune('a' + newEP.File()))
		rank := strconv.Itoa(newEP.Rank() + 1)
		ep = file + rank
	}

	return boardPart + " " + side + " " + castling + " " + ep + " " +
		strconv.Itoa(pos.HalfMoveClock) + " " + strconv.Itoa(pos.FullMoveNumber)
}

var symmetryFENs = []string{
	board.StartFEN,
	"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq -",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
	"4k3/8/8/8/8/8/4P3/4K3 w - -",
}

func TestEvalSymmetryMirror(t *testing.T) {
	for _, fen := range symmetryFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		mirrored, err := board.ParseFEN(transformedFEN(t, fen, true))
		if err != nil {
			t.Fatalf("ParseFEN(mirror of %q): %v", fen, err)
		}

		got, want := Evaluate(pos), Evaluate(mirrored)
		if got != want {
			t.Errorf("fen %q: Evaluate(pos)=%d, Evaluate(mirror(pos))=%d", fen, got, want)
		}
	}
}

func TestEvalSymmetryFlip(t *testing.T) {
	for _, fen := range symmetryFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		flipped, err := board.ParseFEN(transformedFEN(t, fen, false))
		if err != nil {
			t.Fatalf("ParseFEN(flip of %q): %v", fen, err)
		}

		got, want := Evaluate(pos), -Evaluate(flipped)
		if got != want {
			t.Errorf("fen %q: Evaluate(pos)=%d, -Evaluate(flip(pos))=%d", fen, got, want)
		}
	}
}
