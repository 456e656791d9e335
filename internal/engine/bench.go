package engine

// BenchPositions is a fixed FEN list searched by the "bench" UCI command,
// giving two builds of the engine a deterministic node-count/NPS signature
// to diff against each other on the same hardware. Deliberately fixed:
// changing this list would break that comparison for anyone tracking it
// across versions.
var BenchPositions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/4P3/2NP1Q2/PPP1N1PP/2KR1B1R w - - 0 13",
	"2kr3r/p1ppqpb1/bn2Qnp1/3PN3/1p2P3/2N4p/PPPBBPPP/R3K2R b KQ - 3 2",
	"rnb2k1r/pp1Pbppp/2p5/q7/2B5/8/PPP1NnPP/RNBQK2R w KQ - 3 9",
	"2r5/3pk3/8/2P5/8/2K5/8/8 w - - 5 4",
	"rnbqkb1r/pp1p1ppp/2p2n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR w KQkq - 0 3",
	"r1bq1rk1/pp2b1pp/n1pp1n2/3P4/2P1P3/2N2N2/PP2QPPP/R1B2RK1 b - - 0 10",
	"4k3/8/8/8/8/8/4K3/8 w - - 0 1",
}
