package engine

// BenchPositions is the fixed corpus a "bench" run searches to a caller-
// supplied depth: the standard start position plus a spread of common
// tactical middlegames and a few sparse endgames, chosen to exercise every
// major search and evaluation code path. Searched by the standalone bench
// binary (cmd/bench), so a given network and binary always produce the
// same total node count for PGO comparisons.
var BenchPositions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
	"r1bqk1nr/pppp1ppp/2n5/2b1p3/2B1P3/2N2N2/PPPP1PPP/R1BQK2R w KQkq - 6 5",
	"rnbq1rk1/ppp1bppp/4pn2/3p4/2PP4/2N1PN2/PP3PPP/R1BQKB1R w KQ - 2 7",
	"r2qkbnr/ppp1pppp/2n5/3p1b2/3P4/5N2/PPP1PPPP/RNBQKB1R w KQkq - 4 4",
	"rnbqkb1r/pp1p1ppp/2p2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 0 4",
	"r1bqkbnr/ppp2ppp/2np4/4p3/2B1P3/2N2N2/PPPP1PPP/R1BQK2R w KQkq - 2 5",
	"rnbqkbnr/pp1ppppp/8/2p5/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2",
	"r1bq1rk1/ppp2ppp/2np1n2/2b1p3/2B1P3/2NP1N2/PPP2PPP/R1BQ1RK1 w - - 2 8",
	"8/8/8/8/8/4k3/4P3/4K3 w - - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/8/2KP4/8/8/8/4k3 w - - 0 1",
	"rnbqkb1r/ppp1pppp/5n2/3p4/2PP4/2N5/PP2PPPP/R1BQKBNR b KQkq - 2 3",
	"2kr3r/pp1q1ppp/2n1b3/2b1p3/4P3/2N1BN2/PPP2PPP/R2QR1K1 w - - 0 12",
	"r1bqkb1r/pppp1ppp/2n2n2/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 5 4",
	"4rrk1/pp1n1pp1/q5p1/P1pP4/2n3P1/7P/1P3PB1/R2Q1RK1 w - - 0 1",
	"1k6/1b6/8/8/7R/8/8/1K6 w - - 0 1",
	"2rqkb1r/pb1n1ppp/1pn1p3/2ppP3/3P4/2N1BN2/PPP1BPPP/R2Q1RK1 w k - 0 10",
	"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
}
