// Command bench runs the engine's fixed search-node benchmark: a
// depth-limited suite over engine.BenchPositions whose total node count and
// nodes-per-second figure serve as a stable regression signal across
// commits and as the profiling target for a PGO build.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"stella/internal/board"
	"stella/internal/engine"
	"stella/internal/nnue"
)

var (
	depth      = flag.Int("depth", 12, "search depth per position")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", 1, "search threads")
	nnuePath   = flag.String("nnue", "", "path to NNUE weight file (classical material eval if empty)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	var weights *nnue.Weights
	if *nnuePath != "" {
		f, err := os.Open(*nnuePath)
		if err != nil {
			log.Fatalf("opening NNUE weights: %v", err)
		}
		w, err := nnue.Load(f)
		f.Close()
		if err != nil {
			log.Fatalf("loading NNUE weights: %v", err)
		}
		weights = w
	}

	eng := engine.NewEngine(*hashMB, weights)
	eng.SetThreads(*threads)

	var totalNodes uint64
	start := time.Now()

	for i, fen := range engine.BenchPositions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			log.Fatalf("position %d: %v", i, err)
		}
		eng.Clear()
		eng.SearchWithLimits(pos, engine.SearchLimits{Depth: *depth})
		totalNodes += eng.Nodes()
	}

	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	fmt.Printf("%d positions, depth %d\n", len(engine.BenchPositions), *depth)
	fmt.Printf("%d nodes %.0f nps\n", totalNodes, nps)
	fmt.Printf("time %s\n", elapsed)
}
