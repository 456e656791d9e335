package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/storage"
	"github.com/hailam/chessplay/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", 1, "number of Lazy SMP search threads")
	paramsFile = flag.String("params", "", "path to a JSON tuned parameter set (overrides saved/default)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	store, err := storage.NewStorage()
	if err != nil {
		log.Printf("Warning: persistent storage unavailable: %v", err)
		store = nil
	}

	hash, threadCount := *hashMB, *threads
	if store != nil {
		if prefs, err := store.LoadPreferences(); err == nil {
			if !hashFlagSet() {
				hash = prefs.HashMB
			}
			if !threadsFlagSet() {
				threadCount = prefs.Threads
			}
		}
	}

	eng := engine.NewEngine(hash)
	eng.SetThreads(threadCount)

	if *paramsFile != "" {
		if err := eng.LoadParamsFile(*paramsFile); err != nil {
			log.Printf("Warning: could not load tuned parameters from %s: %v", *paramsFile, err)
		}
	} else if store != nil {
		if p, err := store.LoadParams(); err == nil {
			eng.SetParams(p)
		}
	}

	if store != nil {
		if entries, err := store.LoadPawnCache(); err == nil && len(entries) > 0 {
			eng.LoadPawnTableEntries(entries)
			log.Printf("Warm-started pawn hash cache with %d entries", len(entries))
		}
	}

	protocol := uci.New(eng)
	protocol.SetStorage(store)
	if store != nil {
		if prefs, err := store.LoadPreferences(); err == nil {
			protocol.SetMoveOverhead(time.Duration(prefs.MoveOverheadMS) * time.Millisecond)
		}
	}
	// protocol.Run() calls os.Exit on "quit", persisting the pawn cache and
	// closing storage itself before exiting.
	protocol.Run()
}

func hashFlagSet() bool {
	return flagWasSet("hash")
}

func threadsFlagSet() bool {
	return flagWasSet("threads")
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
