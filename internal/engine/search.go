package engine

import (
	"sync"
	"sync/atomic"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/config"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Pruning constants
const (
	lazyEvalMargin          = 150   // Lazy eval margin for quiescence
	historyPruningThreshold = -4000 // History pruning threshold
	probcutDepth            = 3     // Minimum depth for probcut (Stockfish uses 3)
	probcutMargin           = 200   // Probcut margin above beta
	probcutReduction        = 4     // Probcut depth reduction

	multicutDepth    = 8 // Minimum depth to attempt multi-cut
	multicutMoves    = 6 // Moves sampled before giving up on multi-cut
	multicutRequired = 3 // Cutoffs among the sample needed to prune
)

// LMP (Late Move Pruning) thresholds by depth
// At depth d, prune quiet moves after lmpThreshold[d] moves
var lmpThreshold = [8]int{0, 3, 5, 9, 15, 23, 33, 45}

// Threat extension constants
const (
	threatExtensionMinDepth  = 4   // Minimum depth to consider threat extensions
	threatExtensionThreshold = 200 // Minimum material value to trigger extension (below the Knight/Bishop value, so minors and up qualify)
)

// Feature flags for A/B testing
// Set to false to disable feature and measure ELO impact
const (
	// Tier 1: High-Risk Pruning
	EnableProbcut     = true // worker.go: Probcut pruning - FIXED with Stockfish improvements
	EnableRazoring    = true // worker.go: Razoring
	EnableSingularExt = true // worker.go: Singular extension - includes integrated Multi-Cut
	EnableThreatExt   = true // worker.go: Threat extension - ESSENTIAL

	// Tier 2: Medium-Risk Pruning
	EnableRFP             = false // worker.go: Reverse Futility Pruning - DISABLED (+10%)
	EnableLMP             = true  // worker.go: Late Move Pruning - KEEP (helps)
	EnableSEEPruning      = true  // worker.go: SEE pruning for captures
	EnableHistoryPruning  = false // worker.go: History pruning - DISABLED (+3.5%)
	EnableFutilityPruning = true  // worker.go: Futility pruning - KEEP (helps)

	// Tier 3: Extensions/Reductions
	EnableNMP = true // worker.go: Null Move Pruning
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher drives a Lazy SMP worker pool: every worker searches the same
// root position independently at (roughly) the same depth, sharing the
// transposition table, pawn hash table, and a from/to history table so that
// a cutoff found by one worker immediately adjusts late-move reductions in
// the others, with no direct coordination between them. Killers, the
// move-ordering histories and correction history are per worker.
type Searcher struct {
	workers        []*Worker
	pawnTable      *PawnTable
	sharedHistory  *SharedHistory
	lastPV         []board.Move
	lastBestWorker int
	stopFlag       atomic.Bool
}

// NewSearcher creates a single-threaded searcher.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return NewSearcherWithThreads(tt, 1)
}

// NewSearcherWithThreads creates a searcher backed by a pool of `threads`
// Lazy SMP workers sharing one transposition table, pawn hash table, and
// history table.
func NewSearcherWithThreads(tt *TranspositionTable, threads int) *Searcher {
	if threads < 1 {
		threads = 1
	}
	s := &Searcher{
		pawnTable:     NewPawnTable(4), // 4MB pawn hash table, shared by all workers
		sharedHistory: NewSharedHistory(),
	}
	s.workers = make([]*Worker, threads)
	for i := range s.workers {
		s.workers[i] = NewWorker(i, tt, s.pawnTable, s.sharedHistory, &s.stopFlag)
	}
	return s
}

// SetThreads resizes the worker pool, preserving the shared TT, pawn hash
// table and history so a thread-count change mid-session doesn't discard
// warmed-up state.
func (s *Searcher) SetThreads(tt *TranspositionTable, threads int) {
	if threads < 1 {
		threads = 1
	}
	if len(s.workers) == threads {
		return
	}
	workers := make([]*Worker, threads)
	for i := range workers {
		if i < len(s.workers) {
			workers[i] = s.workers[i]
		} else {
			workers[i] = NewWorker(i, tt, s.pawnTable, s.sharedHistory, &s.stopFlag)
		}
	}
	s.workers = workers
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Reset resets the searcher for a new search.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	for _, w := range s.workers {
		w.Reset()
	}
}

// Nodes returns the total number of nodes searched across all workers.
func (s *Searcher) Nodes() uint64 {
	var total uint64
	for _, w := range s.workers {
		total += w.Nodes()
	}
	return total
}

// Search performs the search at the given depth.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	return s.SearchWithBounds(pos, depth, -Infinity, Infinity)
}

// SetRootHistory sets the position history from the game (for repetition detection).
// This should be called before Search() with hashes from the game's move history.
func (s *Searcher) SetRootHistory(hashes []uint64) {
	for _, w := range s.workers {
		w.SetRootHistory(hashes)
	}
}

// SetExcludedMoves sets the moves to exclude at root (for Multi-PV).
func (s *Searcher) SetExcludedMoves(moves []board.Move) {
	for _, w := range s.workers {
		w.SetExcludedMoves(moves)
	}
}

// SearchWithBounds performs search with custom alpha/beta bounds (for
// aspiration windows). A single worker searches directly; a pool of
// workers searches concurrently, with helper threads given a one-ply
// depth offset (alternating deeper/shallower) to diversify the trees they
// explore, and the highest-scoring result winning, whatever depth it came from.
func (s *Searcher) SearchWithBounds(pos *board.Position, depth, alpha, beta int) (board.Move, int) {
	if len(s.workers) == 1 {
		s.lastBestWorker = 0
		w := s.workers[0]
		w.InitSearch(pos)
		return w.SearchDepth(depth, alpha, beta)
	}

	type workerResult struct {
		move  board.Move
		score int
	}
	results := make([]workerResult, len(s.workers))

	var wg sync.WaitGroup
	for i, w := range s.workers {
		helperDepth := depth
		if i > 0 {
			if i%2 == 1 && helperDepth > 1 {
				helperDepth--
			} else if i%2 == 0 {
				helperDepth++
			}
		}
		wg.Add(1)
		go func(i int, w *Worker, d int) {
			defer wg.Done()
			w.InitSearch(pos)
			move, score := w.SearchDepth(d, alpha, beta)
			results[i] = workerResult{move: move, score: score}
		}(i, w, helperDepth)
	}
	wg.Wait()

	s.lastPV = s.workers[0].GetPV()
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].move == board.NoMove {
			continue
		}
		if results[best].move == board.NoMove || results[i].score > results[best].score {
			best = i
			s.lastPV = s.workers[i].GetPV()
		}
	}
	s.lastBestWorker = best
	return results[best].move, results[best].score
}

// PawnTable returns the shared pawn hash table, for warm-start persistence.
func (s *Searcher) PawnTable() *PawnTable {
	return s.pawnTable
}

// RootNodeFraction returns the fraction of root nodes spent on the best
// move, as found by whichever worker produced the winning result.
func (s *Searcher) RootNodeFraction() float64 {
	if s.lastBestWorker >= len(s.workers) {
		return 1
	}
	return s.workers[s.lastBestWorker].RootNodeFraction()
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	if len(s.workers) == 1 {
		return s.workers[0].GetPV()
	}
	return s.lastPV
}

// ClearOrderer clears the move orderer state for every worker.
func (s *Searcher) ClearOrderer() {
	for _, w := range s.workers {
		w.orderer.Clear()
	}
}

// SetParams pushes a tuned parameter set to every worker, and updates the
// package-level SEE piece values to match.
func (s *Searcher) SetParams(p *config.Params) {
	ApplyParams(p)
	for _, w := range s.workers {
		w.SetParams(p)
	}
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
