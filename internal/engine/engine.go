package engine

import (
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/config"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search. A fixed MoveTime takes
// priority; otherwise, if WTime/BTime are set, the engine's TimeManager
// derives soft/hard budgets from the clock and scales the soft one by
// best-move stability, score-variance, and node-fraction signals as the
// iterative deepening loop progresses.
type SearchLimits struct {
	Depth     int           // Maximum depth (0 = no limit)
	Nodes     uint64        // Maximum nodes (0 = no limit)
	MoveTime  time.Duration // Time for this move (0 = no limit)
	Infinite  bool          // Search until stopped
	WTime     time.Duration // White's remaining clock time
	BTime     time.Duration // Black's remaining clock time
	WInc      time.Duration // White's per-move increment
	BInc      time.Duration // Black's per-move increment
	MovesToGo int           // Moves remaining until next time control (0 = sudden death)
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // ~2-3 ply, 500ms
	Medium                   // ~4-5 ply, 2s
	Hard                     // ~6+ ply, 5s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 5, MoveTime: 2 * time.Second},
	Hard:   {Depth: 7, MoveTime: 5 * time.Second},
}

// Engine is the chess AI engine.
type Engine struct {
	searcher   *Searcher
	tt         *TranspositionTable
	hashMB     int
	difficulty Difficulty
	threads    int

	// Game history, set via SetPositionHistory, consulted for repetition
	// detection on every search.
	positionHistory []uint64

	// Total nodes searched during the most recent SearchWithLimits call.
	lastNodes uint64

	// Current tunable parameter set.
	params *config.Params

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher:   NewSearcher(tt),
		tt:         tt,
		hashMB:     ttSizeMB,
		difficulty: Medium,
		threads:    1,
		params:     config.Default(),
	}
}

// HashMB returns the transposition table's current size in megabytes.
func (e *Engine) HashMB() int {
	return e.hashMB
}

// SetParams loads a tuned parameter set, pushing it through the searcher
// to every worker and into the package-level SEE values.
func (e *Engine) SetParams(p *config.Params) {
	e.params = p
	e.searcher.SetParams(p)
}

// Params returns the engine's current tunable parameter set.
func (e *Engine) Params() *config.Params {
	return e.params
}

// LoadParamsFile loads a tuned parameter set from a JSON file and applies
// it immediately.
func (e *Engine) LoadParamsFile(path string) error {
	p, err := config.Load(path)
	if err != nil {
		return err
	}
	e.SetParams(p)
	return nil
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// SetThreads resizes the Lazy SMP worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.threads = n
	e.searcher.SetThreads(e.tt, n)
}

// Threads returns the current worker pool size.
func (e *Engine) Threads() int {
	return e.threads
}

// ResizeHash replaces the transposition table with one of the given size
// in megabytes, discarding its contents.
func (e *Engine) ResizeHash(sizeMB int) {
	e.tt = NewTranspositionTable(sizeMB)
	e.hashMB = sizeMB
	e.searcher = NewSearcherWithThreads(e.tt, e.threads)
	e.searcher.SetParams(e.params)
}

// SetPositionHistory records the game's move history (as Zobrist hashes)
// so the search can detect repetitions reached through moves played
// before the current search root.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.positionHistory = hashes
}

// Search finds the best move for the given position.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// SearchWithLimits finds the best move with specific search limits. Time
// budgets come from the TimeManager: a fixed MoveTime is honored directly,
// otherwise the soft/hard limits are derived from the clock and the soft
// one is rescaled every iteration by three stability signals (best-move
// stability, root score variance, and node-fraction on the best move).
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.searcher.Reset()
	e.tt.NewSearch()
	e.searcher.SetRootHistory(e.positionHistory)

	tm := NewTimeManager()
	tm.Init(UCILimits{
		Time:      [2]time.Duration{limits.WTime, limits.BTime},
		Inc:       [2]time.Duration{limits.WInc, limits.BInc},
		MovesToGo: limits.MovesToGo,
		MoveTime:  limits.MoveTime,
		Depth:     limits.Depth,
		Nodes:     limits.Nodes,
		Infinite:  limits.Infinite,
	}, pos.SideToMove, 2*(pos.FullMoveNumber-1))

	var bestMove board.Move
	var bestScore int
	var prevScore int
	stability := 0
	changes := 0

	// Determine maximum depth
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	// Aspiration window parameters
	const initialWindow = 50 // Start with ±50 centipawns

	// Iterative deepening
	for depth := 1; depth <= maxDepth; depth++ {
		// Check time before starting new iteration
		if depth > 1 && tm.PastOptimum() {
			break
		}

		var move board.Move
		var score int

		// Use aspiration windows after depth 4 and when we have a previous score
		if depth >= 5 && bestMove != board.NoMove {
			window := initialWindow
			alpha := bestScore - window
			beta := bestScore + window

			// Aspiration window search with widening
			for {
				move, score = e.searcher.SearchWithBounds(pos, depth, alpha, beta)

				// Check if search was stopped
				if e.searcher.stopFlag.Load() {
					break
				}

				if score <= alpha {
					// Fail low - widen window down
					alpha = -Infinity
				} else if score >= beta {
					// Fail high - widen window up
					beta = Infinity
				} else {
					// Score within window, we're done
					break
				}

				// If both bounds are infinite, we've done a full search
				if alpha == -Infinity && beta == Infinity {
					break
				}
			}
		} else {
			// Full window search for early depths
			move, score = e.searcher.Search(pos, depth)
		}

		// Check if search was stopped
		if e.searcher.stopFlag.Load() {
			break
		}

		// Update best-move stability and change counters before
		// overwriting bestMove/bestScore.
		if move != board.NoMove {
			if move == bestMove {
				stability++
				changes = 0
			} else if bestMove != board.NoMove {
				stability = 0
				changes++
			}
			bestMove = move
			prevScore = bestScore
			bestScore = score
		}

		// Report info
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    bestScore,
				Nodes:    e.searcher.Nodes(),
				Time:     tm.Elapsed(),
				PV:       e.searcher.GetPV(),
				HashFull: e.tt.HashFull(),
			})
		}

		// Early termination: found mate
		if score > MateScore-100 || score < -MateScore+100 {
			break
		}

		// Rescale the soft time budget by the three stability signals for
		// the next iteration's go/no-go check.
		if depth >= 5 && limits.MoveTime == 0 && !limits.Infinite {
			tm.AdjustForStability(stability)
			tm.AdjustForInstability(changes)
			tm.AdjustForScoreVariance(bestScore - prevScore)
			tm.AdjustForNodeFraction(e.searcher.RootNodeFraction())
		}

		if tm.ShouldStop() {
			break
		}
	}

	e.lastNodes = e.searcher.Nodes()
	return bestMove
}

// PawnTableEntries returns the shared pawn hash table's occupied entries,
// for persisting a warm-start snapshot between process restarts.
func (e *Engine) PawnTableEntries() []PawnEntry {
	return e.searcher.PawnTable().Entries()
}

// LoadPawnTableEntries restores a previously persisted pawn hash snapshot.
func (e *Engine) LoadPawnTableEntries(entries []PawnEntry) {
	e.searcher.PawnTable().LoadEntries(entries)
}

// LastSearchNodes returns the total node count from the most recent
// SearchWithLimits call, for bench-style node/NPS reporting.
func (e *Engine) LastSearchNodes() uint64 {
	return e.lastNodes
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearOrderer()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
