package engine

import "sync/atomic"

// SharedHistory is a from/to history table shared across all Lazy SMP
// workers, letting a beta cutoff found by one worker immediately shrink the
// late-move reductions every other worker applies to that move; move
// ordering itself uses each worker's own MoveOrderer tables. Plain atomics
// rather than a mutex: a history table tolerates the occasional lost update
// from a race, and the search only ever reads it as a heuristic nudge.
type SharedHistory struct {
	scores [64][64]atomic.Int32
}

// NewSharedHistory creates an empty shared history table.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Get returns the shared history score for a from/to pair.
func (sh *SharedHistory) Get(from, to int) int {
	return int(sh.scores[from][to].Load())
}

// Update adds bonus to the shared history score, halving the whole table
// whenever the updated entry leaves the ±400000 range.
func (sh *SharedHistory) Update(from, to, bonus int) {
	newVal := sh.scores[from][to].Add(int32(bonus))
	if newVal > 400000 || newVal < -400000 {
		sh.age()
	}
}

func (sh *SharedHistory) age() {
	for i := range sh.scores {
		for j := range sh.scores[i] {
			sh.scores[i][j].Store(sh.scores[i][j].Load() / 2)
		}
	}
}

// Clear resets the shared history table.
func (sh *SharedHistory) Clear() {
	for i := range sh.scores {
		for j := range sh.scores[i] {
			sh.scores[i][j].Store(0)
		}
	}
}
