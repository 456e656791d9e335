package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/hailam/chessplay/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// ttBucketSize is the number of entries sharing an index. Probing scans the
// whole bucket for a verifier match; storing picks the worst slot in the
// bucket by the empty > age > depth ordering.
const ttBucketSize = 4

// packedEntry packs everything but the static eval into one 64-bit word:
// a 16-bit verifier (not the full hash — collisions are possible but rare
// and self-correcting since the search re-verifies any move it tries), the
// 16-bit encoded move, a 16-bit score, an 8-bit depth, and a byte carrying
// the 2-bit flag, a PV bit, and a 5-bit generation counter. Each of these
// fields fits in a single machine word so probes and stores are plain
// atomic loads/stores — no locking, benign torn reads are caught by the
// verifier mismatching.
type packedEntry uint64

func makePackedEntry(verifier uint16, move board.Move, score int16, depth int8, flag TTFlag, age uint8, isPV bool) packedEntry {
	var pvBit uint8
	if isPV {
		pvBit = 1
	}
	meta := uint8(flag)&0x3 | pvBit<<2 | (age&0x1F)<<3
	return packedEntry(verifier) |
		packedEntry(uint16(move))<<16 |
		packedEntry(uint16(score))<<32 |
		packedEntry(uint8(depth))<<48 |
		packedEntry(meta)<<56
}

func (e packedEntry) verifier() uint16  { return uint16(e) }
func (e packedEntry) move() board.Move  { return board.Move(uint16(e >> 16)) }
func (e packedEntry) score() int16      { return int16(uint16(e >> 32)) }
func (e packedEntry) depth() int8       { return int8(uint8(e >> 48)) }
func (e packedEntry) flag() TTFlag      { return TTFlag(uint8(e>>56) & 0x3) }
func (e packedEntry) isPV() bool        { return (uint8(e>>56)>>2)&0x1 != 0 }
func (e packedEntry) age() uint8        { return uint8(e>>56) >> 3 }
func (e packedEntry) empty() bool       { return e == 0 }

// TTEntry is the unpacked view of a probe result, for callers that don't
// want to deal with the packed representation.
type TTEntry struct {
	Verifier   uint16
	BestMove   board.Move
	Score      int16
	StaticEval int16
	Depth      int8
	Flag       TTFlag
	Age        uint8
	IsPV       bool
}

func (e packedEntry) unpack() TTEntry {
	return TTEntry{
		Verifier: e.verifier(),
		BestMove: e.move(),
		Score:    e.score(),
		Depth:    e.depth(),
		Flag:     e.flag(),
		Age:      e.age(),
		IsPV:     e.isPV(),
	}
}

// TranspositionTable is a lock-free, bucket-of-4 hash table for storing
// search results. Lazy-SMP workers probe and store concurrently without
// any mutex; races are benign because each slot's fields are accessed as
// plain atomic words and the verifier catches any torn or stale read of
// the primary entry.
type TranspositionTable struct {
	buckets []atomicBucket
	count   uint64 // number of buckets
	age     atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// ttSlot is one transposition entry, split across two atomically accessed
// words: entry carries the verifier/move/score/depth/meta packedEntry, eval
// carries the 16-bit static evaluation computed at that node (as an
// unsigned bit pattern) so a later probe hit can reuse it instead of
// recomputing Evaluate(). A racing Store can tear a Probe's read across
// the two words; entry's verifier still catches a stale/torn read of the
// primary fields, and a torn eval is no worse than a cache miss, since
// it's only ever reused as a pruning/ordering hint, never trusted blindly.
type ttSlot struct {
	entry atomic.Uint64
	eval  atomic.Uint64
}

type atomicBucket [ttBucketSize]ttSlot

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	bucketSize := uint64(ttBucketSize * 16) // 16 bytes per slot (two words)
	numBuckets := (uint64(sizeMB) * 1024 * 1024) / bucketSize
	if numBuckets == 0 {
		numBuckets = 1
	}

	return &TranspositionTable{
		buckets: make([]atomicBucket, numBuckets),
		count:   numBuckets,
	}
}

// bucketIndex maps a hash to a bucket using a fixed-point multiply (the
// high 64 bits of hash*count), avoiding the power-of-2-only restriction a
// plain mask would impose on the table size.
func (tt *TranspositionTable) bucketIndex(hash uint64) uint64 {
	hi, _ := bits.Mul64(hash, tt.count)
	return hi
}

func verifierOf(hash uint64) uint16 {
	return uint16(hash >> 48)
}

// Probe looks up a position in the transposition table.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	idx := tt.bucketIndex(hash)
	bucket := &tt.buckets[idx]
	v := verifierOf(hash)

	for i := 0; i < ttBucketSize; i++ {
		e := packedEntry(bucket[i].entry.Load())
		if !e.empty() && e.verifier() == v {
			tt.hits.Add(1)
			unpacked := e.unpack()
			unpacked.StaticEval = int16(uint16(bucket[i].eval.Load()))
			return unpacked, true
		}
	}

	return TTEntry{}, false
}

// Store saves a position in the transposition table, replacing the worst
// slot in the bucket by empty > age > depth priority: an empty slot is
// always taken first, then a stale-generation slot, then the shallowest
// entry, so deep current-search results survive the longest.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move, isPV bool, staticEval int) {
	idx := tt.bucketIndex(hash)
	bucket := &tt.buckets[idx]
	v := verifierOf(hash)
	currentAge := uint8(tt.age.Load()) & 0x1F

	worst := 0
	worstScore := -1 << 31
	for i := 0; i < ttBucketSize; i++ {
		e := packedEntry(bucket[i].entry.Load())
		if e.empty() {
			worst = i
			break
		}
		if e.verifier() == v {
			worst = i
			break
		}
		// Priority to replace: stale age beats any same-age entry;
		// within the same age, shallower depth is replaced first.
		slotScore := -int(e.depth())
		if e.age() != currentAge {
			slotScore += 1 << 20
		}
		if slotScore > worstScore {
			worstScore = slotScore
			worst = i
		}
	}

	entry := makePackedEntry(v, bestMove, int16(score), int8(depth), flag, currentAge, isPV)
	bucket[worst].entry.Store(uint64(entry))
	bucket[worst].eval.Store(uint64(uint16(int16(staticEval))))
}

// NewSearch increments the age counter for a new search.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.buckets {
		for j := 0; j < ttBucketSize; j++ {
			tt.buckets[i][j].entry.Store(0)
			tt.buckets[i][j].eval.Store(0)
		}
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	used := 0
	sampleSize := 1000
	if uint64(sampleSize) > tt.count {
		sampleSize = int(tt.count)
	}

	currentAge := uint8(tt.age.Load()) & 0x1F
	for i := 0; i < sampleSize; i++ {
		for j := 0; j < ttBucketSize; j++ {
			e := packedEntry(tt.buckets[i][j].entry.Load())
			if !e.empty() && e.age() == currentAge {
				used++
				break
			}
		}
	}

	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entry slots in the table (buckets times bucket size).
func (tt *TranspositionTable) Size() uint64 {
	return tt.count * ttBucketSize
}

// AdjustScoreFromTT adjusts a score read from the transposition table.
// Mate scores need to be adjusted based on ply distance.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
