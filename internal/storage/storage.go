package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessplay/internal/config"
	"github.com/hailam/chessplay/internal/engine"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyParams      = "tuning_params"
	keyPawnCache   = "pawn_cache"
	keyFirstLaunch = "first_launch"
)

// EnginePreferences stores the UCI setoption-driven settings that should
// survive a process restart: hash size, worker thread count, and move
// overhead.
type EnginePreferences struct {
	HashMB         int       `json:"hash_mb"`
	Threads        int       `json:"threads"`
	MoveOverheadMS int       `json:"move_overhead_ms"`
	LastUsed       time.Time `json:"last_used"`
}

// DefaultEnginePreferences returns the engine's published defaults.
func DefaultEnginePreferences() *EnginePreferences {
	return &EnginePreferences{
		HashMB:         64,
		Threads:        1,
		MoveOverheadMS: 10,
		LastUsed:       time.Now(),
	}
}

// pawnCacheEntry mirrors engine.PawnEntry for JSON persistence; kept
// separate so the wire format doesn't change if the in-memory layout does.
type pawnCacheEntry struct {
	Key     uint64 `json:"key"`
	MgScore int16  `json:"mg"`
	EgScore int16  `json:"eg"`
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB
}

// NewStorage creates a new storage instance.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if this is the first launch.
func (s *Storage) IsFirstLaunch() (bool, error) {
	var firstLaunch bool = true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if err == badger.ErrKeyNotFound {
			firstLaunch = true
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete.
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SavePreferences saves the engine's setoption-derived preferences.
func (s *Storage) SavePreferences(prefs *EnginePreferences) error {
	prefs.LastUsed = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads engine preferences, returning defaults if none
// have been saved yet.
func (s *Storage) LoadPreferences() (*EnginePreferences, error) {
	prefs := DefaultEnginePreferences()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if err == badger.ErrKeyNotFound {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})

	return prefs, err
}

// SaveParams persists a tuned search parameter set, so a tuning session's
// result survives a restart without needing a separate override file.
func (s *Storage) SaveParams(p *config.Params) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyParams), data)
	})
}

// LoadParams loads a persisted tuned parameter set, returning the
// published defaults if none has been saved.
func (s *Storage) LoadParams() (*config.Params, error) {
	p := config.Default()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyParams))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, p)
		})
	})

	return p, err
}

// SavePawnCache persists the non-empty entries of a pawn hash table so the
// next process can warm-start from them instead of beginning cold.
func (s *Storage) SavePawnCache(entries []engine.PawnEntry) error {
	wire := make([]pawnCacheEntry, len(entries))
	for i, e := range entries {
		wire[i] = pawnCacheEntry{Key: e.Key, MgScore: e.MgScore, EgScore: e.EgScore}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPawnCache), data)
	})
}

// LoadPawnCache loads a previously persisted pawn hash cache, returning an
// empty slice (not an error) if none was saved.
func (s *Storage) LoadPawnCache() ([]engine.PawnEntry, error) {
	var wire []pawnCacheEntry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPawnCache))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &wire)
		})
	})
	if err != nil {
		return nil, err
	}

	entries := make([]engine.PawnEntry, len(wire))
	for i, e := range wire {
		entries[i] = engine.PawnEntry{Key: e.Key, MgScore: e.MgScore, EgScore: e.EgScore}
	}
	return entries, nil
}
