package storage

import (
	"os"
	"testing"

	"github.com/hailam/chessplay/internal/config"
	"github.com/hailam/chessplay/internal/engine"
)

func TestDefaultEnginePreferences(t *testing.T) {
	prefs := DefaultEnginePreferences()
	if prefs.HashMB != 64 {
		t.Errorf("Expected 64MB hash, got %d", prefs.HashMB)
	}
	if prefs.Threads != 1 {
		t.Errorf("Expected 1 thread, got %d", prefs.Threads)
	}
	if prefs.MoveOverheadMS != 10 {
		t.Errorf("Expected 10ms move overhead, got %d", prefs.MoveOverheadMS)
	}
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDir := t.TempDir()
	if err := os.Setenv("XDG_DATA_HOME", tmpDir); err != nil {
		t.Fatalf("Setenv: %v", err)
	}
	s, err := NewStorage()
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	prefs := DefaultEnginePreferences()
	prefs.HashMB = 256
	prefs.Threads = 4
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got.HashMB != 256 || got.Threads != 4 {
		t.Errorf("LoadPreferences = %+v, want HashMB=256 Threads=4", got)
	}
}

func TestLoadPreferencesDefaultsWhenUnset(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got.HashMB != DefaultEnginePreferences().HashMB {
		t.Errorf("expected default preferences, got %+v", got)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	p := config.Default()
	p.RazorBaseMargin = 350
	if err := s.SaveParams(p); err != nil {
		t.Fatalf("SaveParams: %v", err)
	}

	got, err := s.LoadParams()
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if got.RazorBaseMargin != 350 {
		t.Errorf("RazorBaseMargin = %d, want 350", got.RazorBaseMargin)
	}
}

func TestPawnCacheRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	entries := []engine.PawnEntry{
		{Key: 1234, MgScore: 10, EgScore: -5},
		{Key: 5678, MgScore: -20, EgScore: 30},
	}
	if err := s.SavePawnCache(entries); err != nil {
		t.Fatalf("SavePawnCache: %v", err)
	}

	got, err := s.LoadPawnCache()
	if err != nil {
		t.Fatalf("LoadPawnCache: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i] != e {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestDataPaths(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Setenv("XDG_DATA_HOME", tmpDir); err != nil {
		t.Fatalf("Setenv: %v", err)
	}

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
}
