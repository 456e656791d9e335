package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesPublishedConstants(t *testing.T) {
	p := Default()
	if p.CorrectionGravityDivisor != 16 {
		t.Errorf("CorrectionGravityDivisor = %d, want 16", p.CorrectionGravityDivisor)
	}
	if p.LMRCoefficient != 21.46 {
		t.Errorf("LMRCoefficient = %v, want 21.46", p.LMRCoefficient)
	}
	if p.FutilityMargins != [4]int{0, 200, 300, 500} {
		t.Errorf("FutilityMargins = %v, want [0 200 300 500]", p.FutilityMargins)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")

	want := Default()
	want.RFPMarginPerDepth = 90
	want.LMRCoefficient = 20.0

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RFPMarginPerDepth != 90 {
		t.Errorf("RFPMarginPerDepth = %d, want 90", got.RFPMarginPerDepth)
	}
	if got.LMRCoefficient != 20.0 {
		t.Errorf("LMRCoefficient = %v, want 20.0", got.LMRCoefficient)
	}
	// Fields not present in the override should keep their default value.
	if got.CorrectionClamp != Default().CorrectionClamp {
		t.Errorf("CorrectionClamp = %d, want default %d", got.CorrectionClamp, Default().CorrectionClamp)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error loading nonexistent file")
	}
}

func TestLoadPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(path, []byte(`{"razor_base_margin": 250}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RazorBaseMargin != 250 {
		t.Errorf("RazorBaseMargin = %d, want 250", got.RazorBaseMargin)
	}
	if got.RazorPerDepth != Default().RazorPerDepth {
		t.Errorf("RazorPerDepth = %d, want untouched default %d", got.RazorPerDepth, Default().RazorPerDepth)
	}
}
