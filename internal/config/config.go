// Package config holds the engine's search-tunable parameters in one
// struct, the way the teacher keeps its Difficulty/DifficultySettings map
// as data rather than scattered constants. Every field ships with the
// published default used by the corresponding hardcoded constant it
// replaces; nothing here assumes the defaults are optimal for a given
// position or time control, only that they're a reasonable starting point
// until overridden.
package config

import (
	"encoding/json"
	"os"
)

// Params is the full set of SPSA-tunable search parameters: history
// gravity constants, SEE piece values, the LMR table coefficient, and the
// RFP/razoring/NMP/futility margins. A *Params flows from Engine down into
// the Searcher's workers and the correction history tables, so a tuning
// session only ever needs to touch this one struct.
type Params struct {
	// Correction history gravity (see internal/engine/correction.go).
	CorrectionGravityDivisor int `json:"correction_gravity_divisor"`
	CorrectionClamp          int `json:"correction_clamp"`
	CorrectionBonusScale     int `json:"correction_bonus_scale"`
	CorrectionBonusClamp     int `json:"correction_bonus_clamp"`

	// SEE piece values, independent of the main evaluation's material
	// weights so the exchange evaluator can be tuned on its own.
	// Indexed by board.PieceType: Pawn, Knight, Bishop, Rook, Queen, King.
	SEEValues [6]int `json:"see_values"`

	// Reverse futility pruning.
	RFPMarginPerDepth int `json:"rfp_margin_per_depth"`
	RFPImprovingBonus int `json:"rfp_improving_bonus"`

	// Razoring.
	RazorBaseMargin int `json:"razor_base_margin"`
	RazorPerDepth   int `json:"razor_per_depth"`

	// Futility pruning margins, indexed by remaining depth (0..3).
	FutilityMargins [4]int `json:"futility_margins"`

	// Null move pruning.
	NMPMinDepth      int `json:"nmp_min_depth"`
	NMPBaseReduction int `json:"nmp_base_reduction"`

	// Late move reduction table coefficient (Stockfish-style
	// coefficient * log(depth) * log(moveCount) / 1024).
	LMRCoefficient float64 `json:"lmr_coefficient"`

	// Quiet-move history table.
	HistoryMax int `json:"history_max"`
}

// Default returns the published default parameter set. These numbers
// match the constants the engine shipped with before they became
// tunable, so loading Default() changes nothing about search behavior.
func Default() *Params {
	return &Params{
		CorrectionGravityDivisor: 16,
		CorrectionClamp:          16000,
		CorrectionBonusScale:     8,
		CorrectionBonusClamp:     256,

		SEEValues: [6]int{100, 320, 330, 500, 900, 20000},

		RFPMarginPerDepth: 80,
		RFPImprovingBonus: 20,

		RazorBaseMargin: 300,
		RazorPerDepth:   100,

		FutilityMargins: [4]int{0, 200, 300, 500},

		NMPMinDepth:      3,
		NMPBaseReduction: 3,

		LMRCoefficient: 21.46,

		HistoryMax: 400000,
	}
}

// Load reads a parameter set from a JSON file, starting from Default()
// so a partial override file only needs to name the fields it changes.
func Load(path string) (*Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the parameter set to path as JSON.
func Save(path string, p *Params) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
