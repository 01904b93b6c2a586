// Package resolve cross-checks the reference codes between normalized
// tables and reports coverage. It is a diagnostic side channel: it never
// mutates data and never fails a run, because reference gaps are expected
// in real registry extracts.
package resolve

import (
	"go.uber.org/zap"

	"faa_registry/internal/tables"
)

// DefaultCoverageFloor is the matched fraction below which a reference
// column draws a warning.
const DefaultCoverageFloor = 0.90

// Coverage is one column's resolution measurement. Rows with an empty code
// are out of scope; a blank reference is legitimate in source data.
type Coverage struct {
	Column     string
	Referenced int // rows carrying a non-empty code
	Matched    int // of those, rows whose code exists in the reference table
}

// Percent is the matched fraction in percent. A column nothing references
// counts as fully covered.
func (c Coverage) Percent() float64 {
	if c.Referenced == 0 {
		return 100
	}
	return float64(c.Matched) / float64(c.Referenced) * 100
}

// Report holds every coverage measurement from one run.
type Report struct {
	Floor   float64
	Entries []Coverage
}

// Warnings lists the entries below the floor.
func (r *Report) Warnings() []Coverage {
	var w []Coverage
	for _, c := range r.Entries {
		if c.Percent() < r.Floor*100 {
			w = append(w, c)
		}
	}
	return w
}

// Check measures aircraft make/model and engine code coverage against the
// reference tables. A floor of zero or below falls back to
// DefaultCoverageFloor. Low coverage is logged as a warning and recorded
// in the report, never returned as an error.
func Check(snap *tables.Snapshot, floor float64, logger *zap.Logger) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	if floor <= 0 {
		floor = DefaultCoverageFloor
	}

	makeModels := make(map[string]struct{}, len(snap.MakeModels))
	for _, m := range snap.MakeModels {
		makeModels[m.MfrMdlCode] = struct{}{}
	}
	engines := make(map[string]struct{}, len(snap.Engines))
	for _, e := range snap.Engines {
		engines[e.EngineCode] = struct{}{}
	}

	var mm, eng Coverage
	mm.Column = "mfr_mdl_code"
	eng.Column = "engine_code"
	for _, a := range snap.Aircraft {
		if a.MfrMdlCode != "" {
			mm.Referenced++
			if _, ok := makeModels[a.MfrMdlCode]; ok {
				mm.Matched++
			}
		}
		if a.EngineCode != "" {
			eng.Referenced++
			if _, ok := engines[a.EngineCode]; ok {
				eng.Matched++
			}
		}
	}

	report := &Report{Floor: floor, Entries: []Coverage{mm, eng}}
	for _, c := range report.Entries {
		if c.Percent() < floor*100 {
			logger.Warn("reference coverage below floor",
				zap.String("column", c.Column),
				zap.Int("referenced", c.Referenced),
				zap.Int("matched", c.Matched),
				zap.Float64("percent", c.Percent()),
				zap.Float64("floor_percent", floor*100))
			continue
		}
		logger.Info("reference coverage",
			zap.String("column", c.Column),
			zap.Int("referenced", c.Referenced),
			zap.Int("matched", c.Matched),
			zap.Float64("percent", c.Percent()))
	}
	return report
}
