package resolve

import (
	"testing"

	"faa_registry/internal/tables"
)

func snapWith(codes []string, known []string) *tables.Snapshot {
	s := &tables.Snapshot{}
	for i, c := range codes {
		s.Aircraft = append(s.Aircraft, tables.Aircraft{
			NNumber:    string(rune('A' + i)),
			MfrMdlCode: c,
		})
	}
	for _, k := range known {
		s.MakeModels = append(s.MakeModels, tables.MakeModel{MfrMdlCode: k})
	}
	return s
}

func TestCheckCoverage(t *testing.T) {
	snap := snapWith([]string{"05T", "05T", "99Z", ""}, []string{"05T"})

	report := Check(snap, 0.90, nil)
	mm := report.Entries[0]
	if mm.Column != "mfr_mdl_code" {
		t.Fatalf("first entry = %q, want mfr_mdl_code", mm.Column)
	}
	// The blank code is out of scope, so 2 of 3 match.
	if mm.Referenced != 3 || mm.Matched != 2 {
		t.Errorf("referenced/matched = %d/%d, want 3/2", mm.Referenced, mm.Matched)
	}
	if got := mm.Percent(); got < 66 || got > 67 {
		t.Errorf("percent = %.2f, want ~66.67", got)
	}

	warnings := report.Warnings()
	if len(warnings) != 1 || warnings[0].Column != "mfr_mdl_code" {
		t.Errorf("warnings = %v, want one for mfr_mdl_code", warnings)
	}
}

// A reference table that matches nothing must still produce a report, not
// a failure: publishes proceed on low coverage.
func TestCheckZeroCoverageIsNonFatal(t *testing.T) {
	snap := snapWith([]string{"XX1", "XX2"}, []string{"YY9"})

	report := Check(snap, 0, nil) // default floor
	if report.Floor != DefaultCoverageFloor {
		t.Errorf("floor = %v, want default %v", report.Floor, DefaultCoverageFloor)
	}
	if got := report.Entries[0].Percent(); got != 0 {
		t.Errorf("percent = %.2f, want 0", got)
	}
	if len(report.Warnings()) == 0 {
		t.Error("zero coverage produced no warning")
	}
}

func TestCheckEmptyReferencesFullyCovered(t *testing.T) {
	snap := snapWith([]string{"", ""}, nil)
	report := Check(snap, 0.90, nil)
	for _, c := range report.Entries {
		if c.Percent() != 100 {
			t.Errorf("%s percent = %.2f, want 100 when nothing references it", c.Column, c.Percent())
		}
	}
	if len(report.Warnings()) != 0 {
		t.Errorf("warnings = %v, want none", report.Warnings())
	}
}
