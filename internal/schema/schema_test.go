package schema

import (
	"testing"
	"time"
)

func TestCastDate(t *testing.T) {
	spec := FieldSpec{Name: "status_date", Kind: KindDate, Nullable: true}

	got, cerr := CastDate(spec, "20240131")
	if cerr != nil {
		t.Fatalf("CastDate returned error: %v", cerr)
	}
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Errorf("CastDate = %v, want %v", got, want)
	}

	got, cerr = CastDate(spec, "")
	if cerr != nil {
		t.Fatalf("CastDate empty returned error: %v", cerr)
	}
	if got != nil {
		t.Errorf("CastDate empty = %v, want nil", got)
	}
}

func TestCastDateRejectsBadCalendarDates(t *testing.T) {
	spec := FieldSpec{Name: "status_date", Kind: KindDate, Nullable: true}

	for _, raw := range []string{"20241301", "20240230", "2024013", "ABCDEFGH", "2024-01-31"} {
		if _, cerr := CastDate(spec, raw); cerr == nil {
			t.Errorf("CastDate(%q) succeeded, want error", raw)
		}
	}
}

func TestCastInt32(t *testing.T) {
	spec := FieldSpec{Name: "year_mfr", Kind: KindInt32, Nullable: true, Repair: StripSpaces}

	got, cerr := CastInt32(spec, "19 46")
	if cerr != nil {
		t.Fatalf("CastInt32 returned error: %v", cerr)
	}
	if got == nil || *got != 1946 {
		t.Errorf("CastInt32 = %v, want 1946", got)
	}

	if _, cerr := CastInt32(spec, "NINETEEN"); cerr == nil {
		t.Error("CastInt32 accepted non-numeric input")
	}

	got, cerr = CastInt32(spec, "   ")
	if cerr != nil {
		t.Fatalf("CastInt32 blank returned error: %v", cerr)
	}
	if got != nil {
		t.Errorf("CastInt32 blank = %v, want nil", got)
	}
}

func TestCastStringRequired(t *testing.T) {
	spec := FieldSpec{Name: "n_number", Kind: KindString}

	if _, cerr := CastString(spec, "  "); cerr == nil {
		t.Fatal("CastString accepted empty required field")
	} else if cerr.Field != "n_number" {
		t.Errorf("CastError.Field = %q, want %q", cerr.Field, "n_number")
	}

	got, cerr := CastString(spec, " 12345 ")
	if cerr != nil {
		t.Fatalf("CastString returned error: %v", cerr)
	}
	if got != "12345" {
		t.Errorf("CastString = %q, want %q", got, "12345")
	}
}

func TestCastBool(t *testing.T) {
	spec := FieldSpec{Name: "is_deregistered", Kind: KindBool}

	tests := []struct {
		raw  string
		want bool
	}{
		{"Y", true},
		{"true", true},
		{"1", true},
		{"N", false},
		{"FALSE", false},
		{"0", false},
	}
	for _, tt := range tests {
		got, cerr := CastBool(spec, tt.raw)
		if cerr != nil {
			t.Fatalf("CastBool(%q) returned error: %v", tt.raw, cerr)
		}
		if got != tt.want {
			t.Errorf("CastBool(%q) = %t, want %t", tt.raw, got, tt.want)
		}
	}

	if _, cerr := CastBool(spec, "MAYBE"); cerr == nil {
		t.Error("CastBool accepted invalid input")
	}
}

func TestCastGeneric(t *testing.T) {
	spec, ok := Aircraft.Field("year_mfr")
	if !ok {
		t.Fatal("aircraft schema missing year_mfr")
	}

	v, err := Cast(spec, "1972")
	if err != nil {
		t.Fatalf("Cast returned error: %v", err)
	}
	if got, ok := v.(int32); !ok || got != 1972 {
		t.Errorf("Cast = %v (%T), want int32 1972", v, v)
	}

	v, err = Cast(spec, "")
	if err != nil {
		t.Fatalf("Cast empty returned error: %v", err)
	}
	if v != nil {
		t.Errorf("Cast empty = %v, want nil", v)
	}
}

func TestSchemaHashStable(t *testing.T) {
	h1 := Aircraft.Hash()
	h2 := Aircraft.Hash()
	if h1 != h2 {
		t.Errorf("Hash not stable: %d != %d", h1, h2)
	}

	// Any layout difference must change the hash.
	mutated := TableSchema{Name: Aircraft.Name, Fields: append([]FieldSpec(nil), Aircraft.Fields...)}
	mutated.Fields[0].Nullable = !mutated.Fields[0].Nullable
	if mutated.Hash() == h1 {
		t.Error("Hash unchanged after nullability flip")
	}

	renamed := TableSchema{Name: "aircraft2", Fields: Aircraft.Fields}
	if renamed.Hash() == h1 {
		t.Error("Hash unchanged after table rename")
	}
}

func TestHashesCoversAllTables(t *testing.T) {
	hashes := Hashes()
	if len(hashes) != len(All) {
		t.Fatalf("Hashes returned %d entries, want %d", len(hashes), len(All))
	}
	for _, tbl := range All {
		if _, ok := hashes[tbl.Name]; !ok {
			t.Errorf("Hashes missing table %q", tbl.Name)
		}
	}
}
