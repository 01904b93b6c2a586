package standardize

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "HELLO WORLD"},
		{"already CLEAN", "ALREADY CLEAN"},
		{"tabs\tand\nnewlines", "TABS AND NEWLINES"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"california", "CA"},
		{"CA", "CA"},
		{"  new   york ", "NY"},
		{"District of Columbia", "DC"},
		{"puerto rico", "PR"},
		{"ONTARIO", "ONTARIO"}, // foreign, passes through cleaned
		{"ZZ", "ZZ"},           // unknown code, passes through
		{"", ""},
	}
	for _, tt := range tests {
		if got := State(tt.in); got != tt.want {
			t.Errorf("State(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZip5(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"90210", "90210"},
		{"90210-1234", "90210"},
		{"902101234", "90210"},
		{"601", "00601"},
		{"  601 ", "00601"},
		{"ABC", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Zip5(tt.in); got != tt.want {
			t.Errorf("Zip5(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCombineAddress(t *testing.T) {
	tests := []struct {
		lines []string
		want  string
	}{
		{[]string{"123 Main St", "Suite 4"}, "123 MAIN ST, SUITE 4"},
		{[]string{"123 Main St", ""}, "123 MAIN ST"},
		{[]string{"", "  "}, ""},
		{[]string{"po  box 1"}, "PO BOX 1"},
	}
	for _, tt := range tests {
		if got := CombineAddress(tt.lines...); got != tt.want {
			t.Errorf("CombineAddress(%v) = %q, want %q", tt.lines, got, tt.want)
		}
	}
}

func TestOwnerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith, John A.", "SMITH JOHN A"},
		{"ACME AVIATION, LLC.", "ACME AVIATION LLC"},
		{"J.P. AIR;CO", "J P AIR CO"},
		{"  plain name ", "PLAIN NAME"},
	}
	for _, tt := range tests {
		if got := OwnerName(tt.in); got != tt.want {
			t.Errorf("OwnerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Re-standardizing standardized output must be a no-op: fingerprints are
// computed over these values and any drift would re-key every owner.
func TestIdempotence(t *testing.T) {
	inputs := []string{
		"  Smith,   John A. ", "ACME AVIATION, LLC", "90210-1234", "601",
		"new york", "ONTARIO", "123  MAIN ST.", "", "N123AB",
	}
	funcs := map[string]func(string) string{
		"CleanText": CleanText,
		"State":     State,
		"Zip5":      Zip5,
		"OwnerName": OwnerName,
	}
	for name, fn := range funcs {
		for _, in := range inputs {
			once := fn(in)
			twice := fn(once)
			if once != twice {
				t.Errorf("%s not idempotent on %q: %q then %q", name, in, once, twice)
			}
		}
	}

	for _, in := range inputs {
		once := CombineAddress(in)
		twice := CombineAddress(once)
		if once != twice {
			t.Errorf("CombineAddress not idempotent on %q: %q then %q", in, once, twice)
		}
	}
}
