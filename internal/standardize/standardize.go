// Package standardize holds the deterministic text-normalization functions
// applied to registry address and identity fields. Every function is total
// and idempotent: malformed input degrades to best-effort output, and
// re-standardizing already-standardized text is a no-op. That property is
// load-bearing, because owner fingerprints are computed over these outputs
// and must not drift between runs.
package standardize

import (
	"regexp"
	"strings"
)

var punctRuns = regexp.MustCompile(`[.,;:]+`)

// CleanText trims, collapses internal whitespace runs to a single space and
// upper-cases.
func CleanText(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// State maps a free-form or abbreviated jurisdiction string to its
// canonical two-letter code. Unknown input passes through cleaned but
// uncoded; rejecting it is not this layer's job.
func State(s string) string {
	cleaned := CleanText(s)
	if cleaned == "" {
		return ""
	}
	if len(cleaned) == 2 {
		if _, ok := stateCodes[cleaned]; ok {
			return cleaned
		}
	}
	if code, ok := stateNames[cleaned]; ok {
		return code
	}
	return cleaned
}

// Zip5 reduces a postal code to its five-digit prefix. Non-digits are
// dropped, ZIP+4 values are truncated, and short values are left-padded
// with zeros (Atlantic-seaboard zips lose leading zeros in spreadsheet
// round-trips). Empty input stays empty, never a placeholder.
func Zip5(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if len(d) > 5 {
		return d[:5]
	}
	return strings.Repeat("0", 5-len(d)) + d
}

// CombineAddress joins non-empty address lines with a comma separator,
// cleaning each line first.
func CombineAddress(lines ...string) string {
	var parts []string
	for _, line := range lines {
		if cleaned := CleanText(line); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, ", ")
}

// OwnerName is CleanText plus punctuation collapse: runs of periods,
// commas, semicolons and colons become a single space, so "SMITH, JOHN A."
// and "SMITH JOHN A" standardize to the same party.
func OwnerName(s string) string {
	cleaned := punctRuns.ReplaceAllString(CleanText(s), " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
