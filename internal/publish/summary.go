package publish

import (
	"sort"
	"strings"

	"faa_registry/internal/codes"
	"faa_registry/internal/tables"
)

// DeriveOwnerSummaries rolls the owner rows up to one row per mark. Names
// are sorted and joined with "; " so the output is stable across runs, and
// the trust flag is set when any party on the mark is a trust-like type.
func DeriveOwnerSummaries(owners []tables.Owner) []tables.OwnerSummary {
	byMark := make(map[string][]tables.Owner)
	for _, o := range owners {
		byMark[o.NNumber] = append(byMark[o.NNumber], o)
	}

	marks := make([]string, 0, len(byMark))
	for mark := range byMark {
		marks = append(marks, mark)
	}
	sort.Strings(marks)

	summaries := make([]tables.OwnerSummary, 0, len(marks))
	for _, mark := range marks {
		group := byMark[mark]
		names := make([]string, 0, len(group))
		trust := false
		for _, o := range group {
			names = append(names, o.OwnerNameStd)
			if codes.IsTrustType(o.OwnerType) {
				trust = true
			}
		}
		sort.Strings(names)
		summaries = append(summaries, tables.OwnerSummary{
			NNumber:          mark,
			OwnerCount:       int32(len(group)),
			OwnerNamesConcat: strings.Join(names, "; "),
			AnyTrustFlag:     trust,
		})
	}
	return summaries
}
