package publish

import (
	"fmt"
	"strings"
	"time"

	"faa_registry/internal/tables"
)

// mismatchSampleLimit caps how many disagreements a ConsistencyError
// carries. The count always covers all of them.
const mismatchSampleLimit = 5

// Mismatch is one disagreement between the registration state on an
// aircraft row and the registrations table for the same mark.
type Mismatch struct {
	NNumber  string
	Field    string
	Aircraft string
	Registry string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: aircraft=%q registrations=%q", m.NNumber, m.Field, m.Aircraft, m.Registry)
}

// ConsistencyError aborts a publish when the denormalized registration
// columns have drifted from the registrations table. Nothing is swapped in.
type ConsistencyError struct {
	Count  int
	Sample []Mismatch
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registration state differs between tables for %d mark(s)", e.Count)
	for _, m := range e.Sample {
		b.WriteString("; ")
		b.WriteString(m.String())
	}
	if e.Count > len(e.Sample) {
		fmt.Fprintf(&b, "; and %d more", e.Count-len(e.Sample))
	}
	return b.String()
}

// checkConsistency cross-checks the registration state duplicated on the
// aircraft table against the registrations table. Only marks present in
// both tables are compared; a mark missing from one side is not an error
// here. Returns nil when everything agrees.
func checkConsistency(snap *tables.Snapshot) error {
	regs := make(map[string]*tables.Registration, len(snap.Registrations))
	for i := range snap.Registrations {
		regs[snap.Registrations[i].NNumber] = &snap.Registrations[i]
	}

	var count int
	var sample []Mismatch
	record := func(mark, field, left, right string) {
		count++
		if len(sample) < mismatchSampleLimit {
			sample = append(sample, Mismatch{NNumber: mark, Field: field, Aircraft: left, Registry: right})
		}
	}

	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		reg, ok := regs[ac.NNumber]
		if !ok {
			continue
		}
		if ac.RegStatus != reg.RegStatus {
			record(ac.NNumber, "reg_status", ac.RegStatus, reg.RegStatus)
		}
		if !datesEqual(ac.StatusDate, reg.StatusDate) {
			record(ac.NNumber, "status_date", formatDate(ac.StatusDate), formatDate(reg.StatusDate))
		}
		if !datesEqual(ac.RegExpiration, reg.RegExpiration) {
			record(ac.NNumber, "reg_expiration", formatDate(ac.RegExpiration), formatDate(reg.RegExpiration))
		}
	}

	if count == 0 {
		return nil
	}
	return &ConsistencyError{Count: count, Sample: sample}
}

func datesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// formatDate renders a nullable date for SQL storage and error text.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
