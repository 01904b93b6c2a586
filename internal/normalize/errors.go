package normalize

import (
	"fmt"
	"strings"
)

// RowError is one row-level normalization failure. The row it names was
// excluded from every output table; the run keeps going. RowIndex is
// 1-based over data rows, the header row is not counted.
type RowError struct {
	SourceFile string `json:"source_file"`
	RowIndex   int    `json:"row_index"`
	Field      string `json:"field,omitempty"`
	Reason     string `json:"reason"`
}

func (e RowError) String() string {
	if e.Field == "" {
		return fmt.Sprintf("%s row %d: %s", e.SourceFile, e.RowIndex, e.Reason)
	}
	return fmt.Sprintf("%s row %d field %s: %s", e.SourceFile, e.RowIndex, e.Field, e.Reason)
}

// ThresholdExceededError aborts normalization when the failure rate in one
// source file exceeds the configured tolerance. It protects against
// silently processing a corrupted or reformatted extract.
type ThresholdExceededError struct {
	SourceFile string
	TotalRows  int
	FailedRows int
	Threshold  float64
	Sample     []RowError
}

func (e *ThresholdExceededError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "normalize %s: %d of %d rows failed (rate %.3f exceeds tolerance %.3f)",
		e.SourceFile, e.FailedRows, e.TotalRows, e.Rate(), e.Threshold)
	for i, re := range e.Sample {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Sample)-i)
			break
		}
		fmt.Fprintf(&b, "; %s", re.String())
	}
	return b.String()
}

// Rate is the failed-row fraction, zero for an empty file.
func (e *ThresholdExceededError) Rate() float64 {
	if e.TotalRows == 0 {
		return 0
	}
	return float64(e.FailedRows) / float64(e.TotalRows)
}
