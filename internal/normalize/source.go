package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"faa_registry/internal/tables"
)

// A sourceParser turns one raw extract into its slice of the snapshot.
// Parsers own the whole file rather than single rows because some of them
// keep cross-row state (first-wins dedup on the primary key).
type sourceParser struct {
	name     string
	filename string
	parse    func(r *csv.Reader) (*partial, error)
}

// partial is one worker's output: the table rows from a single source file
// plus its row errors and counts.
type partial struct {
	snap       tables.Snapshot
	errors     []RowError
	totalRows  int
	failedRows int
}

// sources lists every raw extract the normalizer consumes. Each maps to
// independent output tables, so the files can be parsed in parallel and
// merged without coordination.
var sources = []sourceParser{
	{name: "master", filename: MasterFilename, parse: parseMaster},
	{name: "make_model", filename: MakeModelFilename, parse: parseMakeModel},
	{name: "engines", filename: EngineFilename, parse: parseEngines},
}

// Raw extract filenames as distributed in the registry archive.
const (
	MasterFilename    = "MASTER.txt"
	MakeModelFilename = "ACFTREF.txt"
	EngineFilename    = "ENGINE.txt"
)

// columnMap resolves header names to field indexes once per file, so row
// processing never searches the header again. Header cells are trimmed;
// the extracts pad them inconsistently.
type columnMap struct {
	idx map[string]int
}

func newColumnMap(header []string) columnMap {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return columnMap{idx: idx}
}

// require fails when any named column is absent. A missing column means
// the source layout changed and nothing in the file can be trusted.
func (m columnMap) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := m.idx[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell under name, or "" when the column is absent
// or the row is ragged. Optional columns go through here unchecked.
func (m columnMap) get(record []string, name string) string {
	i, ok := m.idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// newReader configures CSV parsing for registry extracts: ragged rows are
// tolerated (trailing commas vary by vintage) and stray quotes inside
// owner names must not kill the file.
func newReader(rd io.Reader) *csv.Reader {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}
