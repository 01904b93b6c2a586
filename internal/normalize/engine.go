package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"faa_registry/internal/schema"
	"faa_registry/internal/tables"
)

var engineColumns = []string{"CODE", "MFR", "MODEL", "TYPE", "HORSEPOWER"}

var (
	engineCodeSpec = schema.Engines.MustField("engine_code")
	horsepowerSpec = schema.Engines.MustField("horsepower")
)

// parseEngines turns the engine reference extract into the engines table,
// one row per code, first occurrence kept. Cylinder counts are not in the
// source data and stay null.
func parseEngines(r *csv.Reader) (*partial, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumnMap(header)
	if err := cols.require(engineColumns...); err != nil {
		return nil, err
	}

	p := &partial{}
	seen := make(map[string]struct{})
	for rowIdx := 1; ; rowIdx++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("row %d: %w", rowIdx, err)
			}
			p.totalRows++
			p.failedRows++
			p.errors = append(p.errors, RowError{
				SourceFile: EngineFilename, RowIndex: rowIdx,
				Reason: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}
		p.totalRows++

		var rowErrs []RowError
		fail := func(field, reason string) {
			rowErrs = append(rowErrs, RowError{
				SourceFile: EngineFilename, RowIndex: rowIdx, Field: field, Reason: reason,
			})
		}

		code, cerr := schema.CastString(engineCodeSpec, strings.ToUpper(cols.get(record, "CODE")))
		if cerr != nil {
			fail(cerr.Field, fmt.Sprintf("%s (value %q)", cerr.Reason, cerr.Value))
		} else if _, dup := seen[code]; dup {
			fail("engine_code", fmt.Sprintf("duplicate code %q, first occurrence kept", code))
		}

		hp, cerr := schema.CastInt32(horsepowerSpec, cols.get(record, "HORSEPOWER"))
		if cerr != nil {
			fail(cerr.Field, fmt.Sprintf("%s (value %q)", cerr.Reason, cerr.Value))
		}

		if len(rowErrs) > 0 {
			p.failedRows++
			p.errors = append(p.errors, rowErrs...)
			continue
		}
		seen[code] = struct{}{}

		p.snap.Engines = append(p.snap.Engines, tables.Engine{
			EngineCode:   code,
			Manufacturer: cols.get(record, "MFR"),
			Model:        cols.get(record, "MODEL"),
			Type:         cols.get(record, "TYPE"),
			Horsepower:   hp,
		})
	}
	return p, nil
}
