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

var makeModelColumns = []string{
	"CODE", "MFR", "MODEL", "AC-CAT", "TYPE-ACFT", "TYPE-ENG", "NO-SEATS",
}

var (
	mfrMdlCodeSpec   = schema.MakeModel.MustField("mfr_mdl_code")
	seatsDefaultSpec = schema.MakeModel.MustField("seats_default")
)

// parseMakeModel turns the make/model reference extract into the
// aircraft_make_model table, one row per code, first occurrence kept.
func parseMakeModel(r *csv.Reader) (*partial, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumnMap(header)
	if err := cols.require(makeModelColumns...); err != nil {
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
				SourceFile: MakeModelFilename, RowIndex: rowIdx,
				Reason: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}
		p.totalRows++

		var rowErrs []RowError
		fail := func(field, reason string) {
			rowErrs = append(rowErrs, RowError{
				SourceFile: MakeModelFilename, RowIndex: rowIdx, Field: field, Reason: reason,
			})
		}

		code, cerr := schema.CastString(mfrMdlCodeSpec, strings.ToUpper(cols.get(record, "CODE")))
		if cerr != nil {
			fail(cerr.Field, fmt.Sprintf("%s (value %q)", cerr.Reason, cerr.Value))
		} else if _, dup := seen[code]; dup {
			fail("mfr_mdl_code", fmt.Sprintf("duplicate code %q, first occurrence kept", code))
		}

		seats, cerr := schema.CastInt32(seatsDefaultSpec, cols.get(record, "NO-SEATS"))
		if cerr != nil {
			fail(cerr.Field, fmt.Sprintf("%s (value %q)", cerr.Reason, cerr.Value))
		}

		if len(rowErrs) > 0 {
			p.failedRows++
			p.errors = append(p.errors, rowErrs...)
			continue
		}
		seen[code] = struct{}{}

		p.snap.MakeModels = append(p.snap.MakeModels, tables.MakeModel{
			MfrMdlCode:   code,
			Maker:        cols.get(record, "MFR"),
			Model:        cols.get(record, "MODEL"),
			Category:     cols.get(record, "AC-CAT"),
			Type:         cols.get(record, "TYPE-ACFT"),
			EngineType:   cols.get(record, "TYPE-ENG"),
			SeatsDefault: seats,
		})
	}
	return p, nil
}
