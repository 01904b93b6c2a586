package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"faa_registry/internal/identity"
	"faa_registry/internal/schema"
	"faa_registry/internal/standardize"
	"faa_registry/internal/tables"
)

// masterColumns are required in every master extract. A missing one fails
// the whole file before any row is parsed.
var masterColumns = []string{
	"N-NUMBER", "SERIAL NUMBER", "MFR MDL CODE", "ENG MFR MDL", "YEAR MFR",
	"TYPE AIRCRAFT", "CERTIFICATION", "STATUS CODE", "LAST ACTION DATE",
	"EXPIRATION DATE", "TYPE REGISTRANT", "NAME", "STREET", "STREET2",
	"CITY", "STATE", "ZIP CODE",
}

// coOwnerColumns carry additional party names sharing the primary address
// block. They are optional; some vintages of the extract omit them.
var coOwnerColumns = []string{
	"OTHER NAMES(1)", "OTHER NAMES(2)", "OTHER NAMES(3)",
	"OTHER NAMES(4)", "OTHER NAMES(5)",
}

// markShape is the loose registration-mark check, applied to the full mark
// including the N prefix. Deliberately not the full grammar: historical
// data violates stricter patterns.
var markShape = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

var (
	nNumberSpec    = schema.Aircraft.MustField("n_number")
	yearMfrSpec    = schema.Aircraft.MustField("year_mfr")
	statusDateSpec = schema.Aircraft.MustField("status_date")
	expirationSpec = schema.Aircraft.MustField("reg_expiration")
)

// parseMaster turns the master extract into the aircraft, registrations
// and owners tables. One raw row fans out to one Aircraft row, one
// Registration row and one Owner row per party named on it. A row with any
// cast failure is excluded from all three tables, which keeps aircraft and
// registrations row-aligned.
func parseMaster(r *csv.Reader) (*partial, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumnMap(header)
	if err := cols.require(masterColumns...); err != nil {
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
				SourceFile: MasterFilename, RowIndex: rowIdx,
				Reason: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}
		p.totalRows++
		if rowErrs := masterRow(cols, record, rowIdx, seen, &p.snap); len(rowErrs) > 0 {
			p.failedRows++
			p.errors = append(p.errors, rowErrs...)
		}
	}
	return p, nil
}

func masterRow(cols columnMap, record []string, rowIdx int, seen map[string]struct{}, snap *tables.Snapshot) []RowError {
	get := func(name string) string { return cols.get(record, name) }

	var rowErrs []RowError
	fail := func(field, reason string) {
		rowErrs = append(rowErrs, RowError{
			SourceFile: MasterFilename, RowIndex: rowIdx, Field: field, Reason: reason,
		})
	}
	castFail := func(cerr *schema.CastError) {
		fail(cerr.Field, fmt.Sprintf("%s (value %q)", cerr.Reason, cerr.Value))
	}

	nNumber, cerr := schema.CastString(nNumberSpec, strings.ToUpper(get("N-NUMBER")))
	switch {
	case cerr != nil:
		castFail(cerr)
	case !markShape.MatchString("N" + nNumber):
		fail("n_number", fmt.Sprintf("registration mark %q fails shape check", nNumber))
	default:
		if _, dup := seen[nNumber]; dup {
			fail("n_number", fmt.Sprintf("duplicate n_number %q, first occurrence kept", nNumber))
		}
	}

	yearMfr, cerr := schema.CastInt32(yearMfrSpec, get("YEAR MFR"))
	if cerr != nil {
		castFail(cerr)
	}
	statusDate, cerr := schema.CastDate(statusDateSpec, get("LAST ACTION DATE"))
	if cerr != nil {
		castFail(cerr)
	}
	regExpiration, cerr := schema.CastDate(expirationSpec, get("EXPIRATION DATE"))
	if cerr != nil {
		castFail(cerr)
	}

	// Any failure above excludes the raw row from every fan-out table.
	if len(rowErrs) > 0 {
		return rowErrs
	}
	seen[nNumber] = struct{}{}

	regStatus := get("STATUS CODE")
	snap.Aircraft = append(snap.Aircraft, tables.Aircraft{
		NNumber:            nNumber,
		SerialNo:           get("SERIAL NUMBER"),
		MfrMdlCode:         get("MFR MDL CODE"),
		EngineCode:         get("ENG MFR MDL"),
		YearMfr:            yearMfr,
		AirworthinessClass: get("TYPE AIRCRAFT"),
		RegStatus:          regStatus,
		StatusDate:         statusDate,
		RegExpiration:      regExpiration,
	})
	snap.Registrations = append(snap.Registrations, tables.Registration{
		NNumber:       nNumber,
		RegType:       get("CERTIFICATION"),
		RegStatus:     regStatus,
		StatusDate:    statusDate,
		RegExpiration: regExpiration,
	})

	// Party fan-out: the primary NAME plus any co-owner names, all sharing
	// the row's address block. Identical parties collapse to one row via
	// the fingerprint.
	ownerType := get("TYPE REGISTRANT")
	street, street2 := get("STREET"), get("STREET2")
	city, state, zip := get("CITY"), get("STATE"), get("ZIP CODE")

	names := []string{get("NAME")}
	for _, col := range coOwnerColumns {
		if n := cols.get(record, col); n != "" {
			names = append(names, n)
		}
	}

	addressAll := standardize.CombineAddress(street, street2)
	cityStd := standardize.CleanText(city)
	stateStd := standardize.State(state)
	zip5 := standardize.Zip5(zip)

	parties := make(map[uint64]struct{}, len(names))
	for _, rawName := range names {
		nameStd := standardize.OwnerName(rawName)
		id := identity.OwnerID(nNumber, nameStd, addressAll, cityStd, stateStd, zip5)
		if _, dup := parties[id]; dup {
			continue
		}
		parties[id] = struct{}{}
		snap.Owners = append(snap.Owners, tables.Owner{
			OwnerID:       id,
			NNumber:       nNumber,
			OwnerType:     ownerType,
			OwnerNameRaw:  rawName,
			Address1Raw:   street,
			Address2Raw:   street2,
			CityRaw:       city,
			StateRaw:      state,
			ZipRaw:        zip,
			OwnerNameStd:  nameStd,
			AddressAllStd: addressAll,
			CityStd:       cityStd,
			StateStd:      stateStd,
			Zip5:          zip5,
		})
	}
	return nil
}
