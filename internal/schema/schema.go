// Package schema declares the typed column layout of every registry table
// and casts raw source text into Go values. Casting is pure: a failure is
// reported as a CastError naming the field and offending value, and never
// mutates or drops anything on its own.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DateLayout is the 8-digit year-month-day format used throughout the
// registry extracts.
const DateLayout = "20060102"

// Kind identifies the Go type a raw field value is cast to.
type Kind int

const (
	KindString Kind = iota
	KindInt32
	KindUint64
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindUint64:
		return "uint64"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldSpec describes one typed column: its name, target kind, whether an
// empty source value is acceptable, and an optional repair applied to the
// raw text before casting (for example stripping embedded spaces from a
// numeric field).
type FieldSpec struct {
	Name     string
	Kind     Kind
	Nullable bool
	Repair   func(string) string
}

// CastError reports a single field value that could not be cast to its
// declared kind. It is recoverable: callers drop the offending row, record
// the error and keep going.
type CastError struct {
	Field  string
	Value  string
	Reason string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast %s: %s (value %q)", e.Field, e.Reason, e.Value)
}

// TableSchema is the ordered set of field specs for one logical table.
type TableSchema struct {
	Name   string
	Fields []FieldSpec
}

// Field returns the spec declared under name.
func (s TableSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// MustField is Field for package-level lookups of fields that are known to
// be declared. It panics on a missing name, like regexp.MustCompile.
func (s TableSchema) MustField(name string) FieldSpec {
	f, ok := s.Field(name)
	if !ok {
		panic(fmt.Sprintf("schema %s declares no field %q", s.Name, name))
	}
	return f
}

// Hash fingerprints the table layout. Two builds agree on Hash exactly when
// they agree on table name, field order, field names, kinds and nullability.
// Repair functions do not participate. The value is recorded per table in
// the publish manifest as the schema version.
func (s TableSchema) Hash() uint64 {
	h := xxhash.New()
	h.WriteString(s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(h, "\x1f%s\x1e%d\x1e%t", f.Name, int(f.Kind), f.Nullable)
	}
	return h.Sum64()
}

// repair applies the spec's repair function, if any, after trimming
// surrounding whitespace. All casts run through it.
func repair(spec FieldSpec, raw string) string {
	raw = strings.TrimSpace(raw)
	if spec.Repair != nil {
		raw = spec.Repair(raw)
	}
	return raw
}

func requiredErr(spec FieldSpec) *CastError {
	return &CastError{Field: spec.Name, Value: "", Reason: "empty value for required field"}
}

// CastString returns the repaired text. Empty input is an error unless the
// field is nullable, in which case the empty string stands in for null.
func CastString(spec FieldSpec, raw string) (string, *CastError) {
	raw = repair(spec, raw)
	if raw == "" && !spec.Nullable {
		return "", requiredErr(spec)
	}
	return raw, nil
}

// CastInt32 parses a decimal integer. Empty nullable input yields nil.
func CastInt32(spec FieldSpec, raw string) (*int32, *CastError) {
	raw = repair(spec, raw)
	if raw == "" {
		if spec.Nullable {
			return nil, nil
		}
		return nil, requiredErr(spec)
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, &CastError{Field: spec.Name, Value: raw, Reason: "not a valid integer"}
	}
	v := int32(n)
	return &v, nil
}

// CastUint64 parses an unsigned decimal integer. Empty nullable input
// yields zero; surrogate keys are declared non-nullable, so empty input
// errors for them.
func CastUint64(spec FieldSpec, raw string) (uint64, *CastError) {
	raw = repair(spec, raw)
	if raw == "" {
		if spec.Nullable {
			return 0, nil
		}
		return 0, requiredErr(spec)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &CastError{Field: spec.Name, Value: raw, Reason: "not a valid unsigned integer"}
	}
	return n, nil
}

// CastDate parses a strict YYYYMMDD calendar date. Empty input is a null
// date when the field is nullable, never a sentinel. Invalid calendar dates
// (month 13, day 32) fail.
func CastDate(spec FieldSpec, raw string) (*time.Time, *CastError) {
	raw = repair(spec, raw)
	if raw == "" {
		if spec.Nullable {
			return nil, nil
		}
		return nil, requiredErr(spec)
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, &CastError{Field: spec.Name, Value: raw, Reason: "not a valid YYYYMMDD date"}
	}
	t = t.UTC()
	return &t, nil
}

// CastBool accepts the usual spellings on either side of true/false.
func CastBool(spec FieldSpec, raw string) (bool, *CastError) {
	raw = repair(spec, raw)
	if raw == "" {
		if spec.Nullable {
			return false, nil
		}
		return false, requiredErr(spec)
	}
	switch strings.ToUpper(raw) {
	case "1", "Y", "YES", "TRUE", "T":
		return true, nil
	case "0", "N", "NO", "FALSE", "F":
		return false, nil
	}
	return false, &CastError{Field: spec.Name, Value: raw, Reason: "not a valid boolean"}
}

// Cast converts raw text to the Go value for spec's kind. Nullable empty
// input yields a nil value. The error, when non-nil, is always a *CastError.
func Cast(spec FieldSpec, raw string) (any, error) {
	switch spec.Kind {
	case KindString:
		v, cerr := CastString(spec, raw)
		if cerr != nil {
			return nil, cerr
		}
		return v, nil
	case KindInt32:
		v, cerr := CastInt32(spec, raw)
		if cerr != nil {
			return nil, cerr
		}
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case KindUint64:
		v, cerr := CastUint64(spec, raw)
		if cerr != nil {
			return nil, cerr
		}
		return v, nil
	case KindDate:
		v, cerr := CastDate(spec, raw)
		if cerr != nil {
			return nil, cerr
		}
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case KindBool:
		v, cerr := CastBool(spec, raw)
		if cerr != nil {
			return nil, cerr
		}
		return v, nil
	}
	return nil, &CastError{Field: spec.Name, Value: raw, Reason: "unknown kind"}
}

// StripSpaces is a repair function removing embedded spaces, for numeric
// columns that arrive with stray padding inside the digits.
func StripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
