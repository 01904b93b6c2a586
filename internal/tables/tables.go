// Package tables defines the typed rows of every logical registry table.
// Instances are built once by normalization, read by the resolver and the
// publisher, and never mutated after that. The parquet tags drive the
// columnar artifact layout.
package tables

import "time"

// Aircraft is one row per registration mark, carrying the airframe facts
// plus a denormalized copy of the current registration state.
type Aircraft struct {
	NNumber            string     `parquet:"n_number"`
	SerialNo           string     `parquet:"serial_no,optional"`
	MfrMdlCode         string     `parquet:"mfr_mdl_code,optional"`
	EngineCode         string     `parquet:"engine_code,optional"`
	YearMfr            *int32     `parquet:"year_mfr,optional"`
	AirworthinessClass string     `parquet:"airworthiness_class,optional"`
	Seats              *int32     `parquet:"seats,optional"`
	Engines            *int32     `parquet:"engines,optional"`
	RegStatus          string     `parquet:"reg_status,optional"`
	StatusDate         *time.Time `parquet:"status_date,optional"`
	RegExpiration      *time.Time `parquet:"reg_expiration,optional"`
	IsDeregistered     bool       `parquet:"is_deregistered"`
}

// Registration is the authoritative registration state for one mark. The
// status fields must agree with the copies on Aircraft; the publisher
// verifies that before assembling artifacts.
type Registration struct {
	NNumber       string     `parquet:"n_number"`
	RegType       string     `parquet:"reg_type,optional"`
	RegStatus     string     `parquet:"reg_status,optional"`
	StatusDate    *time.Time `parquet:"status_date,optional"`
	RegExpiration *time.Time `parquet:"reg_expiration,optional"`
}

// Owner is one registered party. OwnerID is the deterministic fingerprint
// over the standardized identity tuple; a mark with co-owners gets one row
// per party, all sharing NNumber.
type Owner struct {
	OwnerID       uint64 `parquet:"owner_id"`
	NNumber       string `parquet:"n_number"`
	OwnerType     string `parquet:"owner_type,optional"`
	OwnerNameRaw  string `parquet:"owner_name_raw,optional"`
	Address1Raw   string `parquet:"address1_raw,optional"`
	Address2Raw   string `parquet:"address2_raw,optional"`
	CityRaw       string `parquet:"city_raw,optional"`
	StateRaw      string `parquet:"state_raw,optional"`
	ZipRaw        string `parquet:"zip_raw,optional"`
	OwnerNameStd  string `parquet:"owner_name_std,optional"`
	AddressAllStd string `parquet:"address_all_std,optional"`
	CityStd       string `parquet:"city_std,optional"`
	StateStd      string `parquet:"state_std,optional"`
	Zip5          string `parquet:"zip5,optional"`
}

// OwnerSummary is derived from Owner at publish time, one row per mark.
type OwnerSummary struct {
	NNumber          string `parquet:"n_number"`
	OwnerCount       int32  `parquet:"owner_count"`
	OwnerNamesConcat string `parquet:"owner_names_concat,optional"`
	AnyTrustFlag     bool   `parquet:"any_trust_flag"`
}

// MakeModel is one make/model reference row.
type MakeModel struct {
	MfrMdlCode   string `parquet:"mfr_mdl_code"`
	Maker        string `parquet:"maker,optional"`
	Model        string `parquet:"model,optional"`
	Category     string `parquet:"category,optional"`
	Type         string `parquet:"type,optional"`
	EngineType   string `parquet:"engine_type,optional"`
	SeatsDefault *int32 `parquet:"seats_default,optional"`
}

// Engine is one engine reference row.
type Engine struct {
	EngineCode   string `parquet:"engine_code"`
	Manufacturer string `parquet:"manufacturer,optional"`
	Model        string `parquet:"model,optional"`
	Type         string `parquet:"type,optional"`
	Horsepower   *int32 `parquet:"horsepower,optional"`
	Cylinders    *int32 `parquet:"cylinders,optional"`
}

// Snapshot bundles every normalized table from one run. Row order within a
// table carries no meaning.
type Snapshot struct {
	Aircraft      []Aircraft
	Registrations []Registration
	Owners        []Owner
	MakeModels    []MakeModel
	Engines       []Engine
}

// Counts reports rows per table name, as recorded in manifests.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"aircraft":            len(s.Aircraft),
		"registrations":       len(s.Registrations),
		"owners":              len(s.Owners),
		"aircraft_make_model": len(s.MakeModels),
		"engines":             len(s.Engines),
	}
}
