package schema

// Logical table names. These are also the file stems of the columnar
// artifacts and the table names inside the analytical store.
const (
	TableAircraft      = "aircraft"
	TableRegistrations = "registrations"
	TableOwners        = "owners"
	TableOwnersSummary = "owners_summary"
	TableMakeModel     = "aircraft_make_model"
	TableEngines       = "engines"
)

// Aircraft is one row per registration mark, denormalized with the current
// registration facts for O(1) lookup.
var Aircraft = TableSchema{
	Name: TableAircraft,
	Fields: []FieldSpec{
		{Name: "n_number", Kind: KindString},
		{Name: "serial_no", Kind: KindString, Nullable: true},
		{Name: "mfr_mdl_code", Kind: KindString, Nullable: true},
		{Name: "engine_code", Kind: KindString, Nullable: true},
		{Name: "year_mfr", Kind: KindInt32, Nullable: true, Repair: StripSpaces},
		{Name: "airworthiness_class", Kind: KindString, Nullable: true},
		{Name: "seats", Kind: KindInt32, Nullable: true},
		{Name: "engines", Kind: KindInt32, Nullable: true},
		{Name: "reg_status", Kind: KindString, Nullable: true},
		{Name: "status_date", Kind: KindDate, Nullable: true},
		{Name: "reg_expiration", Kind: KindDate, Nullable: true},
		{Name: "is_deregistered", Kind: KindBool},
	},
}

// Registrations is the authoritative registration state, one row per mark.
// Its status, status_date and reg_expiration columns must agree with the
// denormalized copies on Aircraft at publish time.
var Registrations = TableSchema{
	Name: TableRegistrations,
	Fields: []FieldSpec{
		{Name: "n_number", Kind: KindString},
		{Name: "reg_type", Kind: KindString, Nullable: true},
		{Name: "reg_status", Kind: KindString, Nullable: true},
		{Name: "status_date", Kind: KindDate, Nullable: true},
		{Name: "reg_expiration", Kind: KindDate, Nullable: true},
	},
}

// Owners carries zero or more parties per mark, keyed by a deterministic
// 64-bit fingerprint over the standardized identity tuple.
var Owners = TableSchema{
	Name: TableOwners,
	Fields: []FieldSpec{
		{Name: "owner_id", Kind: KindUint64},
		{Name: "n_number", Kind: KindString},
		{Name: "owner_type", Kind: KindString, Nullable: true},
		{Name: "owner_name_raw", Kind: KindString, Nullable: true},
		{Name: "address1_raw", Kind: KindString, Nullable: true},
		{Name: "address2_raw", Kind: KindString, Nullable: true},
		{Name: "city_raw", Kind: KindString, Nullable: true},
		{Name: "state_raw", Kind: KindString, Nullable: true},
		{Name: "zip_raw", Kind: KindString, Nullable: true},
		{Name: "owner_name_std", Kind: KindString, Nullable: true},
		{Name: "address_all_std", Kind: KindString, Nullable: true},
		{Name: "city_std", Kind: KindString, Nullable: true},
		{Name: "state_std", Kind: KindString, Nullable: true},
		{Name: "zip5", Kind: KindString, Nullable: true},
	},
}

// OwnersSummary is derived fresh at publish time from Owners, never
// normalized from source.
var OwnersSummary = TableSchema{
	Name: TableOwnersSummary,
	Fields: []FieldSpec{
		{Name: "n_number", Kind: KindString},
		{Name: "owner_count", Kind: KindInt32},
		{Name: "owner_names_concat", Kind: KindString, Nullable: true},
		{Name: "any_trust_flag", Kind: KindBool},
	},
}

// MakeModel is the make/model reference table.
var MakeModel = TableSchema{
	Name: TableMakeModel,
	Fields: []FieldSpec{
		{Name: "mfr_mdl_code", Kind: KindString},
		{Name: "maker", Kind: KindString, Nullable: true},
		{Name: "model", Kind: KindString, Nullable: true},
		{Name: "category", Kind: KindString, Nullable: true},
		{Name: "type", Kind: KindString, Nullable: true},
		{Name: "engine_type", Kind: KindString, Nullable: true},
		{Name: "seats_default", Kind: KindInt32, Nullable: true, Repair: StripSpaces},
	},
}

// Engines is the engine reference table.
var Engines = TableSchema{
	Name: TableEngines,
	Fields: []FieldSpec{
		{Name: "engine_code", Kind: KindString},
		{Name: "manufacturer", Kind: KindString, Nullable: true},
		{Name: "model", Kind: KindString, Nullable: true},
		{Name: "type", Kind: KindString, Nullable: true},
		{Name: "horsepower", Kind: KindInt32, Nullable: true, Repair: StripSpaces},
		{Name: "cylinders", Kind: KindInt32, Nullable: true},
	},
}

// All lists every declared table in publish order.
var All = []TableSchema{Aircraft, Registrations, Owners, OwnersSummary, MakeModel, Engines}

// Hashes returns the schema version hash for every declared table.
func Hashes() map[string]uint64 {
	m := make(map[string]uint64, len(All))
	for _, t := range All {
		m[t.Name] = t.Hash()
	}
	return m
}
