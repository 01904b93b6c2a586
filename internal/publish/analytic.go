package publish

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"faa_registry/internal/codes"
	"faa_registry/internal/tables"
)

// analyticSchema creates the six registry tables. Dates are stored as
// ISO-8601 text, owner fingerprints as signed 64-bit integers with the
// unsigned value reinterpreted two's complement.
const analyticSchema = `
CREATE TABLE aircraft (
	n_number            TEXT NOT NULL,
	serial_no           TEXT,
	mfr_mdl_code        TEXT,
	engine_code         TEXT,
	year_mfr            INTEGER,
	airworthiness_class TEXT,
	seats               INTEGER,
	engines             INTEGER,
	reg_status          TEXT,
	status_date         TEXT,
	reg_expiration      TEXT,
	is_deregistered     INTEGER NOT NULL
);

CREATE TABLE registrations (
	n_number       TEXT NOT NULL,
	reg_type       TEXT,
	reg_status     TEXT,
	status_date    TEXT,
	reg_expiration TEXT
);

CREATE TABLE owners (
	owner_id        INTEGER NOT NULL,
	n_number        TEXT NOT NULL,
	owner_type      TEXT,
	owner_name_raw  TEXT,
	address1_raw    TEXT,
	address2_raw    TEXT,
	city_raw        TEXT,
	state_raw       TEXT,
	zip_raw         TEXT,
	owner_name_std  TEXT,
	address_all_std TEXT,
	city_std        TEXT,
	state_std       TEXT,
	zip5            TEXT
);

CREATE TABLE owners_summary (
	n_number           TEXT NOT NULL,
	owner_count        INTEGER NOT NULL,
	owner_names_concat TEXT,
	any_trust_flag     INTEGER NOT NULL
);

CREATE TABLE aircraft_make_model (
	mfr_mdl_code  TEXT NOT NULL,
	maker         TEXT,
	model         TEXT,
	category      TEXT,
	type          TEXT,
	engine_type   TEXT,
	seats_default INTEGER
);

CREATE TABLE engines (
	engine_code  TEXT NOT NULL,
	manufacturer TEXT,
	model        TEXT,
	type         TEXT,
	horsepower   INTEGER,
	cylinders    INTEGER
);

CREATE TABLE status_codes (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL
);

CREATE TABLE airworthiness_classes (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL
);

CREATE TABLE owner_types (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL
);
`

// analyticViews adds the decoded convenience views and lookup indexes.
// Runs after the bulk load so index maintenance does not slow the inserts.
const analyticViews = `
CREATE VIEW aircraft_decoded AS
SELECT
	a.n_number,
	a.serial_no,
	a.mfr_mdl_code,
	m.maker,
	m.model,
	a.engine_code,
	a.year_mfr,
	a.airworthiness_class AS airworthiness_code,
	ac.description AS airworthiness_class,
	a.seats,
	a.engines,
	a.reg_status AS status_code,
	s.description AS reg_status,
	a.status_date,
	a.reg_expiration,
	a.is_deregistered
FROM aircraft a
LEFT JOIN aircraft_make_model m ON a.mfr_mdl_code = m.mfr_mdl_code
LEFT JOIN status_codes s ON a.reg_status = s.code
LEFT JOIN airworthiness_classes ac ON a.airworthiness_class = ac.code;

CREATE VIEW owners_clean AS
SELECT
	n_number,
	o.owner_type AS owner_type_code,
	ot.description AS owner_type,
	owner_name_std AS owner_name,
	address_all_std AS address,
	city_std AS city,
	state_std AS state,
	zip5 AS zip
FROM owners o
LEFT JOIN owner_types ot ON o.owner_type = ot.code;

CREATE INDEX idx_aircraft_n_number ON aircraft(n_number);
CREATE INDEX idx_registrations_n_number ON registrations(n_number);
CREATE INDEX idx_owners_n_number ON owners(n_number);
CREATE INDEX idx_owners_summary_n_number ON owners_summary(n_number);
CREATE INDEX idx_aircraft_mfr_mdl_code ON aircraft(mfr_mdl_code);
CREATE INDEX idx_aircraft_engine_code ON aircraft(engine_code);
`

// buildAnalyticStore writes the self-contained query database for one
// generation: every table, the static code tables, decoded views, and
// indexes. The file is created fresh inside the staging directory; a
// failed build discards the whole directory, so no rollback journal is
// kept.
func buildAnalyticStore(path string, snap *tables.Snapshot, summaries []tables.OwnerSummary) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open analytic store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=OFF"); err != nil {
		_ = db.Close()
		return fmt.Errorf("disable journal: %w", err)
	}
	if _, err := db.Exec(analyticSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create analytic schema: %w", err)
	}
	if err := loadAnalyticRows(db, snap, summaries); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.Exec(analyticViews); err != nil {
		_ = db.Close()
		return fmt.Errorf("create views and indexes: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close analytic store: %w", err)
	}
	return nil
}

func loadAnalyticRows(db *sql.DB, snap *tables.Snapshot, summaries []tables.OwnerSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}

	steps := []struct {
		name string
		load func(*sql.Tx) error
	}{
		{"aircraft", func(tx *sql.Tx) error { return loadAircraft(tx, snap.Aircraft) }},
		{"registrations", func(tx *sql.Tx) error { return loadRegistrations(tx, snap.Registrations) }},
		{"owners", func(tx *sql.Tx) error { return loadOwners(tx, snap.Owners) }},
		{"owners_summary", func(tx *sql.Tx) error { return loadOwnerSummaries(tx, summaries) }},
		{"aircraft_make_model", func(tx *sql.Tx) error { return loadMakeModels(tx, snap.MakeModels) }},
		{"engines", func(tx *sql.Tx) error { return loadEngines(tx, snap.Engines) }},
		{"codes", loadCodeTables},
	}
	for _, step := range steps {
		if err := step.load(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("load %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func loadAircraft(tx *sql.Tx, rows []tables.Aircraft) error {
	stmt, err := tx.Prepare(`
		INSERT INTO aircraft (
			n_number, serial_no, mfr_mdl_code, engine_code, year_mfr,
			airworthiness_class, seats, engines, reg_status, status_date,
			reg_expiration, is_deregistered
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		_, err := stmt.Exec(
			r.NNumber, r.SerialNo, r.MfrMdlCode, r.EngineCode, nullInt32(r.YearMfr),
			r.AirworthinessClass, nullInt32(r.Seats), nullInt32(r.Engines),
			r.RegStatus, nullDate(r.StatusDate), nullDate(r.RegExpiration), r.IsDeregistered,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadRegistrations(tx *sql.Tx, rows []tables.Registration) error {
	stmt, err := tx.Prepare(`
		INSERT INTO registrations (n_number, reg_type, reg_status, status_date, reg_expiration)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		_, err := stmt.Exec(r.NNumber, r.RegType, r.RegStatus, nullDate(r.StatusDate), nullDate(r.RegExpiration))
		if err != nil {
			return err
		}
	}
	return nil
}

func loadOwners(tx *sql.Tx, rows []tables.Owner) error {
	stmt, err := tx.Prepare(`
		INSERT INTO owners (
			owner_id, n_number, owner_type, owner_name_raw, address1_raw,
			address2_raw, city_raw, state_raw, zip_raw, owner_name_std,
			address_all_std, city_std, state_std, zip5
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, o := range rows {
		_, err := stmt.Exec(
			int64(o.OwnerID), o.NNumber, o.OwnerType, o.OwnerNameRaw, o.Address1Raw,
			o.Address2Raw, o.CityRaw, o.StateRaw, o.ZipRaw, o.OwnerNameStd,
			o.AddressAllStd, o.CityStd, o.StateStd, o.Zip5,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadOwnerSummaries(tx *sql.Tx, rows []tables.OwnerSummary) error {
	stmt, err := tx.Prepare(`
		INSERT INTO owners_summary (n_number, owner_count, owner_names_concat, any_trust_flag)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, s := range rows {
		if _, err := stmt.Exec(s.NNumber, s.OwnerCount, s.OwnerNamesConcat, s.AnyTrustFlag); err != nil {
			return err
		}
	}
	return nil
}

func loadMakeModels(tx *sql.Tx, rows []tables.MakeModel) error {
	stmt, err := tx.Prepare(`
		INSERT INTO aircraft_make_model (mfr_mdl_code, maker, model, category, type, engine_type, seats_default)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, m := range rows {
		_, err := stmt.Exec(m.MfrMdlCode, m.Maker, m.Model, m.Category, m.Type, m.EngineType, nullInt32(m.SeatsDefault))
		if err != nil {
			return err
		}
	}
	return nil
}

func loadEngines(tx *sql.Tx, rows []tables.Engine) error {
	stmt, err := tx.Prepare(`
		INSERT INTO engines (engine_code, manufacturer, model, type, horsepower, cylinders)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range rows {
		_, err := stmt.Exec(e.EngineCode, e.Manufacturer, e.Model, e.Type, nullInt32(e.Horsepower), nullInt32(e.Cylinders))
		if err != nil {
			return err
		}
	}
	return nil
}

func loadCodeTables(tx *sql.Tx) error {
	sets := []struct {
		table string
		rows  []codes.Code
	}{
		{"status_codes", codes.Status},
		{"airworthiness_classes", codes.Airworthiness},
		{"owner_types", codes.OwnerTypes},
	}
	for _, set := range sets {
		stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (code, description) VALUES (?, ?)", set.table))
		if err != nil {
			return err
		}
		for _, c := range set.rows {
			if _, err := stmt.Exec(c.Code, c.Description); err != nil {
				_ = stmt.Close()
				return err
			}
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return nil
}

func nullInt32(v *int32) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format("2006-01-02")
}
