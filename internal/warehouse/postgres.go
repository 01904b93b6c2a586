package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"faa_registry/internal/tables"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresSink mirrors generations into PostgreSQL. Each mirror runs in a
// single transaction, so readers never see a half-replaced generation.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Pool returns the underlying connection pool for advanced operations.
func (s *PostgresSink) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

// pgTables lists the mirrored table names in load order.
var pgTables = []string{
	"registry_aircraft",
	"registry_registrations",
	"registry_owners",
	"registry_owners_summary",
	"registry_make_model",
	"registry_engines",
}

// CreateSchema creates the PostgreSQL tables. Owner fingerprints are
// unsigned 64-bit values stored two's complement in BIGINT columns.
func (s *PostgresSink) CreateSchema(ctx context.Context) error {
	schema := `
	-- Airframes with denormalized registration state
	CREATE TABLE IF NOT EXISTS registry_aircraft (
		generation          TEXT NOT NULL,
		n_number            TEXT NOT NULL,
		serial_no           TEXT,
		mfr_mdl_code        TEXT,
		engine_code         TEXT,
		year_mfr            INTEGER,
		airworthiness_class TEXT,
		seats               INTEGER,
		engines             INTEGER,
		reg_status          TEXT,
		status_date         DATE,
		reg_expiration      DATE,
		is_deregistered     BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (generation, n_number)
	);

	CREATE INDEX IF NOT EXISTS idx_registry_aircraft_mfr_mdl ON registry_aircraft(mfr_mdl_code);

	-- Authoritative registration state
	CREATE TABLE IF NOT EXISTS registry_registrations (
		generation     TEXT NOT NULL,
		n_number       TEXT NOT NULL,
		reg_type       TEXT,
		reg_status     TEXT,
		status_date    DATE,
		reg_expiration DATE,
		PRIMARY KEY (generation, n_number)
	);

	-- Registered parties, one row per party per mark
	CREATE TABLE IF NOT EXISTS registry_owners (
		generation      TEXT NOT NULL,
		owner_id        BIGINT NOT NULL,
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
		zip5            TEXT,
		PRIMARY KEY (generation, owner_id)
	);

	CREATE INDEX IF NOT EXISTS idx_registry_owners_n_number ON registry_owners(generation, n_number);
	CREATE INDEX IF NOT EXISTS idx_registry_owners_state ON registry_owners(state_std);

	-- Per-mark ownership rollup
	CREATE TABLE IF NOT EXISTS registry_owners_summary (
		generation         TEXT NOT NULL,
		n_number           TEXT NOT NULL,
		owner_count        INTEGER NOT NULL,
		owner_names_concat TEXT,
		any_trust_flag     BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (generation, n_number)
	);

	-- Make/model reference data
	CREATE TABLE IF NOT EXISTS registry_make_model (
		generation    TEXT NOT NULL,
		mfr_mdl_code  TEXT NOT NULL,
		maker         TEXT,
		model         TEXT,
		category      TEXT,
		type          TEXT,
		engine_type   TEXT,
		seats_default INTEGER,
		PRIMARY KEY (generation, mfr_mdl_code)
	);

	-- Engine reference data
	CREATE TABLE IF NOT EXISTS registry_engines (
		generation   TEXT NOT NULL,
		engine_code  TEXT NOT NULL,
		manufacturer TEXT,
		model        TEXT,
		type         TEXT,
		horsepower   INTEGER,
		cylinders    INTEGER,
		PRIMARY KEY (generation, engine_code)
	);

	-- One row per mirrored generation
	CREATE TABLE IF NOT EXISTS registry_generations (
		generation  TEXT PRIMARY KEY,
		built_at    TIMESTAMPTZ,
		mirrored_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		row_counts  JSONB
	);
	`

	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Mirror loads one generation into PostgreSQL, replacing any rows from a
// prior mirror of the same generation.
func (s *PostgresSink) Mirror(ctx context.Context, g *Generation) error {
	if err := g.validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mirror: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range pgTables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE generation = $1", table), g.Name); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, g.Name, err)
		}
	}

	if err := copyGeneration(ctx, tx, g); err != nil {
		return err
	}

	counts := g.Snapshot.Counts()
	counts["owners_summary"] = len(g.Summaries)
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal row counts: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO registry_generations (generation, built_at, mirrored_at, row_counts)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (generation) DO UPDATE SET
			built_at = EXCLUDED.built_at,
			mirrored_at = EXCLUDED.mirrored_at,
			row_counts = EXCLUDED.row_counts
	`, g.Name, g.BuiltAt, countsJSON)
	if err != nil {
		return fmt.Errorf("record generation %s: %w", g.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mirror: %w", err)
	}
	return nil
}

func copyGeneration(ctx context.Context, tx pgx.Tx, g *Generation) error {
	snap := g.Snapshot

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"registry_aircraft"},
		[]string{"generation", "n_number", "serial_no", "mfr_mdl_code", "engine_code", "year_mfr",
			"airworthiness_class", "seats", "engines", "reg_status", "status_date", "reg_expiration", "is_deregistered"},
		pgx.CopyFromSlice(len(snap.Aircraft), func(i int) ([]any, error) {
			r := snap.Aircraft[i]
			return []any{g.Name, r.NNumber, r.SerialNo, r.MfrMdlCode, r.EngineCode, r.YearMfr,
				r.AirworthinessClass, r.Seats, r.Engines, r.RegStatus, r.StatusDate, r.RegExpiration, r.IsDeregistered}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy aircraft: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"registry_registrations"},
		[]string{"generation", "n_number", "reg_type", "reg_status", "status_date", "reg_expiration"},
		pgx.CopyFromSlice(len(snap.Registrations), func(i int) ([]any, error) {
			r := snap.Registrations[i]
			return []any{g.Name, r.NNumber, r.RegType, r.RegStatus, r.StatusDate, r.RegExpiration}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy registrations: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"registry_owners"},
		[]string{"generation", "owner_id", "n_number", "owner_type", "owner_name_raw", "address1_raw",
			"address2_raw", "city_raw", "state_raw", "zip_raw", "owner_name_std", "address_all_std",
			"city_std", "state_std", "zip5"},
		pgx.CopyFromSlice(len(snap.Owners), func(i int) ([]any, error) {
			o := snap.Owners[i]
			return []any{g.Name, int64(o.OwnerID), o.NNumber, o.OwnerType, o.OwnerNameRaw, o.Address1Raw,
				o.Address2Raw, o.CityRaw, o.StateRaw, o.ZipRaw, o.OwnerNameStd, o.AddressAllStd,
				o.CityStd, o.StateStd, o.Zip5}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy owners: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"registry_owners_summary"},
		[]string{"generation", "n_number", "owner_count", "owner_names_concat", "any_trust_flag"},
		pgx.CopyFromSlice(len(g.Summaries), func(i int) ([]any, error) {
			r := g.Summaries[i]
			return []any{g.Name, r.NNumber, r.OwnerCount, r.OwnerNamesConcat, r.AnyTrustFlag}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy owners_summary: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"registry_make_model"},
		[]string{"generation", "mfr_mdl_code", "maker", "model", "category", "type", "engine_type", "seats_default"},
		pgx.CopyFromSlice(len(snap.MakeModels), func(i int) ([]any, error) {
			m := snap.MakeModels[i]
			return []any{g.Name, m.MfrMdlCode, m.Maker, m.Model, m.Category, m.Type, m.EngineType, m.SeatsDefault}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy make_model: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"registry_engines"},
		[]string{"generation", "engine_code", "manufacturer", "model", "type", "horsepower", "cylinders"},
		pgx.CopyFromSlice(len(snap.Engines), func(i int) ([]any, error) {
			e := snap.Engines[i]
			return []any{g.Name, e.EngineCode, e.Manufacturer, e.Model, e.Type, e.Horsepower, e.Cylinders}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy engines: %w", err)
	}

	return nil
}

// MirrorInfo is one row from registry_generations.
type MirrorInfo struct {
	Generation string
	BuiltAt    *time.Time
	MirroredAt time.Time
	RowCounts  map[string]int
}

// GetGeneration retrieves the mirror record for a generation, or nil when
// the generation has never been mirrored.
func (s *PostgresSink) GetGeneration(ctx context.Context, name string) (*MirrorInfo, error) {
	var (
		info       MirrorInfo
		countsJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT generation, built_at, mirrored_at, row_counts
		FROM registry_generations WHERE generation = $1
	`, name).Scan(&info.Generation, &info.BuiltAt, &info.MirroredAt, &countsJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(countsJSON, &info.RowCounts)
	return &info, nil
}
