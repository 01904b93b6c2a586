package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"faa_registry/internal/tables"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseSink mirrors generations into ClickHouse MergeTree tables
// partitioned by generation.
type ClickHouseSink struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseSink{conn: conn}, nil
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (s *ClickHouseSink) Conn() driver.Conn {
	return s.conn
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

// chTables lists the mirrored table names in load order.
var chTables = []string{
	"registry_aircraft",
	"registry_registrations",
	"registry_owners",
	"registry_owners_summary",
	"registry_make_model",
	"registry_engines",
	"registry_generations",
}

// CreateSchema creates the ClickHouse tables.
func (s *ClickHouseSink) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS registry_aircraft (
			generation          LowCardinality(String),
			n_number            String,
			serial_no           String,
			mfr_mdl_code        LowCardinality(String),
			engine_code         LowCardinality(String),
			year_mfr            Nullable(Int32),
			airworthiness_class LowCardinality(String),
			seats               Nullable(Int32),
			engines             Nullable(Int32),
			reg_status          LowCardinality(String),
			status_date         Nullable(Date32),
			reg_expiration      Nullable(Date32),
			is_deregistered     Bool,
			mirrored_at         DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, n_number)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS registry_registrations (
			generation     LowCardinality(String),
			n_number       String,
			reg_type       LowCardinality(String),
			reg_status     LowCardinality(String),
			status_date    Nullable(Date32),
			reg_expiration Nullable(Date32),
			mirrored_at    DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, n_number)`,

		`CREATE TABLE IF NOT EXISTS registry_owners (
			generation      LowCardinality(String),
			owner_id        UInt64,
			n_number        String,
			owner_type      LowCardinality(String),
			owner_name_raw  String,
			address1_raw    String,
			address2_raw    String,
			city_raw        String,
			state_raw       String,
			zip_raw         String,
			owner_name_std  String,
			address_all_std String,
			city_std        String,
			state_std       LowCardinality(String),
			zip5            String,
			mirrored_at     DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, n_number, owner_id)`,

		`CREATE TABLE IF NOT EXISTS registry_owners_summary (
			generation         LowCardinality(String),
			n_number           String,
			owner_count        Int32,
			owner_names_concat String,
			any_trust_flag     Bool,
			mirrored_at        DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, n_number)`,

		`CREATE TABLE IF NOT EXISTS registry_make_model (
			generation    LowCardinality(String),
			mfr_mdl_code  String,
			maker         LowCardinality(String),
			model         String,
			category      LowCardinality(String),
			type          LowCardinality(String),
			engine_type   LowCardinality(String),
			seats_default Nullable(Int32),
			mirrored_at   DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, mfr_mdl_code)`,

		`CREATE TABLE IF NOT EXISTS registry_engines (
			generation   LowCardinality(String),
			engine_code  String,
			manufacturer LowCardinality(String),
			model        String,
			type         LowCardinality(String),
			horsepower   Nullable(Int32),
			cylinders    Nullable(Int32),
			mirrored_at  DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY generation
		ORDER BY (generation, engine_code)`,

		`CREATE TABLE IF NOT EXISTS registry_generations (
			generation  String,
			built_at    DateTime64(3),
			mirrored_at DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		ORDER BY generation`,
	}

	for _, q := range queries {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// Mirror loads one generation into ClickHouse, clearing any rows a prior
// mirror of the same generation left behind.
func (s *ClickHouseSink) Mirror(ctx context.Context, g *Generation) error {
	if err := g.validate(); err != nil {
		return err
	}

	for _, table := range chTables {
		err := s.conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE generation = ?", table), g.Name)
		if err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, g.Name, err)
		}
	}

	snap := g.Snapshot
	if err := s.insertAircraft(ctx, g.Name, snap.Aircraft); err != nil {
		return err
	}
	if err := s.insertRegistrations(ctx, g.Name, snap.Registrations); err != nil {
		return err
	}
	if err := s.insertOwners(ctx, g.Name, snap.Owners); err != nil {
		return err
	}
	if err := s.insertOwnerSummaries(ctx, g.Name, g.Summaries); err != nil {
		return err
	}
	if err := s.insertMakeModels(ctx, g.Name, snap.MakeModels); err != nil {
		return err
	}
	if err := s.insertEngines(ctx, g.Name, snap.Engines); err != nil {
		return err
	}

	err := s.conn.Exec(ctx,
		"INSERT INTO registry_generations (generation, built_at) VALUES (?, ?)",
		g.Name, g.BuiltAt)
	if err != nil {
		return fmt.Errorf("record generation %s: %w", g.Name, err)
	}
	return nil
}

func (s *ClickHouseSink) insertAircraft(ctx context.Context, gen string, rows []tables.Aircraft) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_aircraft (generation, n_number, serial_no, mfr_mdl_code, engine_code, year_mfr, airworthiness_class, seats, engines, reg_status, status_date, reg_expiration, is_deregistered)
	`)
	if err != nil {
		return fmt.Errorf("prepare aircraft batch: %w", err)
	}
	for _, r := range rows {
		err := batch.Append(gen, r.NNumber, r.SerialNo, r.MfrMdlCode, r.EngineCode, r.YearMfr,
			r.AirworthinessClass, r.Seats, r.Engines, r.RegStatus, r.StatusDate, r.RegExpiration, r.IsDeregistered)
		if err != nil {
			return fmt.Errorf("append aircraft %s: %w", r.NNumber, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send aircraft batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) insertRegistrations(ctx context.Context, gen string, rows []tables.Registration) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_registrations (generation, n_number, reg_type, reg_status, status_date, reg_expiration)
	`)
	if err != nil {
		return fmt.Errorf("prepare registrations batch: %w", err)
	}
	for _, r := range rows {
		err := batch.Append(gen, r.NNumber, r.RegType, r.RegStatus, r.StatusDate, r.RegExpiration)
		if err != nil {
			return fmt.Errorf("append registration %s: %w", r.NNumber, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send registrations batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) insertOwners(ctx context.Context, gen string, rows []tables.Owner) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_owners (generation, owner_id, n_number, owner_type, owner_name_raw, address1_raw, address2_raw, city_raw, state_raw, zip_raw, owner_name_std, address_all_std, city_std, state_std, zip5)
	`)
	if err != nil {
		return fmt.Errorf("prepare owners batch: %w", err)
	}
	for _, o := range rows {
		err := batch.Append(gen, o.OwnerID, o.NNumber, o.OwnerType, o.OwnerNameRaw, o.Address1Raw,
			o.Address2Raw, o.CityRaw, o.StateRaw, o.ZipRaw, o.OwnerNameStd, o.AddressAllStd,
			o.CityStd, o.StateStd, o.Zip5)
		if err != nil {
			return fmt.Errorf("append owner %d: %w", o.OwnerID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send owners batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) insertOwnerSummaries(ctx context.Context, gen string, rows []tables.OwnerSummary) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_owners_summary (generation, n_number, owner_count, owner_names_concat, any_trust_flag)
	`)
	if err != nil {
		return fmt.Errorf("prepare owners_summary batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(gen, r.NNumber, r.OwnerCount, r.OwnerNamesConcat, r.AnyTrustFlag); err != nil {
			return fmt.Errorf("append owner summary %s: %w", r.NNumber, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send owners_summary batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) insertMakeModels(ctx context.Context, gen string, rows []tables.MakeModel) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_make_model (generation, mfr_mdl_code, maker, model, category, type, engine_type, seats_default)
	`)
	if err != nil {
		return fmt.Errorf("prepare make_model batch: %w", err)
	}
	for _, m := range rows {
		err := batch.Append(gen, m.MfrMdlCode, m.Maker, m.Model, m.Category, m.Type, m.EngineType, m.SeatsDefault)
		if err != nil {
			return fmt.Errorf("append make/model %s: %w", m.MfrMdlCode, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send make_model batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) insertEngines(ctx context.Context, gen string, rows []tables.Engine) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO registry_engines (generation, engine_code, manufacturer, model, type, horsepower, cylinders)
	`)
	if err != nil {
		return fmt.Errorf("prepare engines batch: %w", err)
	}
	for _, e := range rows {
		err := batch.Append(gen, e.EngineCode, e.Manufacturer, e.Model, e.Type, e.Horsepower, e.Cylinders)
		if err != nil {
			return fmt.Errorf("append engine %s: %w", e.EngineCode, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send engines batch: %w", err)
	}
	return nil
}
