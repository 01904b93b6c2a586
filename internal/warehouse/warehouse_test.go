package warehouse

import (
	"context"
	"os"
	"testing"
	"time"

	"faa_registry/internal/tables"
)

func int32p(v int32) *int32 { return &v }

func datep(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// testGeneration uses an owner fingerprint above MaxInt64 so the signed
// round trip through BIGINT columns is exercised.
func testGeneration(name string) *Generation {
	return &Generation{
		Name:    name,
		BuiltAt: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: &tables.Snapshot{
			Aircraft: []tables.Aircraft{
				{NNumber: "N1AB", MfrMdlCode: "1234567", YearMfr: int32p(1998), RegStatus: "V", StatusDate: datep(2023, time.May, 1)},
				{NNumber: "N2CD", RegStatus: "E", IsDeregistered: true},
			},
			Registrations: []tables.Registration{
				{NNumber: "N1AB", RegType: "1", RegStatus: "V", StatusDate: datep(2023, time.May, 1)},
				{NNumber: "N2CD", RegStatus: "E"},
			},
			Owners: []tables.Owner{
				{OwnerID: 0xDEADBEEFCAFEBABE, NNumber: "N1AB", OwnerType: "2", OwnerNameStd: "SMITH AVIATION TRUST", StateStd: "TX"},
			},
			MakeModels: []tables.MakeModel{
				{MfrMdlCode: "1234567", Maker: "CESSNA", Model: "172S"},
			},
			Engines: []tables.Engine{
				{EngineCode: "54321", Manufacturer: "LYCOMING", Horsepower: int32p(180)},
			},
		},
		Summaries: []tables.OwnerSummary{
			{NNumber: "N1AB", OwnerCount: 1, OwnerNamesConcat: "SMITH AVIATION TRUST", AnyTrustFlag: true},
		},
	}
}

func TestGenerationValidate(t *testing.T) {
	if err := (&Generation{Snapshot: &tables.Snapshot{}}).validate(); err == nil {
		t.Error("empty name passed validation")
	}
	if err := (&Generation{Name: "2024-06-01"}).validate(); err == nil {
		t.Error("missing snapshot passed validation")
	}
	if err := testGeneration("2024-06-01").validate(); err != nil {
		t.Errorf("valid generation rejected: %v", err)
	}
}

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresSink {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "registry"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "registry"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "registry"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil
	}

	if err := pg.CreateSchema(ctx); err != nil {
		_ = pg.Close()
		return nil
	}

	return pg
}

func TestPostgresMirror(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer func() { _ = pg.Close() }()

	ctx := context.Background()
	gen := testGeneration("test-pg-mirror")

	cleanup := func() {
		for _, table := range append(pgTables, "registry_generations") {
			_, _ = pg.pool.Exec(ctx, "DELETE FROM "+table+" WHERE generation = $1", gen.Name)
		}
	}
	cleanup()
	defer cleanup()

	// Mirror twice; the second run must replace, not duplicate.
	for i := 0; i < 2; i++ {
		if err := pg.Mirror(ctx, gen); err != nil {
			t.Fatalf("Mirror run %d: %v", i+1, err)
		}
	}

	var aircraft int
	err := pg.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM registry_aircraft WHERE generation = $1", gen.Name).Scan(&aircraft)
	if err != nil {
		t.Fatalf("count aircraft: %v", err)
	}
	if aircraft != 2 {
		t.Errorf("aircraft rows = %d, want 2", aircraft)
	}

	var ownerID int64
	err = pg.pool.QueryRow(ctx,
		"SELECT owner_id FROM registry_owners WHERE generation = $1", gen.Name).Scan(&ownerID)
	if err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if uint64(ownerID) != gen.Snapshot.Owners[0].OwnerID {
		t.Errorf("owner_id round trip = %d, want %d", uint64(ownerID), gen.Snapshot.Owners[0].OwnerID)
	}

	info, err := pg.GetGeneration(ctx, gen.Name)
	if err != nil {
		t.Fatalf("GetGeneration: %v", err)
	}
	if info == nil {
		t.Fatal("GetGeneration returned nil for mirrored generation")
	}
	if info.RowCounts["aircraft"] != 2 || info.RowCounts["owners_summary"] != 1 {
		t.Errorf("row counts = %v", info.RowCounts)
	}

	missing, err := pg.GetGeneration(ctx, "never-mirrored")
	if err != nil {
		t.Fatalf("GetGeneration missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetGeneration for unknown generation = %+v, want nil", missing)
	}
}

// setupTestClickHouse creates a test database connection.
// Returns nil if no ClickHouse connection is available.
func setupTestClickHouse(t *testing.T) *ClickHouseSink {
	t.Helper()

	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		host = "localhost"
	}
	database := os.Getenv("CLICKHOUSE_DB")
	if database == "" {
		database = "default"
	}
	user := os.Getenv("CLICKHOUSE_USER")
	if user == "" {
		user = "default"
	}

	ctx := context.Background()
	ch, err := OpenClickHouse(ctx, ClickHouseConfig{
		Host:     host,
		Port:     9000,
		Database: database,
		User:     user,
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	})
	if err != nil {
		return nil
	}

	if err := ch.CreateSchema(ctx); err != nil {
		_ = ch.Close()
		return nil
	}

	return ch
}

func TestClickHouseMirror(t *testing.T) {
	ch := setupTestClickHouse(t)
	if ch == nil {
		t.Skip("No ClickHouse connection available")
	}
	defer func() { _ = ch.Close() }()

	ctx := context.Background()
	gen := testGeneration("test-ch-mirror")

	cleanup := func() {
		for _, table := range chTables {
			_ = ch.conn.Exec(ctx, "DELETE FROM "+table+" WHERE generation = ?", gen.Name)
		}
	}
	cleanup()
	defer cleanup()

	if err := ch.Mirror(ctx, gen); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	var owners uint64
	err := ch.conn.QueryRow(ctx,
		"SELECT count() FROM registry_owners WHERE generation = ?", gen.Name).Scan(&owners)
	if err != nil {
		t.Fatalf("count owners: %v", err)
	}
	if owners != 1 {
		t.Errorf("owner rows = %d, want 1", owners)
	}

	var ownerID uint64
	err = ch.conn.QueryRow(ctx,
		"SELECT owner_id FROM registry_owners WHERE generation = ?", gen.Name).Scan(&ownerID)
	if err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if ownerID != gen.Snapshot.Owners[0].OwnerID {
		t.Errorf("owner_id = %d, want %d", ownerID, gen.Snapshot.Owners[0].OwnerID)
	}
}
