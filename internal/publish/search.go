package publish

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"faa_registry/internal/tables"
)

// searchSchema creates the owner lookup store. owner_id doubles as the
// rowid, so the content-backed FTS index and the base table stay aligned.
// The store is written once at publish time; only the insert trigger is
// needed to keep the index in sync during the load.
const searchSchema = `
CREATE TABLE owners (
	owner_id        INTEGER PRIMARY KEY,
	n_number        TEXT NOT NULL,
	owner_name_std  TEXT,
	address_all_std TEXT,
	city_std        TEXT,
	state_std       TEXT,
	zip5            TEXT
);

CREATE VIRTUAL TABLE owners_fts USING fts5(
	owner_name_std,
	address_all_std,
	city_std,
	state_std,
	content=owners,
	content_rowid=owner_id
);

CREATE TRIGGER owners_ai AFTER INSERT ON owners BEGIN
	INSERT INTO owners_fts(rowid, owner_name_std, address_all_std, city_std, state_std)
	VALUES (new.owner_id, new.owner_name_std, new.address_all_std, new.city_std, new.state_std);
END;
`

const searchIndexes = `
CREATE INDEX idx_owners_n_number ON owners(n_number);
CREATE INDEX idx_owners_state ON owners(state_std);
`

// buildSearchStore writes the full-text owner lookup database for one
// generation.
func buildSearchStore(path string, owners []tables.Owner) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open search store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=OFF"); err != nil {
		_ = db.Close()
		return fmt.Errorf("disable journal: %w", err)
	}
	if _, err := db.Exec(searchSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create search schema: %w", err)
	}
	if err := loadSearchOwners(db, owners); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.Exec(searchIndexes); err != nil {
		_ = db.Close()
		return fmt.Errorf("create search indexes: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close search store: %w", err)
	}
	return nil
}

func loadSearchOwners(db *sql.DB, owners []tables.Owner) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin owner load: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO owners (owner_id, n_number, owner_name_std, address_all_std, city_std, state_std, zip5)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare owner insert: %w", err)
	}
	for _, o := range owners {
		_, err := stmt.Exec(int64(o.OwnerID), o.NNumber, o.OwnerNameStd, o.AddressAllStd, o.CityStd, o.StateStd, o.Zip5)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert owner %d: %w", o.OwnerID, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close owner insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit owner load: %w", err)
	}
	return nil
}

// OwnerHit is one match from the owner search store.
type OwnerHit struct {
	OwnerID uint64
	NNumber string
	Name    string
	Address string
	City    string
	State   string
}

// SearchOwners runs an FTS5 match expression against a published owner
// search store and returns the hits in relevance order. The expression
// uses FTS5 syntax, so "SMITH", "smith av*" and column filters like
// "state_std: TX" all work, case-insensitively.
func SearchOwners(path, query string, limit int) ([]OwnerHit, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open search store: %w", err)
	}
	defer func() { _ = db.Close() }()

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT o.owner_id, o.n_number, o.owner_name_std, o.address_all_std, o.city_std, o.state_std
		FROM owners_fts
		JOIN owners o ON o.owner_id = owners_fts.rowid
		WHERE owners_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []OwnerHit
	for rows.Next() {
		var h OwnerHit
		var id int64
		if err := rows.Scan(&id, &h.NNumber, &h.Name, &h.Address, &h.City, &h.State); err != nil {
			return nil, fmt.Errorf("scan owner hit: %w", err)
		}
		h.OwnerID = uint64(id)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owner hits: %w", err)
	}
	return hits, nil
}
