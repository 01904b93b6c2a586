package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPublishEquivalent(t *testing.T) {
	base := &Publish{
		Generation:         "2025-08-20",
		BuiltAt:            time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC),
		FingerprintVersion: 1,
		Tables: map[string]TableInfo{
			"aircraft": {Rows: 100, SchemaHash: "00ff00ff00ff00ff"},
			"owners":   {Rows: 120, SchemaHash: "1122334455667788"},
		},
		Artifacts: map[string]int64{"registry.db": 4096},
	}

	rebuilt := &Publish{
		Generation:         "2025-08-20",
		BuiltAt:            time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC), // different build time
		FingerprintVersion: 1,
		Tables: map[string]TableInfo{
			"aircraft": {Rows: 100, SchemaHash: "00ff00ff00ff00ff"},
			"owners":   {Rows: 120, SchemaHash: "1122334455667788"},
		},
		Artifacts: map[string]int64{"registry.db": 8192}, // different size
	}
	if !base.Equivalent(rebuilt) {
		t.Error("manifests differing only in build time and sizes should be equivalent")
	}

	changed := *rebuilt
	changed.Tables = map[string]TableInfo{
		"aircraft": {Rows: 101, SchemaHash: "00ff00ff00ff00ff"},
		"owners":   {Rows: 120, SchemaHash: "1122334455667788"},
	}
	if base.Equivalent(&changed) {
		t.Error("manifests with different row counts compared equivalent")
	}

	var nilManifest *Publish
	if base.Equivalent(nilManifest) {
		t.Error("Equivalent against nil returned true")
	}
}

func TestPublishRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	in := &Publish{
		Generation:         "2025-08-20",
		BuiltAt:            time.Date(2025, 8, 20, 10, 30, 0, 0, time.UTC),
		FingerprintVersion: 1,
		Tables:             map[string]TableInfo{"engines": {Rows: 7, SchemaHash: "0102030405060708"}},
		Artifacts:          map[string]int64{"engines.parquet": 1234},
		Coverage:           []Coverage{{Column: "engine_code", Referenced: 10, Matched: 9, Percent: 90}},
	}
	if err := Write(path, in); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	out, err := ReadPublish(path)
	if err != nil {
		t.Fatalf("ReadPublish returned error: %v", err)
	}
	if !in.Equivalent(out) {
		t.Error("round-tripped manifest not equivalent to original")
	}
	if out.Artifacts["engines.parquet"] != 1234 {
		t.Errorf("Artifacts = %v, want engines.parquet 1234", out.Artifacts)
	}
	if len(out.Coverage) != 1 || out.Coverage[0].Column != "engine_code" {
		t.Errorf("Coverage = %v, want engine_code entry", out.Coverage)
	}
}

func TestReadFetchForeignProducer(t *testing.T) {
	// The fetch step is a separate program; its timestamps are free-form.
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	doc := `{
  "snapshot_date": "2025-08-20",
  "created_at": "2025-08-20T06:01:02.123456",
  "files": {
    "MASTER.txt": {"filename": "MASTER.txt", "url": "https://example.gov/MASTER.txt", "sha256": "ab12", "size_bytes": 999}
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f, err := ReadFetch(path)
	if err != nil {
		t.Fatalf("ReadFetch returned error: %v", err)
	}
	if f.SnapshotDate != "2025-08-20" {
		t.Errorf("SnapshotDate = %q, want %q", f.SnapshotDate, "2025-08-20")
	}
	if f.Files["MASTER.txt"].SizeBytes != 999 {
		t.Errorf("MASTER.txt size = %d, want 999", f.Files["MASTER.txt"].SizeBytes)
	}

	if _, err := ReadFetch(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadFetch of missing file succeeded")
	}
}

func TestHashString(t *testing.T) {
	if got := HashString(0xff); got != "00000000000000ff" {
		t.Errorf("HashString = %q, want %q", got, "00000000000000ff")
	}
}
