// Package manifest reads and writes the JSON metadata that travels with a
// registry generation: the fetch manifest produced by the download step
// (consumed here as advisory provenance only) and the normalize/publish
// manifests this pipeline produces for downstream consumers.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SourceFile describes one raw extract as recorded by the fetch step.
type SourceFile struct {
	Filename  string `json:"filename"`
	URL       string `json:"url,omitempty"`
	SHA256    string `json:"sha256,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// Fetch is the manifest written next to the raw files. Checksums are not
// re-verified here; the fetch step already did that. Timestamps stay as
// strings because the producer is not this program.
type Fetch struct {
	SnapshotDate     string                `json:"snapshot_date"`
	CreatedAt        string                `json:"created_at,omitempty"`
	PreviousSnapshot string                `json:"previous_snapshot,omitempty"`
	Files            map[string]SourceFile `json:"files,omitempty"`
}

// TableInfo records one table's row count and schema version.
type TableInfo struct {
	Rows       int    `json:"rows"`
	SchemaHash string `json:"schema_hash"`
}

// Coverage records one reference-resolution measurement.
type Coverage struct {
	Column     string  `json:"column"`
	Referenced int     `json:"referenced_rows"`
	Matched    int     `json:"matched_rows"`
	Percent    float64 `json:"percent"`
}

// Normalize is written next to the normalized tables.
type Normalize struct {
	Generation   string               `json:"generation"`
	NormalizedAt time.Time            `json:"normalized_at"`
	Tables       map[string]TableInfo `json:"tables"`
	RowErrors    int                  `json:"row_errors"`
	Source       *Fetch               `json:"source,omitempty"`
}

// Publish describes one published generation.
type Publish struct {
	Generation         string               `json:"generation"`
	BuiltAt            time.Time            `json:"built_at"`
	FingerprintVersion int                  `json:"fingerprint_version"`
	Tables             map[string]TableInfo `json:"tables"`
	Artifacts          map[string]int64     `json:"artifacts"`
	Coverage           []Coverage           `json:"coverage,omitempty"`
	Source             *Fetch               `json:"source,omitempty"`
}

// Equivalent reports whether two publish manifests describe the same data:
// same generation, same row counts, same schema versions, same fingerprint
// scheme. Build timestamps and artifact byte sizes are excluded, so a
// re-publish of unchanged tables compares equivalent to its predecessor.
func (p *Publish) Equivalent(o *Publish) bool {
	if p == nil || o == nil {
		return false
	}
	if p.Generation != o.Generation || p.FingerprintVersion != o.FingerprintVersion {
		return false
	}
	if len(p.Tables) != len(o.Tables) {
		return false
	}
	for name, info := range p.Tables {
		other, ok := o.Tables[name]
		if !ok || other != info {
			return false
		}
	}
	return true
}

// HashString renders a schema hash the way manifests store it. JSON
// numbers cannot carry a full uint64, so hashes travel as fixed-width hex.
func HashString(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ReadFetch loads the fetch manifest from path.
func ReadFetch(path string) (*Fetch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fetch manifest: %w", err)
	}
	var f Fetch
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fetch manifest %s: %w", path, err)
	}
	return &f, nil
}

// ReadPublish loads a publish manifest from path.
func ReadPublish(path string) (*Publish, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publish manifest: %w", err)
	}
	var p Publish
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse publish manifest %s: %w", path, err)
	}
	return &p, nil
}

// ReadNormalize loads a normalize manifest from path.
func ReadNormalize(path string) (*Normalize, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normalize manifest: %w", err)
	}
	var n Normalize
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse normalize manifest %s: %w", path, err)
	}
	return &n, nil
}

// Write marshals v with indentation and writes it to path.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
