// Package normalize parses the raw registry extracts into the typed
// snapshot tables, applying the declared schemas, the field standardizers
// and the identity fingerprints. Failures are row-scoped wherever
// possible: a bad row is excluded and reported, and only a failure rate
// above the configured threshold aborts the run.
package normalize

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"faa_registry/internal/manifest"
	"faa_registry/internal/schema"
	"faa_registry/internal/tables"
)

// DefaultErrorThreshold is the failed-row fraction tolerated per source
// file before the run aborts.
const DefaultErrorThreshold = 0.05

// Options configure a normalization run.
type Options struct {
	// ErrorThreshold overrides DefaultErrorThreshold when positive.
	ErrorThreshold float64
	// Workers bounds concurrent source-file parsing. Zero or anything
	// above the source count means one worker per source file.
	Workers int
	Logger  *zap.Logger
}

// Result is the output of one run: the snapshot, the row-level error
// report (possibly empty) and rows read per source file.
type Result struct {
	Snapshot *tables.Snapshot
	Errors   []RowError
	RowsRead map[string]int
	Duration time.Duration
}

// Run parses every raw extract under rawDir into one snapshot. Source
// files parse concurrently and merge by table; each table comes from
// exactly one file, so worker scheduling cannot reorder rows. The error
// report keeps source order: master rows first, then make/model, then
// engines.
func Run(rawDir string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := opts.ErrorThreshold
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	workers := opts.Workers
	if workers <= 0 || workers > len(sources) {
		workers = len(sources)
	}

	start := time.Now()

	type outcome struct {
		p   *partial
		err error
	}
	outcomes := make([]outcome, len(sources))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src sourceParser) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			p, err := parseSource(rawDir, src, logger)
			outcomes[i] = outcome{p: p, err: err}
		}(i, src)
	}
	wg.Wait()

	res := &Result{
		Snapshot: &tables.Snapshot{},
		RowsRead: make(map[string]int, len(sources)),
	}
	for i, oc := range outcomes {
		if oc.err != nil {
			return nil, oc.err
		}
		p := oc.p
		res.RowsRead[sources[i].filename] = p.totalRows
		if rate(p.failedRows, p.totalRows) > threshold {
			return nil, &ThresholdExceededError{
				SourceFile: sources[i].filename,
				TotalRows:  p.totalRows,
				FailedRows: p.failedRows,
				Threshold:  threshold,
				Sample:     sampleErrors(p.errors, 5),
			}
		}
		mergeSnapshot(res.Snapshot, &p.snap)
		res.Errors = append(res.Errors, p.errors...)
	}
	res.Duration = time.Since(start)

	logger.Info("normalization complete",
		zap.Int("aircraft", len(res.Snapshot.Aircraft)),
		zap.Int("registrations", len(res.Snapshot.Registrations)),
		zap.Int("owners", len(res.Snapshot.Owners)),
		zap.Int("make_models", len(res.Snapshot.MakeModels)),
		zap.Int("engines", len(res.Snapshot.Engines)),
		zap.Int("row_errors", len(res.Errors)),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

func parseSource(rawDir string, src sourceParser, logger *zap.Logger) (*partial, error) {
	path := filepath.Join(rawDir, src.filename)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", src.filename, err)
	}
	defer f.Close()

	start := time.Now()
	p, err := src.parse(newReader(f))
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", src.filename, err)
	}
	logger.Info("parsed source file",
		zap.String("file", src.filename),
		zap.Int("rows", p.totalRows),
		zap.Int("failed_rows", p.failedRows),
		zap.Duration("elapsed", time.Since(start)))
	return p, nil
}

// mergeSnapshot appends src's tables onto dst.
func mergeSnapshot(dst, src *tables.Snapshot) {
	dst.Aircraft = append(dst.Aircraft, src.Aircraft...)
	dst.Registrations = append(dst.Registrations, src.Registrations...)
	dst.Owners = append(dst.Owners, src.Owners...)
	dst.MakeModels = append(dst.MakeModels, src.MakeModels...)
	dst.Engines = append(dst.Engines, src.Engines...)
}

func rate(failed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

func sampleErrors(errs []RowError, n int) []RowError {
	if len(errs) <= n {
		return errs
	}
	return errs[:n]
}

// WriteOutput persists a run under dir: one parquet file per table,
// errors.json with the row-level report and normalize.json with counts and
// schema versions. src, when present, is copied in as provenance.
func WriteOutput(dir, generation string, res *Result, src *manifest.Fetch) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if _, err := tables.WriteParquet(dir, res.Snapshot, nil); err != nil {
		return err
	}

	errs := res.Errors
	if errs == nil {
		errs = []RowError{}
	}
	if err := manifest.Write(filepath.Join(dir, "errors.json"), errs); err != nil {
		return err
	}

	hashes := schema.Hashes()
	info := make(map[string]manifest.TableInfo)
	for name, rows := range res.Snapshot.Counts() {
		info[name] = manifest.TableInfo{
			Rows:       rows,
			SchemaHash: manifest.HashString(hashes[name]),
		}
	}
	return manifest.Write(filepath.Join(dir, "normalize.json"), &manifest.Normalize{
		Generation:   generation,
		NormalizedAt: time.Now().UTC(),
		Tables:       info,
		RowErrors:    len(res.Errors),
		Source:       src,
	})
}
