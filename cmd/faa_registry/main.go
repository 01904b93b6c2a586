// Command-line entry point for the FAA registry pipeline.
//
// Note about data layout
// ----------------------
// Every stage works on one "generation", normally the snapshot date:
//
//	<data_root>/raw/<generation>/         delimited extracts + fetch manifest
//	<data_root>/normalized/<generation>/  typed parquet tables + normalize manifest
//	<data_root>/publish/<generation>/     queryable artifacts, swapped in atomically
//
// The publish root's CURRENT file names the generation readers should open.
// Settings load from registry.yml or FAA_REGISTRY_* environment variables;
// subcommand flags override both.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"faa_registry/internal/announce"
	"faa_registry/internal/config"
	"faa_registry/internal/manifest"
	"faa_registry/internal/normalize"
	"faa_registry/internal/publish"
	"faa_registry/internal/resolve"
	"faa_registry/internal/schema"
	"faa_registry/internal/tables"
	"faa_registry/internal/warehouse"
)

// staleAfter is how old the live generation may get before status flags it.
// The FAA refreshes the registry database daily; a month without a publish
// means the pipeline is broken, not idle.
const staleAfter = 30 * 24 * time.Hour

func usage(w io.Writer) {
	fmt.Fprintln(w, "faa_registry - commands:")
	fmt.Fprintln(w, "  normalize - parse raw registry extracts into typed parquet tables")
	fmt.Fprintln(w, "  publish   - build and atomically publish query artifacts for a generation")
	fmt.Fprintln(w, "  run       - normalize then publish in one step")
	fmt.Fprintln(w, "  mirror    - load a published generation into the configured warehouse")
	fmt.Fprintln(w, "  status    - show the live generation and its age")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  faa_registry normalize [-generation 2024-06-01] [-raw DIR] [-out DIR]")
	fmt.Fprintln(w, "  faa_registry publish [-generation 2024-06-01] [-in DIR] [-root DIR]")
	fmt.Fprintln(w, "  faa_registry run [-generation 2024-06-01]")
	fmt.Fprintln(w, "  faa_registry mirror [-generation 2024-06-01] [-driver clickhouse|postgres]")
	fmt.Fprintln(w, "  faa_registry status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - The generation defaults to today's date (UTC).")
	fmt.Fprintln(w, "  - Settings load from registry.yml and FAA_REGISTRY_* env vars; flags win.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "normalize":
		runNormalize(os.Args[2:])
	case "publish":
		runPublish(os.Args[2:])
	case "run":
		runPipeline(os.Args[2:])
	case "mirror":
		runMirror(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runNormalize(args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	gen := fs.String("generation", "", "Generation name (default: today's date, UTC)")
	rawDir := fs.String("raw", "", "Raw extract directory (default: <data_root>/raw/<generation>)")
	outDir := fs.String("out", "", "Output directory (default: <data_root>/normalized/<generation>)")
	threshold := fs.Float64("threshold", 0, "Per-file row error-rate threshold (default from config)")
	workers := fs.Int("workers", 0, "Concurrent source parsers (default: one per file)")
	_ = fs.Parse(args)

	cfg := loadConfig()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	generation := orDefault(*gen, today())
	raw := orDefault(*rawDir, cfg.RawDir(generation))
	out := orDefault(*outDir, cfg.NormalizedDir(generation))

	res, src := normalizeDir(raw, cfg, logger, *threshold, *workers)
	if err := normalize.WriteOutput(out, generation, res, src); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write normalized tables: %v\n", err)
		os.Exit(1)
	}
	logger.Info("normalize complete",
		zap.String("generation", generation),
		zap.String("dir", out),
		zap.Int("aircraft", len(res.Snapshot.Aircraft)),
		zap.Int("row_errors", len(res.Errors)),
		zap.Duration("elapsed", res.Duration))
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	gen := fs.String("generation", "", "Generation name (default: today's date, UTC)")
	inDir := fs.String("in", "", "Normalized tables directory (default: <data_root>/normalized/<generation>)")
	root := fs.String("root", "", "Publish root (default: <data_root>/publish)")
	floor := fs.Float64("floor", 0, "Reference coverage floor (default from config)")
	lockTTL := fs.Duration("lock-ttl", 0, "Age after which a publish lock is considered stale (default from config)")
	announceURL := fs.String("announce", "", "NATS URL to announce the publish on (default from config)")
	_ = fs.Parse(args)

	cfg := loadConfig()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	generation := orDefault(*gen, today())
	in := orDefault(*inDir, cfg.NormalizedDir(generation))

	snap, err := tables.ReadParquet(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read normalized tables: %v\n", err)
		os.Exit(1)
	}

	// Provenance rides along from the normalize stage when it is there.
	var src *manifest.Fetch
	if n, err := manifest.ReadNormalize(filepath.Join(in, "normalize.json")); err == nil {
		src = n.Source
		if n.Generation != generation {
			logger.Warn("normalized tables were built for a different generation",
				zap.String("normalized", n.Generation),
				zap.String("publishing", generation))
		}
	}

	coverageFloor := cfg.Resolve.CoverageFloor
	if *floor > 0 {
		coverageFloor = *floor
	}
	report := resolve.Check(snap, coverageFloor, logger)

	ttl := cfg.Publish.LockTTL
	if *lockTTL > 0 {
		ttl = *lockTTL
	}
	m, err := publish.Run(generation, snap, report, src, publish.Options{
		Root:    orDefault(*root, cfg.PublishRoot()),
		LockTTL: ttl,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to publish %s: %v\n", generation, err)
		os.Exit(1)
	}
	announceResult(orDefault(*announceURL, cfg.Announce.URL), m, logger)
}

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	gen := fs.String("generation", "", "Generation name (default: today's date, UTC)")
	rawDir := fs.String("raw", "", "Raw extract directory (default: <data_root>/raw/<generation>)")
	threshold := fs.Float64("threshold", 0, "Per-file row error-rate threshold (default from config)")
	workers := fs.Int("workers", 0, "Concurrent source parsers (default: one per file)")
	floor := fs.Float64("floor", 0, "Reference coverage floor (default from config)")
	announceURL := fs.String("announce", "", "NATS URL to announce the publish on (default from config)")
	_ = fs.Parse(args)

	cfg := loadConfig()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	generation := orDefault(*gen, today())
	raw := orDefault(*rawDir, cfg.RawDir(generation))

	res, src := normalizeDir(raw, cfg, logger, *threshold, *workers)
	if err := normalize.WriteOutput(cfg.NormalizedDir(generation), generation, res, src); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write normalized tables: %v\n", err)
		os.Exit(1)
	}

	coverageFloor := cfg.Resolve.CoverageFloor
	if *floor > 0 {
		coverageFloor = *floor
	}
	report := resolve.Check(res.Snapshot, coverageFloor, logger)

	m, err := publish.Run(generation, res.Snapshot, report, src, publish.Options{
		Root:    cfg.PublishRoot(),
		LockTTL: cfg.Publish.LockTTL,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to publish %s: %v\n", generation, err)
		os.Exit(1)
	}
	announceResult(orDefault(*announceURL, cfg.Announce.URL), m, logger)
}

func runMirror(args []string) {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	gen := fs.String("generation", "", "Generation to mirror (default: the CURRENT pointer)")
	root := fs.String("root", "", "Publish root (default: <data_root>/publish)")
	driver := fs.String("driver", "", "Warehouse driver, clickhouse or postgres (default from config)")
	_ = fs.Parse(args)

	cfg := loadConfig()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	publishRoot := orDefault(*root, cfg.PublishRoot())
	generation := *gen
	if generation == "" {
		cur, err := publish.Current(publishRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read CURRENT pointer: %v\n", err)
			os.Exit(1)
		}
		generation = cur
	}

	dir := filepath.Join(publishRoot, generation)
	snap, err := tables.ReadParquet(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read published tables: %v\n", err)
		os.Exit(1)
	}
	summaries, err := tables.ReadOwnerSummaries(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read owner summaries: %v\n", err)
		os.Exit(1)
	}
	m, err := manifest.ReadPublish(filepath.Join(dir, publish.ManifestFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read publish manifest: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	sink, err := openSink(ctx, orDefault(*driver, cfg.Warehouse.Driver), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open warehouse: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = sink.Close() }()

	if err := sink.CreateSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create warehouse schema: %v\n", err)
		os.Exit(1)
	}
	start := time.Now()
	g := &warehouse.Generation{
		Name:      generation,
		BuiltAt:   m.BuiltAt,
		Snapshot:  snap,
		Summaries: summaries,
	}
	if err := sink.Mirror(ctx, g); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mirror %s: %v\n", generation, err)
		os.Exit(1)
	}
	logger.Info("mirrored generation",
		zap.String("generation", generation),
		zap.Int("aircraft", len(snap.Aircraft)),
		zap.Int("owners", len(snap.Owners)),
		zap.Duration("elapsed", time.Since(start)))
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	root := fs.String("root", "", "Publish root (default: <data_root>/publish)")
	_ = fs.Parse(args)

	cfg := loadConfig()
	publishRoot := orDefault(*root, cfg.PublishRoot())

	generation, err := publish.Current(publishRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read CURRENT pointer: %v\n", err)
		os.Exit(1)
	}
	m, err := manifest.ReadPublish(filepath.Join(publishRoot, generation, publish.ManifestFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read publish manifest: %v\n", err)
		os.Exit(1)
	}

	age := time.Since(m.BuiltAt)
	fmt.Printf("Generation: %s\n", m.Generation)
	if m.Source != nil && m.Source.SnapshotDate != "" {
		fmt.Printf("Snapshot:   %s\n", m.Source.SnapshotDate)
	}
	fmt.Printf("Built:      %s (%d days ago)\n", m.BuiltAt.Format(time.RFC3339), int(age.Hours()/24))
	if age > staleAfter {
		fmt.Printf("WARNING: last publish is older than %d days\n", int(staleAfter.Hours()/24))
	}
	fmt.Println("Tables:")
	for _, ts := range schema.All {
		if info, ok := m.Tables[ts.Name]; ok {
			fmt.Printf("  %-20s %8d rows  schema %s\n", ts.Name, info.Rows, info.SchemaHash)
		}
	}
	for _, c := range m.Coverage {
		fmt.Printf("Coverage %s: %d/%d (%.1f%%)\n", c.Column, c.Matched, c.Referenced, c.Percent)
	}
}

// normalizeDir runs the normalizer over one raw snapshot directory and picks
// up the fetch manifest beside the extracts when the fetch step left one.
func normalizeDir(raw string, cfg *config.Config, logger *zap.Logger, threshold float64, workers int) (*normalize.Result, *manifest.Fetch) {
	opts := normalize.Options{
		ErrorThreshold: cfg.Normalize.ErrorThreshold,
		Workers:        cfg.Normalize.Workers,
		Logger:         logger,
	}
	if threshold > 0 {
		opts.ErrorThreshold = threshold
	}
	if workers > 0 {
		opts.Workers = workers
	}

	res, err := normalize.Run(raw, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to normalize %s: %v\n", raw, err)
		os.Exit(1)
	}

	src, err := manifest.ReadFetch(filepath.Join(raw, "manifest.json"))
	if err != nil {
		logger.Debug("no fetch manifest beside raw extracts", zap.String("dir", raw), zap.Error(err))
		return res, nil
	}
	return res, src
}

func announceResult(url string, m *manifest.Publish, logger *zap.Logger) {
	if url == "" {
		return
	}
	subject, err := announce.Publish(url, m)
	if err != nil {
		// The artifacts are already live; a missed announcement is not a
		// failed publish.
		logger.Warn("publish announcement failed", zap.String("url", url), zap.Error(err))
		return
	}
	logger.Info("announced publish", zap.String("subject", subject))
}

func openSink(ctx context.Context, driver string, cfg *config.Config) (warehouse.Sink, error) {
	switch driver {
	case "clickhouse":
		return warehouse.OpenClickHouse(ctx, warehouse.ClickHouseConfig{
			Host:     cfg.Warehouse.ClickHouse.Host,
			Port:     cfg.Warehouse.ClickHouse.Port,
			Database: cfg.Warehouse.ClickHouse.Database,
			User:     cfg.Warehouse.ClickHouse.User,
			Password: cfg.Warehouse.ClickHouse.Password,
		})
	case "postgres":
		return warehouse.OpenPostgres(ctx, warehouse.PostgresConfig{
			Host:     cfg.Warehouse.Postgres.Host,
			Port:     cfg.Warehouse.Postgres.Port,
			Database: cfg.Warehouse.Postgres.Database,
			User:     cfg.Warehouse.Postgres.User,
			Password: cfg.Warehouse.Postgres.Password,
		})
	case "":
		return nil, fmt.Errorf("no warehouse driver configured")
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", driver)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger() *zap.Logger {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
