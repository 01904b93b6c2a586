// Package publish assembles the queryable artifacts for one registry
// generation and swaps them into the published location atomically.
// Readers of the published directory either see the previous complete
// generation or the new complete generation, never a mix.
package publish

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"faa_registry/internal/identity"
	"faa_registry/internal/manifest"
	"faa_registry/internal/resolve"
	"faa_registry/internal/schema"
	"faa_registry/internal/tables"
)

const (
	// AnalyticStoreFile is the self-contained SQL database artifact.
	AnalyticStoreFile = "registry.db"
	// SearchStoreFile is the full-text owner lookup artifact.
	SearchStoreFile = "owners_search.db"
	// ManifestFile is the publish manifest inside a generation directory.
	ManifestFile = "manifest.json"
	// CurrentFile names the pointer file holding the live generation.
	CurrentFile = "CURRENT"

	lockFile = ".lock"
)

// Options configures a publish run.
type Options struct {
	// Root is the directory under which generations are published.
	Root string
	// LockTTL bounds how long a lock from a live process is honored.
	// Zero means DefaultLockTTL.
	LockTTL time.Duration
	Logger  *zap.Logger

	// failBeforeSwap runs after staging completes and before the swap.
	// Package tests use it to simulate a crash mid-publish.
	failBeforeSwap func() error
}

// Run publishes snap as generation gen under opts.Root. The coverage
// report and fetch manifest are recorded in the publish manifest; both may
// be nil. Re-running with unchanged data is a no-op that returns the
// existing manifest.
func Run(gen string, snap *tables.Snapshot, report *resolve.Report, src *manifest.Fetch, opts Options) (*manifest.Publish, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if gen == "" {
		return nil, errors.New("publish: generation must not be empty")
	}
	if strings.ContainsAny(gen, "/\\") || strings.HasPrefix(gen, ".") {
		return nil, fmt.Errorf("publish: invalid generation name %q", gen)
	}
	if opts.Root == "" {
		return nil, errors.New("publish: root must not be empty")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create publish root: %w", err)
	}

	lock, err := acquireLock(filepath.Join(opts.Root, lockFile), opts.LockTTL, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	summaries := DeriveOwnerSummaries(snap.Owners)
	m := buildManifest(gen, snap, summaries, report, src)

	finalDir := filepath.Join(opts.Root, gen)
	if prior, err := manifest.ReadPublish(filepath.Join(finalDir, ManifestFile)); err == nil && prior.Equivalent(m) {
		logger.Info("generation already published with identical content",
			zap.String("generation", gen),
			zap.String("dir", finalDir))
		if err := writeCurrent(opts.Root, gen); err != nil {
			return nil, err
		}
		return prior, nil
	}

	if err := checkConsistency(snap); err != nil {
		return nil, err
	}

	start := time.Now()
	staging := filepath.Join(opts.Root, fmt.Sprintf(".stage-%s-%d", gen, os.Getpid()))
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	staged := false
	defer func() {
		if !staged {
			_ = os.RemoveAll(staging)
		}
	}()

	sizes, err := tables.WriteParquet(staging, snap, summaries)
	if err != nil {
		return nil, err
	}
	if err := buildAnalyticStore(filepath.Join(staging, AnalyticStoreFile), snap, summaries); err != nil {
		return nil, err
	}
	if err := buildSearchStore(filepath.Join(staging, SearchStoreFile), snap.Owners); err != nil {
		return nil, err
	}
	for _, name := range []string{AnalyticStoreFile, SearchStoreFile} {
		fi, err := os.Stat(filepath.Join(staging, name))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		sizes[name] = fi.Size()
	}
	m.Artifacts = sizes
	if err := manifest.Write(filepath.Join(staging, ManifestFile), m); err != nil {
		return nil, err
	}

	if opts.failBeforeSwap != nil {
		if err := opts.failBeforeSwap(); err != nil {
			return nil, err
		}
	}

	if err := swapIn(staging, finalDir); err != nil {
		return nil, err
	}
	staged = true
	if err := writeCurrent(opts.Root, gen); err != nil {
		return nil, err
	}

	logger.Info("published generation",
		zap.String("generation", gen),
		zap.String("dir", finalDir),
		zap.Int("aircraft", len(snap.Aircraft)),
		zap.Int("owners", len(snap.Owners)),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

func buildManifest(gen string, snap *tables.Snapshot, summaries []tables.OwnerSummary, report *resolve.Report, src *manifest.Fetch) *manifest.Publish {
	counts := snap.Counts()
	counts[schema.TableOwnersSummary] = len(summaries)

	info := make(map[string]manifest.TableInfo, len(counts))
	for name, hash := range schema.Hashes() {
		info[name] = manifest.TableInfo{Rows: counts[name], SchemaHash: manifest.HashString(hash)}
	}

	m := &manifest.Publish{
		Generation:         gen,
		BuiltAt:            time.Now().UTC(),
		FingerprintVersion: identity.Version,
		Tables:             info,
		Source:             src,
	}
	if report != nil {
		for _, c := range report.Entries {
			m.Coverage = append(m.Coverage, manifest.Coverage{
				Column:     c.Column,
				Referenced: c.Referenced,
				Matched:    c.Matched,
				Percent:    c.Percent(),
			})
		}
	}
	return m
}

// swapIn moves the staged generation into place. A previous directory for
// the same generation is retired first and removed after the swap lands.
func swapIn(staging, finalDir string) error {
	retired := fmt.Sprintf("%s.old-%d", finalDir, os.Getpid())
	hadPrevious := false
	if _, err := os.Stat(finalDir); err == nil {
		if err := os.Rename(finalDir, retired); err != nil {
			return fmt.Errorf("retire previous generation: %w", err)
		}
		hadPrevious = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", finalDir, err)
	}
	if err := os.Rename(staging, finalDir); err != nil {
		if hadPrevious {
			_ = os.Rename(retired, finalDir)
		}
		return fmt.Errorf("swap in generation: %w", err)
	}
	if hadPrevious {
		_ = os.RemoveAll(retired)
	}
	return nil
}

// writeCurrent repoints the CURRENT file at gen with a rename, so readers
// never observe a partially written pointer.
func writeCurrent(root, gen string) error {
	tmp := filepath.Join(root, fmt.Sprintf(".%s.tmp-%d", CurrentFile, os.Getpid()))
	if err := os.WriteFile(tmp, []byte(gen+"\n"), 0o644); err != nil {
		return fmt.Errorf("write generation pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(root, CurrentFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move generation pointer: %w", err)
	}
	return nil
}

// Current returns the generation named by the CURRENT pointer under root.
func Current(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, CurrentFile))
	if err != nil {
		return "", fmt.Errorf("read generation pointer: %w", err)
	}
	gen := strings.TrimSpace(string(data))
	if gen == "" {
		return "", fmt.Errorf("generation pointer in %s is empty", root)
	}
	return gen, nil
}
