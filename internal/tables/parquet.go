package tables

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// Parquet artifact filenames, one per table, stem matching the table name.
const (
	AircraftFile      = "aircraft.parquet"
	RegistrationsFile = "registrations.parquet"
	OwnersFile        = "owners.parquet"
	OwnersSummaryFile = "owners_summary.parquet"
	MakeModelFile     = "aircraft_make_model.parquet"
	EnginesFile       = "engines.parquet"
)

func writeParquet[T any](dir, name string, rows []T) (int64, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	if err := parquet.Write(f, rows); err != nil {
		f.Close()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

func readParquet[T any](dir, name string) ([]T, error) {
	path := filepath.Join(dir, name)
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// WriteParquet writes every snapshot table as a parquet file under dir and
// returns each file's byte size keyed by filename. A nil summaries slice
// skips the derived owners_summary file; normalization output does not
// carry it, published generations do.
func WriteParquet(dir string, s *Snapshot, summaries []OwnerSummary) (map[string]int64, error) {
	sizes := make(map[string]int64, 6)

	size, err := writeParquet(dir, AircraftFile, s.Aircraft)
	if err != nil {
		return nil, err
	}
	sizes[AircraftFile] = size

	if size, err = writeParquet(dir, RegistrationsFile, s.Registrations); err != nil {
		return nil, err
	}
	sizes[RegistrationsFile] = size

	if size, err = writeParquet(dir, OwnersFile, s.Owners); err != nil {
		return nil, err
	}
	sizes[OwnersFile] = size

	if size, err = writeParquet(dir, MakeModelFile, s.MakeModels); err != nil {
		return nil, err
	}
	sizes[MakeModelFile] = size

	if size, err = writeParquet(dir, EnginesFile, s.Engines); err != nil {
		return nil, err
	}
	sizes[EnginesFile] = size

	if summaries != nil {
		if size, err = writeParquet(dir, OwnersSummaryFile, summaries); err != nil {
			return nil, err
		}
		sizes[OwnersSummaryFile] = size
	}
	return sizes, nil
}

// ReadParquet loads the five normalized tables from dir.
func ReadParquet(dir string) (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Aircraft, err = readParquet[Aircraft](dir, AircraftFile); err != nil {
		return nil, err
	}
	if s.Registrations, err = readParquet[Registration](dir, RegistrationsFile); err != nil {
		return nil, err
	}
	if s.Owners, err = readParquet[Owner](dir, OwnersFile); err != nil {
		return nil, err
	}
	if s.MakeModels, err = readParquet[MakeModel](dir, MakeModelFile); err != nil {
		return nil, err
	}
	if s.Engines, err = readParquet[Engine](dir, EnginesFile); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadOwnerSummaries loads the derived summary table from a published
// generation.
func ReadOwnerSummaries(dir string) ([]OwnerSummary, error) {
	return readParquet[OwnerSummary](dir, OwnersSummaryFile)
}
