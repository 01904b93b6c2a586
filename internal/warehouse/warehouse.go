// Package warehouse mirrors published registry generations into external
// analytical databases. Mirroring is additive from the registry's point of
// view: the published artifact set stays the source of truth, a warehouse
// just makes it joinable with whatever else lives there.
package warehouse

import (
	"context"
	"errors"
	"time"

	"faa_registry/internal/tables"
)

// Generation bundles everything a sink needs to mirror one published
// generation.
type Generation struct {
	Name      string
	BuiltAt   time.Time
	Snapshot  *tables.Snapshot
	Summaries []tables.OwnerSummary
}

func (g *Generation) validate() error {
	if g == nil || g.Name == "" {
		return errors.New("warehouse: generation name must not be empty")
	}
	if g.Snapshot == nil {
		return errors.New("warehouse: generation has no tables")
	}
	return nil
}

// Sink is a destination database for mirrored generations. Mirror replaces
// any rows previously mirrored for the same generation, so re-running a
// mirror is safe.
type Sink interface {
	CreateSchema(ctx context.Context) error
	Mirror(ctx context.Context, g *Generation) error
	Close() error
}
