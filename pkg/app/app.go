// Package app wires this module's components into one composition
// root. Core is a direct generalization of the teacher's pkg/app.App:
// same closers-slice-drained-on-Close shape, same "NewX bootstraps,
// Close tears down" contract, now wiring a blob store and an event
// store instead of a Docker client and a TUI.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mhallum/calista/pkg/blobstore"
	"github.com/mhallum/calista/pkg/clock"
	"github.com/mhallum/calista/pkg/config"
	"github.com/mhallum/calista/pkg/eventstore"
	"github.com/mhallum/calista/pkg/idgen"
	"github.com/mhallum/calista/pkg/sqlstore"
)

// Core is the process-wide set of wired dependencies: the event
// store, the blob store, the clock and ID generator that stamp new
// events, and the logger everything writes through.
type Core struct {
	closers []io.Closer

	Config config.Config
	Log    *logrus.Entry

	Clock clock.Clock
	IDs   idgen.Generator

	Events eventstore.Store
	Blobs  blobstore.Store
}

// NewCore bootstraps a Core from cfg: it opens the configured event
// store dialect, points a blob store at the configured root, and
// wires a system clock and monotonic ID generator.
func NewCore(ctx context.Context, cfg config.Config, log *logrus.Entry) (*Core, error) {
	core := &Core{
		Config: cfg,
		Log:    log,
		Clock:  clock.System{},
	}
	core.IDs = idgen.NewMonotonic(core.Clock)

	dialectName := lo.Ternary(isPostgresDSN(cfg.EventStore.DSN), sqlstore.DialectPostgres, sqlstore.DialectSQLite)
	if dialectName == sqlstore.DialectSQLite {
		// SQLite creates the database file but not its parent directory.
		if err := os.MkdirAll(filepath.Dir(cfg.EventStore.DSN), 0o755); err != nil {
			return nil, err
		}
	}
	events, err := sqlstore.Open(ctx, dialectName, sqlstore.Options{
		DSN:              cfg.EventStore.DSN,
		StatementTimeout: cfg.EventStore.StatementTimeout,
		PoolSize:         cfg.EventStore.PoolSize,
		Clock:            core.Clock,
	})
	if err != nil {
		return nil, err
	}
	core.Events = events
	core.closers = append(core.closers, events)

	blobs, err := blobstore.NewLocalStore(cfg.BlobStore.RootPath, cfg.BlobStore.Fsync)
	if err != nil {
		return nil, err
	}
	core.Blobs = blobs

	return core, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Close releases every resource NewCore opened, in acquisition order.
func (c *Core) Close() error {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return nil
}
