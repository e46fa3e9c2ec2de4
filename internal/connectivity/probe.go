// Package connectivity decides once per process whether the remote store is usable.
package connectivity

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

const probeQuery = `SELECT to_regclass('public.profiles') IS NOT NULL`

// Querier is the subset of *sql.DB used by the probe.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Probe runs a single existence check against the remote store and caches the result.
type Probe struct {
	db      Querier
	timeout time.Duration
	logger  *logger.Logger

	once sync.Once
	mode model.BackendMode
}

func NewProbe(db Querier, timeout time.Duration, logger *logger.Logger) *Probe {
	return &Probe{db: db, timeout: timeout, logger: logger}
}

// Open opens a database/sql handle with the pgx driver. Opening does not dial.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Check returns the backend mode. Only the first call touches the network.
func (p *Probe) Check(ctx context.Context) model.BackendMode {
	p.once.Do(func() {
		p.mode = p.check(ctx)
	})
	return p.mode
}

func (p *Probe) check(ctx context.Context) model.BackendMode {
	if p.db == nil {
		p.logger.Warn("Connectivity probe: no database handle, using local fallback")
		return model.BackendLocalFallback
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var ready sql.NullBool
	if err := p.db.QueryRowContext(ctx, probeQuery).Scan(&ready); err != nil {
		p.logger.Warn("Connectivity probe: remote store unreachable, using local fallback",
			"error", err.Error())
		return model.BackendLocalFallback
	}
	if !ready.Valid || !ready.Bool {
		p.logger.Warn("Connectivity probe: remote schema missing, using local fallback")
		return model.BackendLocalFallback
	}

	p.logger.Info("Connectivity probe: remote store reachable")
	return model.BackendRemote
}
