package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/config"
)

// ErrJournalDisabled is returned by a JournalDB opened without a DSN.
var ErrJournalDisabled = errors.New("mutation journal disabled")

// JournalDB is the Postgres pool backing the mutation journal. A nil or
// DSN-less JournalDB is valid and reports itself disabled; the console then
// runs without recording outcomes.
type JournalDB struct {
	pool *pgxpool.Pool
}

// OpenJournal connects the journal pool and applies the embedded migrations
// when cfg.RunMigrations is set.
func OpenJournal(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*JournalDB, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not set; mutation outcomes will not be journaled")
		return &JournalDB{}, nil
	}

	poolCfg, err := journalPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open journal pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reach journal database: %w", err)
	}

	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("mutation journal ready",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Bool("migrated", cfg.RunMigrations),
	)
	return &JournalDB{pool: pool}, nil
}

func journalPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	return poolCfg, nil
}

func (j *JournalDB) Enabled() bool {
	return j != nil && j.pool != nil
}

// Pool is nil when the journal is disabled.
func (j *JournalDB) Pool() *pgxpool.Pool {
	if j == nil {
		return nil
	}
	return j.pool
}

func (j *JournalDB) Ping(ctx context.Context) error {
	if !j.Enabled() {
		return ErrJournalDisabled
	}
	return j.pool.Ping(ctx)
}

func (j *JournalDB) Close() {
	if j.Enabled() {
		j.pool.Close()
	}
}
