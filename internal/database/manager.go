package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool the storage layer relies on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pools routes statements to the primary (writes, transactions) or a
// replica (reads).
type Pools interface {
	Write() DB
	Read() DB
}

type DBManager struct {
	primary  *pgxpool.Pool
	replicas []*pgxpool.Pool
	next     atomic.Uint32
}

type Config struct {
	PrimaryDSN  string
	ReplicaDSNs []string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func NewDBManager(ctx context.Context, cfg Config) (*DBManager, error) {
	primary, err := openPool(ctx, cfg, cfg.PrimaryDSN)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	m := &DBManager{primary: primary}
	for i, dsn := range cfg.ReplicaDSNs {
		replica, err := openPool(ctx, cfg, dsn)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("replica %d: %w", i, err)
		}
		m.replicas = append(m.replicas, replica)
	}

	return m, nil
}

func openPool(ctx context.Context, cfg Config, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return pool, nil
}

func (m *DBManager) Write() DB {
	return m.primary
}

// Read round-robins over replicas. Replicas must apply commits synchronously
// (synchronous_commit = remote_apply) or a read right after a committed
// create/delete can observe the old relation.
func (m *DBManager) Read() DB {
	if len(m.replicas) == 0 {
		return m.primary
	}
	return m.replicas[m.next.Add(1)%uint32(len(m.replicas))]
}

func (m *DBManager) Ping(ctx context.Context) error {
	return m.primary.Ping(ctx)
}

func (m *DBManager) Close() {
	if m.primary != nil {
		m.primary.Close()
	}
	for _, pool := range m.replicas {
		pool.Close()
	}
}
