// Package postgres writes trend rows with pgx.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/trend-aggregator/internal/trend"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "hot_trends"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store implements trend.Store.
type Store struct {
	pool  execCloser
	query string
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewWithPool(pool, cfg.Table)
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, query: insertQuery(table)}, nil
}

func insertQuery(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	title,
	description,
	url,
	platform_id,
	category_id,
	language,
	region,
	posted_at,
	fetched_at,
	popularity,
	sentiment_score,
	entities,
	topics,
	kg_type,
	kg_desc,
	kg_wiki
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)`, table)
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert writes one row.
func (s *Store) Insert(ctx context.Context, item trend.Item) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not configured")
	}
	args, err := Args(item)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, s.query, args...); err != nil {
		return fmt.Errorf("insert trend: %w", err)
	}
	return nil
}

// Args maps an item to the positional insert arguments. Empty strings become
// NULL for the optional text columns.
func Args(item trend.Item) ([]any, error) {
	kgType, err := item.Knowledge.TypesText()
	if err != nil {
		return nil, err
	}
	return []any{
		item.Title,
		item.Description,
		nullable(item.URL),
		item.PlatformID,
		item.CategoryID,
		item.Language,
		item.Region,
		item.PostedAt,
		item.FetchedAt,
		item.Popularity,
		item.SentimentScore,
		nonNil(item.Entities),
		nonNil(item.Topics),
		kgType,
		nullable(item.Knowledge.Description),
		nullable(item.Knowledge.WikiURL),
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
