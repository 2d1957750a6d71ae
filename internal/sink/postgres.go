package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/templatelab/harvester/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used for template rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink upserts harvested records into a Postgres table. Each
// append is its own statement, so rows written before a cancellation
// stay committed.
type PostgresSink struct {
	pool  execCloser
	table string
	run   string
}

// NewPostgresSink creates a Postgres-backed sink using the provided config.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "templates"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

// NewPostgresSinkWithPool constructs a sink from an existing pool
// (primarily for testing).
func NewPostgresSinkWithPool(pool execCloser, table string) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "templates"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

// Open records the run name tagged onto every row.
func (s *PostgresSink) Open(_ context.Context, name string) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	s.run = name
	return nil
}

// Append upserts one record keyed on (platform, platform_id).
func (s *PostgresSink) Append(ctx context.Context, rec harvest.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	if rec.PlatformID == "" {
		return fmt.Errorf("platform_id is required")
	}
	fieldsJSON, err := json.Marshal(normalizeFields(rec.Fields))
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	platform,
	platform_id,
	name,
	url,
	fields,
	run_name,
	harvested_at
) VALUES (
	$1,$2,$3,$4,$5,$6,now()
)
ON CONFLICT (platform, platform_id) DO UPDATE SET
	name = EXCLUDED.name,
	url = EXCLUDED.url,
	fields = EXCLUDED.fields,
	run_name = EXCLUDED.run_name,
	harvested_at = EXCLUDED.harvested_at`, s.table)

	args := []any{
		rec.Platform,
		rec.PlatformID,
		rec.Name,
		rec.URL,
		fieldsJSON,
		s.run,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresSink) Close(context.Context) (string, error) {
	if s == nil || s.pool == nil {
		return "", nil
	}
	s.pool.Close()
	return fmt.Sprintf("postgres://%s?run=%s", s.table, s.run), nil
}

func normalizeFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
