// Package postgres provides a PostgreSQL implementation of transport.SessionStore.
// It uses pgx/v5 for connection pooling and native text arrays for skill
// and file ids.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/storage"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const selectColumns = `
	SELECT id, dialect, model, skill_ids, container_id, stop_reason, status,
	       usage_input_tokens, usage_output_tokens, file_ids, steps, error,
	       created_at, completed_at
	FROM sessions`

// Store is a PostgreSQL-backed SessionStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements transport.SessionStore at compile time.
var _ transport.SessionStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	if _, set := poolCfg.ConnConfig.RuntimeParams["application_name"]; !set {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveSession inserts a finished session's summary.
func (s *Store) SaveSession(ctx context.Context, sess *api.SessionSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (
			id, tenant_id, dialect, model, skill_ids, container_id, stop_reason,
			status, usage_input_tokens, usage_output_tokens, file_ids, steps,
			error, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		sess.ID, storage.GetTenant(ctx), sess.Dialect, sess.Model,
		nonNil(sess.SkillIDs), sess.ContainerID, sess.StopReason,
		string(sess.Status), sess.Usage.InputTokens, sess.Usage.OutputTokens,
		nonNil(sess.FileIDs), sess.Steps,
		nullString(sess.Error), sess.CreatedAt, sess.CompletedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a summary by ID, scoped by tenant when one is set.
func (s *Store) GetSession(ctx context.Context, id string) (*api.SessionSummary, error) {
	query := selectColumns + " WHERE id = $1"
	args := []any{id}

	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	sess, err := scanSession(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the tenant's summaries, newest first.
func (s *Store) ListSessions(ctx context.Context, opts transport.ListOptions) (*transport.SessionList, error) {
	query := selectColumns + " WHERE TRUE"
	var args []any

	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		args = append(args, tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if opts.Dialect != "" {
		args = append(args, opts.Dialect)
		query += fmt.Sprintf(" AND dialect = $%d", len(args))
	}

	// Fetch one extra row to detect has_more.
	limit := storage.ClampLimit(opts.Limit)
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	data := []*api.SessionSummary{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		data = append(data, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	hasMore := len(data) > limit
	if hasMore {
		data = data[:limit]
	}
	return &transport.SessionList{Object: "list", Data: data, HasMore: hasMore}, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanSession(row pgx.Row) (*api.SessionSummary, error) {
	var sess api.SessionSummary
	var status string
	var errMsg *string

	err := row.Scan(
		&sess.ID, &sess.Dialect, &sess.Model, &sess.SkillIDs, &sess.ContainerID,
		&sess.StopReason, &status, &sess.Usage.InputTokens, &sess.Usage.OutputTokens,
		&sess.FileIDs, &sess.Steps, &errMsg, &sess.CreatedAt, &sess.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Object = "session"
	sess.Status = api.SessionStatus(status)
	if errMsg != nil {
		sess.Error = *errMsg
	}
	return &sess, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
