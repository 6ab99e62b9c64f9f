package storage

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

const createOutcomesTable = `
	CREATE TABLE IF NOT EXISTS search_outcomes (
		id            uuid PRIMARY KEY,
		session_id    text NOT NULL,
		filename      text NOT NULL,
		descriptor    text NOT NULL,
		similarity    text NOT NULL,
		topn          text NOT NULL,
		status        text NOT NULL,
		error_kind    text NOT NULL DEFAULT '',
		error         text NOT NULL DEFAULT '',
		result_count  integer NOT NULL DEFAULT 0,
		duration_ms   bigint NOT NULL DEFAULT 0,
		created_at    timestamptz NOT NULL
	)`

const createOutcomesIndex = `
	CREATE INDEX IF NOT EXISTS search_outcomes_created_at_idx ON search_outcomes (created_at DESC)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dbURL and ensures the outcome table exists.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	// SQLAlchemy-style scheme, shared with the python services' env files
	if strings.HasPrefix(dbURL, "postgresql+psycopg:") {
		dbURL = "postgres:" + strings.TrimPrefix(dbURL, "postgresql+psycopg:")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{createOutcomesTable, createOutcomesIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, o models.SearchOutcome) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_outcomes
			(id, session_id, filename, descriptor, similarity, topn,
			 status, error_kind, error, result_count, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.SessionID, o.Filename, o.Descriptor, o.Similarity, o.TopN,
		o.Status, o.ErrorKind, o.Error, o.ResultCount, o.DurationMS, o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.SearchOutcome, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id::text, session_id, filename, descriptor, similarity, topn,
			status, error_kind, error, result_count, duration_ms, created_at
		FROM search_outcomes
		ORDER BY created_at DESC
		LIMIT $1`, clampLimit(limit, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SearchOutcome
	for rows.Next() {
		var o models.SearchOutcome
		err := rows.Scan(
			&o.ID,
			&o.SessionID,
			&o.Filename,
			&o.Descriptor,
			&o.Similarity,
			&o.TopN,
			&o.Status,
			&o.ErrorKind,
			&o.Error,
			&o.ResultCount,
			&o.DurationMS,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, o)
	}
	return results, rows.Err()
}
