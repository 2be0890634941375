package source

import (
	"context"
	"database/sql"
	"fmt"

	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists sources in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Upsert(ctx context.Context, src Source) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO sources (id, url, description, quality, default_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			description = EXCLUDED.description,
			quality = EXCLUDED.quality,
			default_status = EXCLUDED.default_status`,
		src.ID, src.URL, src.Description, src.Quality, src.DefaultStatus)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Source, error) {
	var src Source
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, url, description, quality, default_status
		FROM sources WHERE id = $1`, id,
	).Scan(&src.ID, &src.URL, &src.Description, &src.Quality, &src.DefaultStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]Source, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, url, description, quality, default_status
		FROM sources ORDER BY quality DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.URL, &src.Description, &src.Quality, &src.DefaultStatus); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
