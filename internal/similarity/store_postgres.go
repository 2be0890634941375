package similarity

import (
	"context"
	"database/sql"
	"fmt"

	"bioport/pkg/domain"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists the similarity cache in PostgreSQL.
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

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO similarity_cache (id_low, id_high, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (id_low, id_high)
		DO UPDATE SET score = GREATEST(similarity_cache.score, EXCLUDED.score)`,
		string(e.Pair.Low), string(e.Pair.High), e.Score)
	if err != nil {
		return fmt.Errorf("put similarity entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasComputed(ctx context.Context, id domain.SubjectID) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM similarity_cache WHERE id_low = $1 AND id_high = $1
		)`, string(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check similarity marker: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Top(ctx context.Context, f TopFilter) ([]Entry, error) {
	query := `
		SELECT id_low, id_high, score FROM similarity_cache
		WHERE id_low <> id_high AND score > $1`
	args := []any{f.MinScore}
	if !f.SubjectID.IsZero() {
		args = append(args, string(f.SubjectID))
		query += ` AND (id_low = $2 OR id_high = $2)`
	}
	query += ` ORDER BY score DESC, id_low, id_high`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list similarity entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var low, high string
		var e Entry
		if err := rows.Scan(&low, &high, &e.Score); err != nil {
			return nil, fmt.Errorf("scan similarity entry: %w", err)
		}
		e.Pair = domain.Pair{Low: domain.SubjectID(low), High: domain.SubjectID(high)}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteForSubject(ctx context.Context, id domain.SubjectID) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM similarity_cache WHERE id_low = $1 OR id_high = $1`, string(id))
	if err != nil {
		return fmt.Errorf("purge similarity entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePair(ctx context.Context, pair domain.Pair) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM similarity_cache WHERE id_low = $1 AND id_high = $2`,
		string(pair.Low), string(pair.High))
	if err != nil {
		return fmt.Errorf("delete similarity pair: %w", err)
	}
	return nil
}
