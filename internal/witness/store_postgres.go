package witness

import (
	"context"
	"database/sql"
	"fmt"

	"bioport/pkg/domain"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists verdicts in the pair_witness table.
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

func (s *PostgresStore) Add(ctx context.Context, pair domain.Pair, kind Kind) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO pair_witness (id_low, id_high, kind)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		string(pair.Low), string(pair.High), string(kind))
	if err != nil {
		return fmt.Errorf("add pair witness: %w", err)
	}
	return nil
}

func (s *PostgresStore) Has(ctx context.Context, pair domain.Pair, kind Kind) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pair_witness
			WHERE id_low = $1 AND id_high = $2 AND kind = $3
		)`, string(pair.Low), string(pair.High), string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pair witness: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Remove(ctx context.Context, pair domain.Pair, kind Kind) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM pair_witness
		WHERE id_low = $1 AND id_high = $2 AND kind = $3`,
		string(pair.Low), string(pair.High), string(kind))
	if err != nil {
		return fmt.Errorf("remove pair witness: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveForSubject(ctx context.Context, id domain.SubjectID, kind Kind) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM pair_witness
		WHERE kind = $2 AND (id_low = $1 OR id_high = $1)`,
		string(id), string(kind))
	if err != nil {
		return fmt.Errorf("remove pair witnesses for subject: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, kind Kind) ([]domain.Pair, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id_low, id_high FROM pair_witness
		WHERE kind = $1 ORDER BY id_low, id_high`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list pair witnesses: %w", err)
	}
	defer rows.Close()

	var out []domain.Pair
	for rows.Next() {
		var low, high string
		if err := rows.Scan(&low, &high); err != nil {
			return nil, fmt.Errorf("scan pair witness: %w", err)
		}
		out = append(out, domain.Pair{Low: domain.SubjectID(low), High: domain.SubjectID(high)})
	}
	return out, rows.Err()
}
