package registry

import (
	"context"
	"database/sql"
	"fmt"

	"bioport/internal/platform/postgres"
	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists the identifier registry in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn joins the surrounding transaction when one is carried in ctx.
func (s *PostgresStore) conn(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Insert(ctx context.Context, id domain.SubjectID) error {
	_, err := s.conn(ctx).ExecContext(ctx, `INSERT INTO identifiers (id) VALUES ($1)`, string(id))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert identifier %s: %w", id, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert identifier: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.SubjectID) (*Record, error) {
	var rec Record
	var redirect sql.NullString
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, redirect_to FROM identifiers WHERE id = $1`, string(id),
	).Scan(&rec.ID, &redirect)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get identifier: %w", err)
	}
	if redirect.Valid && redirect.String != "" {
		target := domain.SubjectID(redirect.String)
		rec.RedirectTo = &target
	}
	return &rec, nil
}

func (s *PostgresStore) SetRedirect(ctx context.Context, id domain.SubjectID, to *domain.SubjectID) error {
	var target sql.NullString
	if to != nil {
		target = sql.NullString{String: string(*to), Valid: true}
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE identifiers SET redirect_to = $2 WHERE id = $1`, string(id), target)
	if err != nil {
		return fmt.Errorf("set redirect: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set redirect: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT id, redirect_to FROM identifiers`)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var redirect sql.NullString
		if err := rows.Scan(&rec.ID, &redirect); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		if redirect.Valid && redirect.String != "" {
			target := domain.SubjectID(redirect.String)
			rec.RedirectTo = &target
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
