package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"bioport/pkg/platform/tx"
)

// PostgresStore persists the change log in PostgreSQL.
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

func (s *PostgresStore) Insert(ctx context.Context, e Event) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO change_log (id, editor, message, record_table, record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Editor, e.Message, e.Table, e.RecordID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert change log event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Event, error) {
	query := `SELECT id, editor, message, record_table, record_id, created_at FROM change_log`
	var where string
	var args []any
	and := func(cond string, v any) {
		args = append(args, v)
		cond = cond + " = $" + strconv.Itoa(len(args))
		if where == "" {
			where = " WHERE " + cond
			return
		}
		where += " AND " + cond
	}
	if f.Table != "" {
		and("record_table", f.Table)
	}
	if f.RecordID != "" {
		and("record_id", f.RecordID)
	}
	if f.Editor != "" {
		and("editor", f.Editor)
	}
	query += where + ` ORDER BY created_at DESC, id`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list change log events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Editor, &e.Message, &e.Table, &e.RecordID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change log event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
