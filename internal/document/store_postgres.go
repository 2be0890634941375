package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists documents in PostgreSQL. The version shift in
// Save relies on the surrounding transaction carried in ctx; callers
// run writes through a tx.Runner.
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

const documentColumns = `source_id, local_id, version, subject_id, original_subject_id,
	details, payload, source_url, author, comment, saved_at`

func (s *PostgresStore) Save(ctx context.Context, doc Document) error {
	conn := s.conn(ctx)
	// The primary key checks uniqueness per row, so a plain +1 shift
	// can collide with its own neighbours. Flip through negatives.
	_, err := conn.ExecContext(ctx, `
		UPDATE documents SET version = -(version + 1)
		WHERE source_id = $1 AND local_id = $2`,
		doc.Key.SourceID, doc.Key.LocalID)
	if err != nil {
		return fmt.Errorf("shift document versions: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		UPDATE documents SET version = -version
		WHERE source_id = $1 AND local_id = $2 AND version < 0`,
		doc.Key.SourceID, doc.Key.LocalID)
	if err != nil {
		return fmt.Errorf("shift document versions: %w", err)
	}

	details, err := json.Marshal(doc.Details)
	if err != nil {
		return fmt.Errorf("encode document details: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, 0, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.Key.SourceID, doc.Key.LocalID,
		string(doc.SubjectID), string(doc.OriginalSubjectID),
		details, doc.Payload, doc.SourceURL, doc.Author, doc.Comment, doc.SavedAt)
	if err != nil {
		return fmt.Errorf("insert document revision: %w", err)
	}
	return nil
}

func (s *PostgresStore) Current(ctx context.Context, key domain.DocumentKey) (*Document, error) {
	return s.Get(ctx, key, 0)
}

func (s *PostgresStore) Get(ctx context.Context, key domain.DocumentKey, version int) (*Document, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE source_id = $1 AND local_id = $2 AND version = $3`,
		key.SourceID, key.LocalID, version)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Versions(ctx context.Context, key domain.DocumentKey) ([]Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE source_id = $1 AND local_id = $2
		ORDER BY version`,
		key.SourceID, key.LocalID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE version >= 0`
	if !f.AllVersions {
		query = `SELECT ` + documentColumns + ` FROM documents WHERE version = 0`
	}
	var args []any
	if f.SourceID != "" {
		args = append(args, f.SourceID)
		query += ` AND source_id = $` + strconv.Itoa(len(args))
	}
	if f.Author != "" {
		args = append(args, f.Author)
		query += ` AND author = $` + strconv.Itoa(len(args))
	}
	if !f.SubjectID.IsZero() {
		args = append(args, string(f.SubjectID))
		query += ` AND subject_id = $` + strconv.Itoa(len(args))
	}
	if !f.SavedSince.IsZero() {
		args = append(args, f.SavedSince)
		query += ` AND saved_at >= $` + strconv.Itoa(len(args))
	}
	if !f.SavedUntil.IsZero() {
		args = append(args, f.SavedUntil)
		query += ` AND saved_at <= $` + strconv.Itoa(len(args))
	}
	if f.NewestFirst {
		query += ` ORDER BY saved_at DESC, source_id, local_id, version`
	} else {
		query += ` ORDER BY source_id, local_id, version`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.DocumentKey) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM documents WHERE source_id = $1 AND local_id = $2`,
		key.SourceID, key.LocalID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var subjectID, originalID string
	var details []byte
	err := row.Scan(
		&doc.Key.SourceID, &doc.Key.LocalID, &doc.Version,
		&subjectID, &originalID,
		&details, &doc.Payload, &doc.SourceURL, &doc.Author, &doc.Comment, &doc.SavedAt)
	if err != nil {
		return nil, err
	}
	doc.SubjectID = domain.SubjectID(subjectID)
	doc.OriginalSubjectID = domain.SubjectID(originalID)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &doc.Details); err != nil {
			return nil, fmt.Errorf("decode document details: %w", err)
		}
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}
