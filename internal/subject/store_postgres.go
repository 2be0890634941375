package subject

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
)

// PostgresStore persists subject aggregates in PostgreSQL. Upsert
// replaces the derived token rows wholesale; callers wrap it in a
// transaction through the runner.
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

func (s *PostgresStore) Upsert(ctx context.Context, subj Subject) error {
	conn := s.conn(ctx)
	_, err := conn.ExecContext(ctx, `
		INSERT INTO subjects (id, display_name, sort_key, family_name, sex,
			birth_min, birth_max, death_min, death_max, birth_place, death_place,
			status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			sort_key = EXCLUDED.sort_key,
			family_name = EXCLUDED.family_name,
			sex = EXCLUDED.sex,
			birth_min = EXCLUDED.birth_min,
			birth_max = EXCLUDED.birth_max,
			death_min = EXCLUDED.death_min,
			death_max = EXCLUDED.death_max,
			birth_place = EXCLUDED.birth_place,
			death_place = EXCLUDED.death_place,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		string(subj.ID), subj.DisplayName, subj.SortKey, subj.FamilyName, subj.Sex,
		subj.BirthMin, subj.BirthMax, subj.DeathMin, subj.DeathMax,
		subj.BirthPlace, subj.DeathPlace, subj.Status, subj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}

	for _, table := range []string{"subject_name_tokens", "subject_phonetic_keys", "subject_sources"} {
		if _, err := conn.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE subject_id = $1`, string(subj.ID)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, t := range subj.NameTokens {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO subject_name_tokens (subject_id, token, from_family_name)
			VALUES ($1, $2, $3)`, string(subj.ID), t.Value, t.FromFamilyName); err != nil {
			return fmt.Errorf("insert name token: %w", err)
		}
	}
	for _, t := range subj.PhoneticKeys {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO subject_phonetic_keys (subject_id, key, from_family_name)
			VALUES ($1, $2, $3)`, string(subj.ID), t.Value, t.FromFamilyName); err != nil {
			return fmt.Errorf("insert phonetic key: %w", err)
		}
	}
	for _, sourceID := range subj.Sources {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO subject_sources (subject_id, source_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, string(subj.ID), sourceID); err != nil {
			return fmt.Errorf("insert subject source: %w", err)
		}
	}
	return nil
}

const subjectColumns = `id, display_name, sort_key, family_name, sex,
	birth_min, birth_max, death_min, death_max, birth_place, death_place,
	status, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id domain.SubjectID) (*Subject, error) {
	conn := s.conn(ctx)
	row := conn.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, string(id))
	subj, err := scanSubject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if err := s.loadDerived(ctx, conn, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

func (s *PostgresStore) loadDerived(ctx context.Context, conn querier, subj *Subject) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT token, from_family_name FROM subject_name_tokens WHERE subject_id = $1`,
		string(subj.ID))
	if err != nil {
		return fmt.Errorf("load name tokens: %w", err)
	}
	subj.NameTokens, err = collectTokens(rows)
	if err != nil {
		return err
	}

	rows, err = conn.QueryContext(ctx, `
		SELECT key, from_family_name FROM subject_phonetic_keys WHERE subject_id = $1`,
		string(subj.ID))
	if err != nil {
		return fmt.Errorf("load phonetic keys: %w", err)
	}
	subj.PhoneticKeys, err = collectTokens(rows)
	if err != nil {
		return err
	}

	rows, err = conn.QueryContext(ctx, `
		SELECT source_id FROM subject_sources WHERE subject_id = $1 ORDER BY source_id`,
		string(subj.ID))
	if err != nil {
		return fmt.Errorf("load subject sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return fmt.Errorf("scan subject source: %w", err)
		}
		subj.Sources = append(subj.Sources, sourceID)
	}
	return rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.SubjectID) error {
	conn := s.conn(ctx)
	for _, table := range []string{"subject_name_tokens", "subject_phonetic_keys", "subject_sources"} {
		if _, err := conn.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE subject_id = $1`, string(id)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, string(id)); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Subject, error) {
	query := `SELECT DISTINCT s.id, s.display_name, s.sort_key, s.family_name, s.sex,
		s.birth_min, s.birth_max, s.death_min, s.death_max, s.birth_place, s.death_place,
		s.status, s.updated_at
		FROM subjects s`
	var joins, where string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	and := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
			return
		}
		where += " AND " + cond
	}

	if f.Status != 0 {
		and("s.status = " + arg(f.Status))
	}
	if f.Sex != "" {
		and("s.sex = " + arg(f.Sex))
	}
	if f.SourceID != "" {
		joins += ` JOIN subject_sources ss ON ss.subject_id = s.id`
		and("ss.source_id = " + arg(f.SourceID))
	}
	if f.NameToken != "" {
		joins += ` JOIN subject_name_tokens nt ON nt.subject_id = s.id`
		and("nt.token = " + arg(f.NameToken))
		if f.FamilyNameOnly {
			and("nt.from_family_name")
		}
	}
	if f.PhoneticKey != "" {
		joins += ` JOIN subject_phonetic_keys pk ON pk.subject_id = s.id`
		and("pk.key = " + arg(f.PhoneticKey))
		if f.FamilyNameOnly {
			and("pk.from_family_name")
		}
	}
	// Partial ISO dates start with the year; a missing bound falls back
	// to the other one, and subjects without the date drop out via NULL.
	if f.BirthYearMin != 0 {
		and(`LEFT(COALESCE(NULLIF(s.birth_max, ''), NULLIF(s.birth_min, '')), 4)::INT >= ` + arg(f.BirthYearMin))
	}
	if f.BirthYearMax != 0 {
		and(`LEFT(COALESCE(NULLIF(s.birth_min, ''), NULLIF(s.birth_max, '')), 4)::INT <= ` + arg(f.BirthYearMax))
	}
	if f.DeathYearMin != 0 {
		and(`LEFT(COALESCE(NULLIF(s.death_max, ''), NULLIF(s.death_min, '')), 4)::INT >= ` + arg(f.DeathYearMin))
	}
	if f.DeathYearMax != 0 {
		and(`LEFT(COALESCE(NULLIF(s.death_min, ''), NULLIF(s.death_max, '')), 4)::INT <= ` + arg(f.DeathYearMax))
	}

	query += joins + where + ` ORDER BY s.sort_key, s.id`
	if f.Size > 0 {
		query += ` LIMIT ` + arg(f.Size)
	}
	if f.Start > 0 {
		query += ` OFFSET ` + arg(f.Start)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, *subj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadDerived(ctx, s.conn(ctx), &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) IDsByPhoneticKey(ctx context.Context, key string, familyOnly bool) ([]domain.SubjectID, error) {
	query := `SELECT DISTINCT subject_id FROM subject_phonetic_keys WHERE key = $1`
	if familyOnly {
		query += ` AND from_family_name`
	}
	query += ` ORDER BY subject_id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("list subjects by phonetic key: %w", err)
	}
	defer rows.Close()

	var out []domain.SubjectID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}
		out = append(out, domain.SubjectID(id))
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*Subject, error) {
	var subj Subject
	var id string
	err := row.Scan(&id, &subj.DisplayName, &subj.SortKey, &subj.FamilyName, &subj.Sex,
		&subj.BirthMin, &subj.BirthMax, &subj.DeathMin, &subj.DeathMax,
		&subj.BirthPlace, &subj.DeathPlace, &subj.Status, &subj.UpdatedAt)
	if err != nil {
		return nil, err
	}
	subj.ID = domain.SubjectID(id)
	return &subj, nil
}

func collectTokens(rows *sql.Rows) ([]Token, error) {
	defer rows.Close()
	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.Value, &t.FromFamilyName); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
