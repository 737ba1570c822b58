package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id                      TEXT PRIMARY KEY,
	name                    TEXT NOT NULL DEFAULT '',
	company                 TEXT NOT NULL DEFAULT '',
	city                    TEXT NOT NULL DEFAULT '',
	address                 TEXT NOT NULL DEFAULT '',
	email                   TEXT NOT NULL DEFAULT '',
	phone                   TEXT NOT NULL DEFAULT '',
	website                 TEXT NOT NULL DEFAULT '',
	enrichment_status       TEXT NOT NULL DEFAULT 'never',
	last_enrichment_at      DATETIME,
	enrichment_attempts     INTEGER NOT NULL DEFAULT 0,
	enrichment_score        REAL NOT NULL DEFAULT 0,
	auto_enrich_enabled     BOOLEAN NOT NULL DEFAULT 1,
	blacklisted_at          DATETIME,
	enrichment_data         TEXT NOT NULL DEFAULT '{}',
	data_completeness_score REAL NOT NULL DEFAULT 0,
	version                 INTEGER NOT NULL DEFAULT 1,
	created_at              DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prospects_auto_enrich ON prospects(auto_enrich_enabled, enrichment_status, created_at);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id           TEXT PRIMARY KEY,
	prospect_id  TEXT NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
	triggered_by TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	score        REAL NOT NULL DEFAULT 0,
	contacts     TEXT NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT '',
	error_class  TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_enrichment_runs_prospect ON enrichment_runs(prospect_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteInsertProspect = `INSERT INTO prospects (` + prospectColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) CreateProspect(ctx context.Context, p *model.Prospect) error {
	prepareNew(p, s.now())
	args, err := sqliteProspectArgs(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteInsertProspect, args...)
	return eris.Wrapf(err, "sqlite: insert prospect %s", p.ID)
}

func sqliteProspectArgs(p *model.Prospect) ([]any, error) {
	data, err := marshalData(p.Enrichment.Data)
	if err != nil {
		return nil, err
	}
	st := p.Enrichment
	return []any{
		p.ID, p.Name, p.Company, p.City, p.Address,
		p.Contact.Email, p.Contact.Phone, p.Contact.Website,
		string(st.Status), nullTime(st.LastEnrichmentAt), st.Attempts, st.Score,
		st.AutoEnrichEnabled, nullTime(st.BlacklistedAt), string(data), st.DataCompletenessScore,
		p.Version, p.CreatedAt, p.UpdatedAt,
	}, nil
}

func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	p, err := scanSQLiteProspect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get prospect %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) SaveProspect(ctx context.Context, p model.Prospect, expectedVersion int64) (int64, error) {
	data, err := marshalData(p.Enrichment.Data)
	if err != nil {
		return 0, err
	}
	st := p.Enrichment
	next := expectedVersion + 1

	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET
			name = ?, company = ?, city = ?, address = ?,
			email = ?, phone = ?, website = ?,
			enrichment_status = ?, last_enrichment_at = ?, enrichment_attempts = ?,
			enrichment_score = ?, auto_enrich_enabled = ?, blacklisted_at = ?,
			enrichment_data = ?, data_completeness_score = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name, p.Company, p.City, p.Address,
		p.Contact.Email, p.Contact.Phone, p.Contact.Website,
		string(st.Status), nullTime(st.LastEnrichmentAt), st.Attempts,
		st.Score, st.AutoEnrichEnabled, nullTime(st.BlacklistedAt),
		string(data), st.DataCompletenessScore,
		next, s.now(),
		p.ID, expectedVersion,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: save prospect %s", p.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return next, nil
	}

	var current int64
	err = s.db.QueryRowContext(ctx, `SELECT version FROM prospects WHERE id = ?`, p.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, eris.Wrapf(ErrNotFound, "sqlite: save prospect %s", p.ID)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: save prospect %s", p.ID)
	}
	return 0, eris.Wrapf(ErrConflict, "sqlite: save prospect %s: expected version %d, found %d", p.ID, expectedVersion, current)
}

func (s *SQLiteStore) ListAutoEnrichCandidates(ctx context.Context, q CandidateQuery) ([]model.Prospect, error) {
	query, args := candidateSQL(q, "auto_enrich_enabled = 1", func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanSQLiteProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) ImportProspects(ctx context.Context, prospects []model.Prospect) (int64, error) {
	if len(prospects) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertProspect)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close()

	now := s.now()
	for i := range prospects {
		p := &prospects[i]
		prepareNew(p, now)
		args, err := sqliteProspectArgs(p)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import prospect %s", p.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return int64(len(prospects)), nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.EnrichmentRun) error {
	prepareRun(run, s.now())
	contacts, err := json.Marshal(run.Contacts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run contacts")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProspectID, string(run.TriggeredBy), run.Success, run.Score,
		string(contacts), run.Error, run.ErrorClass, run.DurationMs, run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run for %s", run.ProspectID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, prospectID string, limit int) ([]model.EnrichmentRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM enrichment_runs WHERE prospect_id = ? ORDER BY created_at DESC LIMIT ?`,
		prospectID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		var trigger, contacts string
		if err := rows.Scan(&r.ID, &r.ProspectID, &trigger, &r.Success, &r.Score,
			&contacts, &r.Error, &r.ErrorClass, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.TriggeredBy = model.TriggerSource(trigger)
		if r.Contacts, err = unmarshalData([]byte(contacts)); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func scanSQLiteProspect(row scannable) (*model.Prospect, error) {
	var p model.Prospect
	var status, data string
	var lastAt, blacklistedAt sql.NullTime
	st := &p.Enrichment
	if err := row.Scan(
		&p.ID, &p.Name, &p.Company, &p.City, &p.Address,
		&p.Contact.Email, &p.Contact.Phone, &p.Contact.Website,
		&status, &lastAt, &st.Attempts, &st.Score,
		&st.AutoEnrichEnabled, &blacklistedAt, &data, &st.DataCompletenessScore,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	st.Status = model.EnrichmentStatus(status)
	st.LastEnrichmentAt = timePtr(lastAt)
	st.BlacklistedAt = timePtr(blacklistedAt)

	var err error
	if st.Data, err = unmarshalData([]byte(data)); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
