package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/db"
	"github.com/sells-group/prospect-enrich/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgres connects a pool sized by cfg and pings it.
func NewPostgres(ctx context.Context, cfg Config) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pgxCfg.MinConns = cfg.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresWithPool(pool), nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

const postgresMigration = `
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
	last_enrichment_at      TIMESTAMPTZ,
	enrichment_attempts     INTEGER NOT NULL DEFAULT 0,
	enrichment_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	auto_enrich_enabled     BOOLEAN NOT NULL DEFAULT true,
	blacklisted_at          TIMESTAMPTZ,
	enrichment_data         JSONB NOT NULL DEFAULT '{}'::jsonb,
	data_completeness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	version                 BIGINT NOT NULL DEFAULT 1,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospects_auto_enrich
	ON prospects(enrichment_status, created_at DESC)
	WHERE auto_enrich_enabled AND blacklisted_at IS NULL;

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id           TEXT PRIMARY KEY,
	prospect_id  TEXT NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
	triggered_by TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	contacts     JSONB NOT NULL DEFAULT '{}'::jsonb,
	error        TEXT NOT NULL DEFAULT '',
	error_class  TEXT NOT NULL DEFAULT '',
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_enrichment_runs_prospect ON enrichment_runs(prospect_id, created_at DESC);
`

// Migrate applies the schema in one transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, postgresMigration)
		return err
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateProspect(ctx context.Context, p *model.Prospect) error {
	prepareNew(p, s.now())
	data, err := marshalData(p.Enrichment.Data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prospects (`+prospectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		prospectArgs(p, data)...,
	)
	return eris.Wrapf(err, "postgres: insert prospect %s", p.ID)
}

func prospectArgs(p *model.Prospect, data []byte) []any {
	st := p.Enrichment
	return []any{
		p.ID, p.Name, p.Company, p.City, p.Address,
		p.Contact.Email, p.Contact.Phone, p.Contact.Website,
		string(st.Status), st.LastEnrichmentAt, st.Attempts, st.Score,
		st.AutoEnrichEnabled, st.BlacklistedAt, data, st.DataCompletenessScore,
		p.Version, p.CreatedAt, p.UpdatedAt,
	}
}

func (s *PostgresStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id)
	p, err := scanPgProspect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get prospect %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prospect %s", id)
	}
	return p, nil
}

func (s *PostgresStore) SaveProspect(ctx context.Context, p model.Prospect, expectedVersion int64) (int64, error) {
	data, err := marshalData(p.Enrichment.Data)
	if err != nil {
		return 0, err
	}
	st := p.Enrichment
	next := expectedVersion + 1

	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET
			name = $1, company = $2, city = $3, address = $4,
			email = $5, phone = $6, website = $7,
			enrichment_status = $8, last_enrichment_at = $9, enrichment_attempts = $10,
			enrichment_score = $11, auto_enrich_enabled = $12, blacklisted_at = $13,
			enrichment_data = $14, data_completeness_score = $15,
			version = $16, updated_at = $17
		WHERE id = $18 AND version = $19`,
		p.Name, p.Company, p.City, p.Address,
		p.Contact.Email, p.Contact.Phone, p.Contact.Website,
		string(st.Status), st.LastEnrichmentAt, st.Attempts,
		st.Score, st.AutoEnrichEnabled, st.BlacklistedAt,
		data, st.DataCompletenessScore,
		next, s.now(),
		p.ID, expectedVersion,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save prospect %s", p.ID)
	}
	if tag.RowsAffected() == 1 {
		return next, nil
	}

	var current int64
	err = s.pool.QueryRow(ctx, `SELECT version FROM prospects WHERE id = $1`, p.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(ErrNotFound, "postgres: save prospect %s", p.ID)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save prospect %s", p.ID)
	}
	return 0, eris.Wrapf(ErrConflict, "postgres: save prospect %s: expected version %d, found %d", p.ID, expectedVersion, current)
}

func (s *PostgresStore) ListAutoEnrichCandidates(ctx context.Context, q CandidateQuery) ([]model.Prospect, error) {
	query, args := candidateSQL(q, "auto_enrich_enabled", func(n int) string { return "$" + strconv.Itoa(n) })
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanPgProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) ImportProspects(ctx context.Context, prospects []model.Prospect) (int64, error) {
	now := s.now()
	rows := make([][]any, 0, len(prospects))
	for i := range prospects {
		p := &prospects[i]
		prepareNew(p, now)
		data, err := marshalData(p.Enrichment.Data)
		if err != nil {
			return 0, err
		}
		rows = append(rows, prospectArgs(p, data))
	}
	n, err := db.CopyRows(ctx, s.pool, "prospects", splitColumns(prospectColumns), rows)
	return n, eris.Wrap(err, "postgres: import prospects")
}

func (s *PostgresStore) RecordRun(ctx context.Context, run *model.EnrichmentRun) error {
	prepareRun(run, s.now())
	contacts, err := json.Marshal(run.Contacts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run contacts")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_runs (`+runColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.ProspectID, string(run.TriggeredBy), run.Success, run.Score,
		contacts, run.Error, run.ErrorClass, run.DurationMs, run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run for %s", run.ProspectID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, prospectID string, limit int) ([]model.EnrichmentRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM enrichment_runs WHERE prospect_id = $1 ORDER BY created_at DESC LIMIT $2`,
		prospectID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		var trigger string
		var contacts []byte
		if err := rows.Scan(&r.ID, &r.ProspectID, &trigger, &r.Success, &r.Score,
			&contacts, &r.Error, &r.ErrorClass, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.TriggeredBy = model.TriggerSource(trigger)
		if r.Contacts, err = unmarshalData(contacts); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgProspect(row scannable) (*model.Prospect, error) {
	var p model.Prospect
	var status string
	var data []byte
	st := &p.Enrichment
	if err := row.Scan(
		&p.ID, &p.Name, &p.Company, &p.City, &p.Address,
		&p.Contact.Email, &p.Contact.Phone, &p.Contact.Website,
		&status, &st.LastEnrichmentAt, &st.Attempts, &st.Score,
		&st.AutoEnrichEnabled, &st.BlacklistedAt, &data, &st.DataCompletenessScore,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	st.Status = model.EnrichmentStatus(status)

	var err error
	if st.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	return &p, nil
}
