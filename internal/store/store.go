// Package store persists prospects and their enrichment run history.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/model"
)

var (
	// ErrNotFound is returned when a prospect does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is returned when a save's expected version is stale.
	ErrConflict = eris.New("store: version conflict")
)

// IsConflict reports whether err is a stale-version rejection. Callers may
// reload and retry.
func IsConflict(err error) bool { return eris.Is(err, ErrConflict) }

// IsNotFound reports whether err means the prospect does not exist.
func IsNotFound(err error) bool { return eris.Is(err, ErrNotFound) }

// Store is the persistence interface for prospects and enrichment runs.
type Store interface {
	// CreateProspect inserts p, assigning an ID when empty. Version starts at 1.
	CreateProspect(ctx context.Context, p *model.Prospect) error
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	// SaveProspect writes p if its stored version equals expectedVersion and
	// returns the new version.
	SaveProspect(ctx context.Context, p model.Prospect, expectedVersion int64) (int64, error)
	// ListAutoEnrichCandidates returns prospects with auto-enrichment on, not
	// blacklisted and not pending, narrowed by q. Never-enriched prospects come
	// first, then failed ones; ties go to lower completeness, fewer attempts,
	// then newest.
	ListAutoEnrichCandidates(ctx context.Context, q CandidateQuery) ([]model.Prospect, error)
	ImportProspects(ctx context.Context, prospects []model.Prospect) (int64, error)

	RecordRun(ctx context.Context, run *model.EnrichmentRun) error
	ListRuns(ctx context.Context, prospectID string, limit int) ([]model.EnrichmentRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backing database.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open connects to the store named by cfg.Driver ("sqlite" or "postgres").
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "prospects.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// CandidateQuery narrows ListAutoEnrichCandidates. Zero fields do not filter.
type CandidateQuery struct {
	Limit int
	// BelowCompleteness drops prospects whose stored completeness is at or
	// above it.
	BelowCompleteness float64
	// EnrichedBefore drops prospects last enriched after it, unless they failed
	// with fewer than RetryAttempts attempts.
	EnrichedBefore time.Time
	RetryAttempts  int
}

const candidateOrder = `ORDER BY CASE
		WHEN last_enrichment_at IS NULL AND enrichment_status IN ('never', '') THEN 0
		WHEN enrichment_status = 'failed' THEN 1
		ELSE 2
	END, data_completeness_score, enrichment_attempts, created_at DESC`

// candidateSQL renders the candidate SELECT for a dialect. autoOn is its
// auto_enrich_enabled predicate and bind renders the nth placeholder.
func candidateSQL(q CandidateQuery, autoOn string, bind func(n int) string) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return bind(len(args))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + prospectColumns + ` FROM prospects
	WHERE ` + autoOn + ` AND blacklisted_at IS NULL AND enrichment_status <> 'pending'`)
	if q.BelowCompleteness > 0 {
		b.WriteString(` AND data_completeness_score < ` + arg(q.BelowCompleteness))
	}
	if !q.EnrichedBefore.IsZero() {
		b.WriteString(` AND (last_enrichment_at IS NULL OR last_enrichment_at <= ` + arg(q.EnrichedBefore.UTC()))
		if q.RetryAttempts > 0 {
			b.WriteString(` OR (enrichment_status = 'failed' AND enrichment_attempts < ` + arg(q.RetryAttempts) + `)`)
		}
		b.WriteString(`)`)
	}
	b.WriteString("\n\t" + candidateOrder + ` LIMIT ` + arg(listLimit(q.Limit)))
	return b.String(), args
}

// prepareNew fills the fields CreateProspect and ImportProspects assign.
func prepareNew(p *model.Prospect, now time.Time) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Enrichment.Status == "" {
		p.Enrichment.Status = model.EnrichmentNever
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.Enrichment.DataCompletenessScore = eligibility.CompletenessScore(*p)
	p.UpdatedAt = now
	p.Version = 1
}

func marshalData(data map[string][]string) ([]byte, error) {
	if data == nil {
		data = map[string][]string{}
	}
	b, err := json.Marshal(data)
	return b, eris.Wrap(err, "store: marshal enrichment data")
}

func unmarshalData(b []byte) (map[string][]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var data map[string][]string
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal enrichment data")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

const prospectColumns = `id, name, company, city, address, email, phone, website,
	enrichment_status, last_enrichment_at, enrichment_attempts, enrichment_score,
	auto_enrich_enabled, blacklisted_at, enrichment_data, data_completeness_score,
	version, created_at, updated_at`

const runColumns = `id, prospect_id, triggered_by, success, score, contacts, error, error_class, duration_ms, created_at`

type scannable interface {
	Scan(dest ...any) error
}

func prepareRun(run *model.EnrichmentRun, now time.Time) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
}

// splitColumns turns a column list constant into COPY column names.
func splitColumns(cols string) []string {
	fields := strings.Split(cols, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
