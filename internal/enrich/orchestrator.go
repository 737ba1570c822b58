package enrich

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/resilience"
	"github.com/sells-group/prospect-enrich/internal/scrape"
	"github.com/sells-group/prospect-enrich/internal/validate"
)

// DefaultBackendTimeout bounds a single backend call.
const DefaultBackendTimeout = 20 * time.Second

// SourceOrchestrator is the Source of orchestrated results.
const SourceOrchestrator = "orchestrator"

// BackendConfig tunes one backend.
type BackendConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
}

// OrchestratorConfig is fixed at construction. Backends missing from
// Backends run enabled with the default timeout.
type OrchestratorConfig struct {
	Backends       map[string]BackendConfig `mapstructure:"backends" yaml:"backends"`
	DefaultTimeout time.Duration            `mapstructure:"default_timeout" yaml:"default_timeout"`
	MaxContacts    int                      `mapstructure:"max_contacts" yaml:"max_contacts"`
	PerTypeCap     int                      `mapstructure:"per_type_cap" yaml:"per_type_cap"`
	HighScoreAbove float64                  `mapstructure:"high_score_above" yaml:"high_score_above"`
	// ScrapeWebsite scrapes the prospect's known website's contact pages when
	// no URLs are given explicitly.
	ScrapeWebsite bool     `mapstructure:"scrape_website" yaml:"scrape_website"`
	ContactPaths  []string `mapstructure:"contact_paths" yaml:"contact_paths"`
	// RetryAttempts is the number of tries per backend call within its
	// timeout. Only transient failures are retried.
	RetryAttempts int                      `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	Breaker       resilience.BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// Orchestrator fans a prospect out to every enabled backend and reduces the
// candidates they return to a validated best subset.
type Orchestrator struct {
	cfg     OrchestratorConfig
	engine  *validate.Engine
	search  []SearchBackend
	scraper ScrapingBackend
	guard   *resilience.Guard
	now     func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithGuard replaces the per-backend rate limiter and breaker set.
func WithGuard(g *resilience.Guard) OrchestratorOption {
	return func(o *Orchestrator) { o.guard = g }
}

// NewOrchestrator creates an orchestrator. scraper may be nil.
func NewOrchestrator(cfg OrchestratorConfig, engine *validate.Engine, search []SearchBackend, scraper ScrapingBackend, opts ...OrchestratorOption) *Orchestrator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultBackendTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	if engine == nil {
		engine = validate.NewEngine()
	}

	o := &Orchestrator{
		cfg:     cfg,
		engine:  engine,
		search:  search,
		scraper: scraper,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.guard == nil {
		retry := resilience.DefaultRetryPolicy()
		retry.Attempts = cfg.RetryAttempts
		o.guard = resilience.NewGuard(resilience.GuardConfig{Retry: retry, Breaker: cfg.Breaker})
		for name, bc := range cfg.Backends {
			if bc.RatePerSecond > 0 {
				o.guard.SetRate(name, bc.RatePerSecond)
			}
		}
	}
	return o
}

// Backends lists the registered backend names and whether each is enabled
// by configuration.
func (o *Orchestrator) Backends() map[string]bool {
	out := make(map[string]bool, len(o.search)+1)
	for _, b := range o.search {
		out[b.Name()] = o.configEnabled(b.Name())
	}
	if o.scraper != nil {
		out[o.scraper.Name()] = o.configEnabled(o.scraper.Name())
	}
	return out
}

// BreakerStates snapshots the per-backend circuit breakers.
func (o *Orchestrator) BreakerStates() map[string]string {
	out := make(map[string]string)
	for name, s := range o.guard.States() {
		out[name] = s.String()
	}
	return out
}

func (o *Orchestrator) configEnabled(name string) bool {
	bc, ok := o.cfg.Backends[name]
	return !ok || bc.Enabled
}

func (o *Orchestrator) enabled(name string, opts model.EnrichOptions) bool {
	if v, ok := opts.Backends[name]; ok {
		return v
	}
	return o.configEnabled(name)
}

func (o *Orchestrator) timeout(name string) time.Duration {
	if bc, ok := o.cfg.Backends[name]; ok && bc.Timeout > 0 {
		return bc.Timeout
	}
	return o.cfg.DefaultTimeout
}

type backendCall struct {
	name string
	run  func(ctx context.Context) (*model.EnrichmentResult, error)
}

type backendOutcome struct {
	name     string
	result   *model.EnrichmentResult
	err      *BackendError
	duration time.Duration
}

func (o *Orchestrator) plan(req SearchRequest) []backendCall {
	var calls []backendCall
	for _, b := range o.search {
		if !o.enabled(b.Name(), req.Options) {
			continue
		}
		calls = append(calls, backendCall{
			name: b.Name(),
			run: func(ctx context.Context) (*model.EnrichmentResult, error) {
				return b.Search(ctx, req)
			},
		})
	}

	if o.scraper != nil && o.enabled(o.scraper.Name(), req.Options) {
		urls := req.Options.URLsToScrape
		if len(urls) == 0 && o.cfg.ScrapeWebsite {
			urls = scrape.ContactPageURLs(req.Website, o.cfg.ContactPaths)
		}
		if len(urls) > 0 {
			s := o.scraper
			calls = append(calls, backendCall{
				name: s.Name(),
				run: func(ctx context.Context) (*model.EnrichmentResult, error) {
					return s.ScrapeURLs(ctx, urls, req)
				},
			})
		}
	}
	return calls
}

// Enrich runs the enabled backends concurrently, deduplicates and validates
// their candidates and selects the best subset. It never returns an error: a
// failing backend contributes nothing, and a failure of the orchestration
// itself yields a failure result.
func (o *Orchestrator) Enrich(ctx context.Context, req SearchRequest) (res *model.EnrichmentResult) {
	start := o.now()
	log := zap.L().With(
		zap.String("prospect", req.ProspectName),
		zap.String("company", req.ProspectCompany),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("enrich: orchestration panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			res = model.FailureResult(req.ProspectName, req.ProspectCompany, SourceOrchestrator,
				fmt.Sprintf("orchestration failed: %v", r), o.now().Sub(start))
		}
	}()

	if strings.TrimSpace(req.ProspectName) == "" && strings.TrimSpace(req.ProspectCompany) == "" {
		return model.FailureResult(req.ProspectName, req.ProspectCompany, SourceOrchestrator,
			"prospect name or company is required", o.now().Sub(start))
	}

	calls := o.plan(req)
	log.Debug("enrich: running backends", zap.Int("backends", len(calls)))

	// Results are stored by index; no backend cancels another.
	outcomes := make([]backendOutcome, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			outcomes[i] = o.runBackend(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	var (
		raw        []model.ContactCandidate
		successful int
		backends   = make(map[string]any, len(outcomes))
	)
	for _, out := range outcomes {
		entry := map[string]any{
			"success":     out.err == nil,
			"contacts":    0,
			"duration_ms": out.duration.Milliseconds(),
		}
		if out.err != nil {
			entry["error"] = out.err.Error()
			log.Warn("enrich: backend failed",
				zap.String("backend", out.name),
				zap.Bool("timeout", out.err.Timeout),
				zap.Error(out.err),
			)
		} else {
			successful++
			for _, c := range out.result.Contacts {
				raw = append(raw, c.WithBackend(out.name))
			}
			entry["contacts"] = len(out.result.Contacts)
		}
		backends[out.name] = entry
	}

	deduped := Dedupe(raw)
	vctx := validate.Context{ProspectName: req.ProspectName, ProspectCompany: req.ProspectCompany}
	report := o.engine.Evaluate(deduped, vctx)

	// Each candidate now carries its rule score; the backend's own score is
	// kept in the details.
	var accepted []model.ContactCandidate
	for i, c := range deduped {
		if i >= len(report.Scores) {
			break
		}
		s := report.Scores[i]
		if !s.Valid {
			continue
		}
		details := s.Details()
		details["backend_score"] = c.ValidationScore
		scored := c.WithDetails(details)
		scored.ValidationScore = s.Score
		accepted = append(accepted, scored)
	}

	maxContacts := o.cfg.MaxContacts
	if req.Options.MaxContacts > 0 {
		maxContacts = req.Options.MaxContacts
	}
	selected := SelectBest(accepted, SelectionPolicy{
		MaxContacts:    maxContacts,
		PerTypeCap:     o.cfg.PerTypeCap,
		HighScoreAbove: o.cfg.HighScoreAbove,
	})

	elapsed := o.now().Sub(start)
	metadata := map[string]any{
		"backends":              backends,
		"services_attempted":    len(calls),
		"services_successful":   successful,
		"raw_contacts":          len(raw),
		"deduplicated_contacts": len(deduped),
		"valid_contacts":        len(accepted),
		"selected_contacts":     len(selected),
		"execution_ms":          elapsed.Milliseconds(),
		"triggered_by":          string(req.Options.Trigger()),
	}

	log.Info("enrich: orchestration complete",
		zap.Int("attempted", len(calls)),
		zap.Int("successful", successful),
		zap.Int("raw", len(raw)),
		zap.Int("selected", len(selected)),
		zap.Float64("score", report.Outcome.OverallScore),
		zap.Duration("elapsed", elapsed),
	)

	return model.SuccessResult(req.ProspectName, req.ProspectCompany, SourceOrchestrator,
		selected, report.Outcome, metadata, elapsed)
}

// runBackend calls one backend under its own timeout, rate limit and
// breaker. Panics and non-success results become BackendErrors.
func (o *Orchestrator) runBackend(ctx context.Context, call backendCall) (out backendOutcome) {
	start := o.now()
	out.name = call.name
	defer func() {
		if r := recover(); r != nil {
			out.err = &BackendError{Backend: call.name, Err: eris.Errorf("%v", r), Panic: true}
			out.result = nil
		}
		out.duration = o.now().Sub(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout(call.name))
	defer cancel()

	result, err := resilience.Call(ctx, o.guard, call.name, func(ctx context.Context) (*model.EnrichmentResult, error) {
		r, err := call.run(ctx)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, eris.New("no result")
		}
		if !r.Success {
			return nil, eris.New(r.Error)
		}
		return r, nil
	})
	if err != nil {
		out.err = NewBackendError(call.name, err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.err.Timeout = true
		}
		return out
	}
	out.result = result
	return out
}
