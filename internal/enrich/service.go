package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/resilience"
	"github.com/sells-group/prospect-enrich/internal/store"
)

// Enricher runs one orchestration. *Orchestrator implements it.
type Enricher interface {
	Enrich(ctx context.Context, req SearchRequest) *model.EnrichmentResult
}

// Outcome is what EnrichProspect did for one prospect.
type Outcome struct {
	Prospect model.Prospect            `json:"prospect"`
	Decision model.EligibilityDecision `json:"decision"`
	Result   *model.EnrichmentResult   `json:"result,omitempty"`
	Updated  []model.ContactType       `json:"updated_fields,omitempty"`
	Skipped  bool                      `json:"skipped"`
}

// Service ties the gate, the orchestrator and the store together.
type Service struct {
	store store.Store
	gate  *eligibility.Gate
	orch  Enricher
	locks *KeyedMutex
	now   func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceClock replaces time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(st store.Store, gate *eligibility.Gate, orch Enricher, opts ...ServiceOption) *Service {
	if gate == nil {
		gate = eligibility.NewGate(eligibility.DefaultPolicy())
	}
	s := &Service{
		store: st,
		gate:  gate,
		orch:  orch,
		locks: NewKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate returns the service's eligibility gate.
func (s *Service) Gate() *eligibility.Gate { return s.gate }

// Decide loads a prospect and evaluates its eligibility without enriching.
func (s *Service) Decide(ctx context.Context, id string) (*model.Prospect, model.EligibilityDecision, error) {
	p, err := s.store.GetProspect(ctx, id)
	if err != nil {
		return nil, model.EligibilityDecision{}, err
	}
	return p, s.gate.Decide(*p), nil
}

// EnrichProspect enriches one stored prospect. Ineligible prospects are
// returned as skipped unless opts.Force is set. A concurrent write to the
// same prospect yields an error matching store.ErrConflict.
func (s *Service) EnrichProspect(ctx context.Context, id string, opts model.EnrichOptions) (*Outcome, error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: lock prospect %s", id)
	}
	defer unlock()

	p, err := s.store.GetProspect(ctx, id)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("prospect_id", p.ID), zap.String("trigger", string(opts.Trigger())))

	policy := s.gate.Policy()
	policy.ForceMode = policy.ForceMode || opts.Force
	decision := s.gate.DecideWith(*p, policy)
	if !decision.IsEligible {
		log.Info("enrich: skipped", zap.String("reason", string(decision.Reason)))
		skipped, err := s.markSkipped(ctx, *p)
		if err != nil {
			return nil, err
		}
		return &Outcome{Prospect: skipped, Decision: decision, Skipped: true}, nil
	}

	pending := *p
	pending.Enrichment.Status = model.EnrichmentPending
	version, err := s.store.SaveProspect(ctx, pending, p.Version)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: mark pending %s", id)
	}
	pending.Version = version

	result := s.orch.Enrich(ctx, SearchRequest{
		ProspectName:    p.Name,
		ProspectCompany: p.Company,
		City:            p.City,
		Website:         p.Contact.Website,
		Options:         opts,
	})
	if result == nil {
		result = model.FailureResult(p.Name, p.Company, SourceOrchestrator, "no result", 0)
	}

	// The pre-run status is restored so ApplyResult sees the prospect as it
	// was, not as pending.
	pending.Enrichment.Status = p.Enrichment.Status
	updated, fields := ApplyResult(pending, result, s.now())
	// A canceled caller must not leave the prospect pending.
	saveCtx := context.WithoutCancel(ctx)
	version, saveErr := s.store.SaveProspect(saveCtx, updated, pending.Version)
	if saveErr == nil {
		updated.Version = version
	}

	s.recordRun(saveCtx, log, p.ID, opts.Trigger(), result)

	if saveErr != nil {
		return nil, eris.Wrapf(saveErr, "enrich: save prospect %s", id)
	}

	log.Info("enrich: prospect enriched",
		zap.Bool("success", result.Success),
		zap.Int("contacts", len(result.Contacts)),
		zap.Int("updated_fields", len(fields)),
		zap.Float64("score", result.Validation.OverallScore),
	)
	return &Outcome{
		Prospect: updated,
		Decision: decision,
		Result:   result,
		Updated:  fields,
	}, nil
}

// markSkipped stamps a gate skip on a never-enriched prospect. Any other
// status is left alone because the gate reads it.
func (s *Service) markSkipped(ctx context.Context, p model.Prospect) (model.Prospect, error) {
	if !p.Enrichment.NeverEnriched() {
		return p, nil
	}
	p.Enrichment.Status = model.EnrichmentSkipped
	version, err := s.store.SaveProspect(ctx, p, p.Version)
	if err != nil {
		return p, eris.Wrapf(err, "enrich: mark skipped %s", p.ID)
	}
	p.Version = version
	return p, nil
}

// recordRun writes the audit row. Failures are logged only.
func (s *Service) recordRun(ctx context.Context, log *zap.Logger, prospectID string, trigger model.TriggerSource, result *model.EnrichmentResult) {
	run := &model.EnrichmentRun{
		ProspectID:  prospectID,
		TriggeredBy: trigger,
		Success:     result.Success,
		Score:       result.Validation.OverallScore,
		Contacts:    result.ContactsGrouped(),
		Error:       result.Error,
		DurationMs:  result.ExecutionMillis(),
		CreatedAt:   s.now(),
	}
	if !result.Success {
		run.ErrorClass = resilience.Classify(eris.New(result.Error))
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		log.Warn("enrich: record run failed", zap.Error(err))
	}
}
