package eligibility

import (
	"time"

	"github.com/sells-group/prospect-enrich/internal/model"
)

const day = 24 * time.Hour

// Gate applies a Policy to prospect enrichment state.
type Gate struct {
	policy  Policy
	nowFunc func() time.Time
}

// NewGate creates a gate with the given policy; zero thresholds take defaults.
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy.WithDefaults(), nowFunc: time.Now}
}

// WithNow fixes the gate's clock for testing.
func (g *Gate) WithNow(now func() time.Time) *Gate {
	g.nowFunc = now
	return g
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy { return g.policy }

// RefreshCutoff is the latest last-enrichment time that is outside the
// refresh window.
func (g *Gate) RefreshCutoff() time.Time {
	return g.nowFunc().Add(-time.Duration(g.policy.RefreshAfterDays) * day)
}

// Decide evaluates p against the gate's own policy.
func (g *Gate) Decide(p model.Prospect) model.EligibilityDecision {
	return g.DecideWith(p, g.policy)
}

// DecideWith evaluates p against policy. The first matching rule wins; force
// mode short-circuits to eligible.
func (g *Gate) DecideWith(p model.Prospect, policy Policy) model.EligibilityDecision {
	policy = policy.WithDefaults()
	now := g.nowFunc()
	st := p.Enrichment

	d := model.EligibilityDecision{
		CompletenessScore: CompletenessScore(p),
		Details: model.DecisionDetails{
			MissingData: MissingData(p),
			Attempts:    st.Attempts,
		},
	}
	if st.LastEnrichmentAt != nil {
		days := int(now.Sub(*st.LastEnrichmentAt) / day)
		d.Details.DaysSinceLastEnrichment = &days
	}

	if policy.ForceMode {
		return eligible(d, model.ReasonForced, p)
	}

	switch {
	case !st.AutoEnrichEnabled:
		return blocked(d, model.ReasonDisabled)
	case st.BlacklistedAt != nil:
		return blocked(d, model.ReasonBlacklisted)
	case st.Status == model.EnrichmentPending:
		return blocked(d, model.ReasonInProgress)
	case d.CompletenessScore >= policy.MinCompletenessScore:
		return blocked(d, model.ReasonCompleteData)
	}

	if st.LastEnrichmentAt != nil {
		next := st.LastEnrichmentAt.Add(time.Duration(policy.RefreshAfterDays) * day)
		if now.Before(next) {
			d = blocked(d, model.ReasonRecentlyEnriched)
			d.NextEligibleAt = &next
			return d
		}
	}

	if st.Status == model.EnrichmentFailed && st.Attempts >= policy.MaxAttempts {
		return blocked(d, model.ReasonMaxAttemptsReached)
	}

	switch {
	case st.NeverEnriched():
		return eligible(d, model.ReasonNeverEnriched, p)
	case st.Status == model.EnrichmentFailed:
		return eligible(d, model.ReasonPreviousFailure, p)
	case st.LastEnrichmentAt != nil:
		return eligible(d, model.ReasonOutdatedEnrichment, p)
	default:
		return eligible(d, model.ReasonIncompleteData, p)
	}
}

func blocked(d model.EligibilityDecision, reason model.EligibilityReason) model.EligibilityDecision {
	d.IsEligible = false
	d.Reason = reason
	d.Priority = ""
	return d
}

func eligible(d model.EligibilityDecision, reason model.EligibilityReason, p model.Prospect) model.EligibilityDecision {
	d.IsEligible = true
	d.Reason = reason
	d.Priority = priority(p, d.CompletenessScore)
	return d
}

func priority(p model.Prospect, completeness float64) model.Priority {
	st := p.Enrichment
	switch {
	case st.NeverEnriched(),
		st.Status == model.EnrichmentFailed && st.Attempts < 2,
		completeness < 30:
		return model.PriorityHigh
	case completeness < 60:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
