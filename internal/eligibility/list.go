package eligibility

import (
	"sort"
	"time"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// ListEligible filters candidates to those due for automatic enrichment under
// the gate's policy and orders them: never-enriched first, then failed, then
// the rest; ties broken by lower stored completeness, fewer attempts, then
// most recently created.
func (g *Gate) ListEligible(candidates []model.Prospect) []model.Prospect {
	return g.ListEligibleWith(candidates, g.policy)
}

// ListEligibleWith is ListEligible with an explicit policy.
func (g *Gate) ListEligibleWith(candidates []model.Prospect, policy Policy) []model.Prospect {
	policy = policy.WithDefaults()
	now := g.nowFunc()
	window := time.Duration(policy.RefreshAfterDays) * day

	var out []model.Prospect
	for _, p := range candidates {
		st := p.Enrichment
		if st.Status == model.EnrichmentPending || st.BlacklistedAt != nil || !st.AutoEnrichEnabled {
			continue
		}
		if st.DataCompletenessScore >= policy.MinCompletenessScore {
			continue
		}
		outsideWindow := st.LastEnrichmentAt == nil || !now.Before(st.LastEnrichmentAt.Add(window))
		retryable := st.Status == model.EnrichmentFailed && st.Attempts < policy.MaxAttempts
		if st.NeverEnriched() || outsideWindow || retryable {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := statusRank(a), statusRank(b); ra != rb {
			return ra < rb
		}
		if a.Enrichment.DataCompletenessScore != b.Enrichment.DataCompletenessScore {
			return a.Enrichment.DataCompletenessScore < b.Enrichment.DataCompletenessScore
		}
		if a.Enrichment.Attempts != b.Enrichment.Attempts {
			return a.Enrichment.Attempts < b.Enrichment.Attempts
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func statusRank(p model.Prospect) int {
	switch {
	case p.Enrichment.NeverEnriched():
		return 0
	case p.Enrichment.Status == model.EnrichmentFailed:
		return 1
	default:
		return 2
	}
}
