package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/model"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestGate() *Gate {
	return NewGate(DefaultPolicy()).WithNow(func() time.Time { return fixedNow })
}

func daysAgo(n int) *time.Time {
	t := fixedNow.Add(-time.Duration(n) * day)
	return &t
}

func baseProspect() model.Prospect {
	return model.Prospect{
		ID:      "p-1",
		Name:    "Jane Roe",
		Company: "Acme",
		Enrichment: model.EnrichmentState{
			Status:            model.EnrichmentNever,
			AutoEnrichEnabled: true,
		},
	}
}

func TestDecide_NeverEnriched(t *testing.T) {
	t.Parallel()

	d := newTestGate().Decide(baseProspect())
	assert.True(t, d.IsEligible)
	assert.Equal(t, model.ReasonNeverEnriched, d.Reason)
	assert.Equal(t, model.PriorityHigh, d.Priority)
	assert.InDelta(t, 30.0, d.CompletenessScore, 0.001)
	assert.Equal(t, []string{"city", "address", "email", "phone", "website", "enrichment_data"}, d.Details.MissingData)
	assert.Nil(t, d.Details.DaysSinceLastEnrichment)
}

func TestDecide_CompleteData(t *testing.T) {
	t.Parallel()

	p := baseProspect()
	p.City = "Lyon"
	p.Address = "1 rue de la Paix"
	p.Contact = model.ContactInfo{Email: "jane@acme.fr", Phone: "0102030405"}
	p.Enrichment.Data = map[string][]string{"email": {"jane@acme.fr"}}
	p.Enrichment.DataCompletenessScore = 95

	d := newTestGate().Decide(p)
	assert.InDelta(t, 95.0, d.CompletenessScore, 0.001)
	assert.False(t, d.IsEligible)
	assert.Equal(t, model.ReasonCompleteData, d.Reason)
	assert.Empty(t, d.Priority)
}

func TestDecide_RuleOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(p *model.Prospect)
		reason   model.EligibilityReason
		eligible bool
	}{
		{"disabled beats everything", func(p *model.Prospect) {
			p.Enrichment.AutoEnrichEnabled = false
			p.Enrichment.BlacklistedAt = daysAgo(1)
			p.Enrichment.Status = model.EnrichmentPending
		}, model.ReasonDisabled, false},
		{"blacklisted", func(p *model.Prospect) {
			p.Enrichment.BlacklistedAt = daysAgo(1)
			p.Enrichment.Status = model.EnrichmentPending
		}, model.ReasonBlacklisted, false},
		{"in progress", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentPending
		}, model.ReasonInProgress, false},
		{"recently enriched", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentCompleted
			p.Enrichment.LastEnrichmentAt = daysAgo(5)
		}, model.ReasonRecentlyEnriched, false},
		{"failed within window is recent", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentFailed
			p.Enrichment.Attempts = 1
			p.Enrichment.LastEnrichmentAt = daysAgo(2)
		}, model.ReasonRecentlyEnriched, false},
		{"max attempts", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentFailed
			p.Enrichment.Attempts = 3
			p.Enrichment.LastEnrichmentAt = daysAgo(45)
		}, model.ReasonMaxAttemptsReached, false},
		{"max attempts without timestamp", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentFailed
			p.Enrichment.Attempts = 5
		}, model.ReasonMaxAttemptsReached, false},
		{"previous failure", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentFailed
			p.Enrichment.Attempts = 1
			p.Enrichment.LastEnrichmentAt = daysAgo(31)
		}, model.ReasonPreviousFailure, true},
		{"outdated", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentCompleted
			p.Enrichment.LastEnrichmentAt = daysAgo(30)
		}, model.ReasonOutdatedEnrichment, true},
		{"incomplete data", func(p *model.Prospect) {
			p.Enrichment.Status = model.EnrichmentSkipped
		}, model.ReasonIncompleteData, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := baseProspect()
			tt.mutate(&p)
			d := newTestGate().Decide(p)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.eligible, d.IsEligible)
			assert.Equal(t, d.Reason.Eligible(), d.IsEligible)
		})
	}
}

func TestDecide_RecentlyEnrichedNextEligibleAt(t *testing.T) {
	t.Parallel()

	p := baseProspect()
	p.Enrichment.Status = model.EnrichmentCompleted
	p.Enrichment.LastEnrichmentAt = daysAgo(10)

	d := newTestGate().Decide(p)
	require.NotNil(t, d.NextEligibleAt)
	assert.Equal(t, p.Enrichment.LastEnrichmentAt.Add(30*day), *d.NextEligibleAt)
	require.NotNil(t, d.Details.DaysSinceLastEnrichment)
	assert.Equal(t, 10, *d.Details.DaysSinceLastEnrichment)
}

func TestDecide_ForceMode(t *testing.T) {
	t.Parallel()

	p := baseProspect()
	p.Enrichment.AutoEnrichEnabled = false
	p.Enrichment.BlacklistedAt = daysAgo(3)

	policy := DefaultPolicy()
	policy.ForceMode = true
	d := newTestGate().DecideWith(p, policy)
	assert.True(t, d.IsEligible)
	assert.Equal(t, model.ReasonForced, d.Reason)
	assert.NotEmpty(t, d.Priority)
}

func TestDecide_CustomPolicy(t *testing.T) {
	t.Parallel()

	p := baseProspect()
	p.Enrichment.Status = model.EnrichmentCompleted
	p.Enrichment.LastEnrichmentAt = daysAgo(10)

	d := newTestGate().DecideWith(p, Policy{RefreshAfterDays: 7})
	assert.True(t, d.IsEligible)
	assert.Equal(t, model.ReasonOutdatedEnrichment, d.Reason)

	d = newTestGate().DecideWith(baseProspect(), Policy{MinCompletenessScore: 25})
	assert.Equal(t, model.ReasonCompleteData, d.Reason)
}

func TestPriority(t *testing.T) {
	t.Parallel()

	mk := func(status model.EnrichmentStatus, attempts int, fill int) model.Prospect {
		p := baseProspect()
		p.Enrichment.Status = status
		p.Enrichment.Attempts = attempts
		p.Enrichment.LastEnrichmentAt = daysAgo(60)
		if fill >= 1 {
			p.City = "Paris"
		}
		if fill >= 2 {
			p.Contact.Phone = "0102030405"
		}
		if fill >= 3 {
			p.Address = "2 avenue Foch"
		}
		return p
	}

	tests := []struct {
		name string
		p    model.Prospect
		want model.Priority
	}{
		{"failed once is high", mk(model.EnrichmentFailed, 1, 3), model.PriorityHigh},
		{"low completeness is high", func() model.Prospect {
			p := mk(model.EnrichmentCompleted, 0, 0)
			p.Company = ""
			return p
		}(), model.PriorityHigh},
		{"mid completeness is medium", mk(model.EnrichmentCompleted, 0, 1), model.PriorityMedium},
		{"failed twice mid completeness is medium", mk(model.EnrichmentFailed, 2, 1), model.PriorityMedium},
		{"higher completeness is low", mk(model.EnrichmentCompleted, 0, 3), model.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := newTestGate().Decide(tt.p)
			require.True(t, d.IsEligible, d.Reason)
			assert.Equal(t, tt.want, d.Priority)
		})
	}
}

func TestDecide_TotalFunction(t *testing.T) {
	t.Parallel()

	statuses := []model.EnrichmentStatus{"", model.EnrichmentNever, model.EnrichmentPending, model.EnrichmentCompleted, model.EnrichmentFailed, model.EnrichmentSkipped}
	lasts := []*time.Time{nil, daysAgo(1), daysAgo(29), daysAgo(30), daysAgo(400)}
	g := newTestGate()

	for _, status := range statuses {
		for _, last := range lasts {
			for attempts := 0; attempts <= 4; attempts++ {
				for _, auto := range []bool{true, false} {
					for _, bl := range []*time.Time{nil, daysAgo(2)} {
						p := baseProspect()
						p.Enrichment = model.EnrichmentState{
							Status:            status,
							LastEnrichmentAt:  last,
							Attempts:          attempts,
							AutoEnrichEnabled: auto,
							BlacklistedAt:     bl,
						}
						d := g.Decide(p)
						require.NotEmpty(t, d.Reason)
						assert.Equal(t, d.Reason.Eligible(), d.IsEligible, "%+v", p.Enrichment)
						if d.IsEligible {
							assert.NotEmpty(t, d.Priority)
						} else {
							assert.Empty(t, d.Priority)
						}
					}
				}
			}
		}
	}
}

func TestRefreshCutoff(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	assert.Equal(t, *daysAgo(30), g.RefreshCutoff())

	p := baseProspect()
	p.Enrichment.Status = model.EnrichmentCompleted
	at := g.RefreshCutoff()
	p.Enrichment.LastEnrichmentAt = &at
	assert.True(t, g.Decide(p).IsEligible, "the cutoff itself is outside the window")
}
