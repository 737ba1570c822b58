package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-enrich/internal/model"
)

func TestListEligible(t *testing.T) {
	t.Parallel()

	created := func(h int) time.Time { return fixedNow.Add(-time.Duration(h) * time.Hour) }
	mk := func(id string, st model.EnrichmentState, createdHoursAgo int) model.Prospect {
		st.AutoEnrichEnabled = true
		return model.Prospect{ID: id, Name: id, Enrichment: st, CreatedAt: created(createdHoursAgo)}
	}

	candidates := []model.Prospect{
		mk("outdated", model.EnrichmentState{Status: model.EnrichmentCompleted, LastEnrichmentAt: daysAgo(40), DataCompletenessScore: 50}, 1),
		mk("recent", model.EnrichmentState{Status: model.EnrichmentCompleted, LastEnrichmentAt: daysAgo(3), DataCompletenessScore: 20}, 1),
		mk("failed-retry", model.EnrichmentState{Status: model.EnrichmentFailed, Attempts: 1, LastEnrichmentAt: daysAgo(2), DataCompletenessScore: 10}, 1),
		mk("failed-exhausted-recent", model.EnrichmentState{Status: model.EnrichmentFailed, Attempts: 3, LastEnrichmentAt: daysAgo(2)}, 1),
		mk("never-old", model.EnrichmentState{Status: model.EnrichmentNever, DataCompletenessScore: 30}, 48),
		mk("never-new", model.EnrichmentState{Status: model.EnrichmentNever, DataCompletenessScore: 30}, 2),
		mk("never-sparse", model.EnrichmentState{Status: model.EnrichmentNever, DataCompletenessScore: 10}, 100),
		mk("pending", model.EnrichmentState{Status: model.EnrichmentPending}, 1),
		mk("complete", model.EnrichmentState{Status: model.EnrichmentNever, DataCompletenessScore: 90}, 1),
		{ID: "disabled", Enrichment: model.EnrichmentState{Status: model.EnrichmentNever}},
		mk("blacklisted", model.EnrichmentState{Status: model.EnrichmentNever, BlacklistedAt: daysAgo(1)}, 1),
	}

	got := newTestGate().ListEligible(candidates)

	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"never-sparse", "never-new", "never-old", "failed-retry", "outdated"}, ids)
}

func TestListEligible_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, newTestGate().ListEligible(nil))
}
