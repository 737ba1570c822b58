package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/model"
)

func TestRunBatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ok1 := createProspect(t, st, newJean())
	p := newJean()
	p.Name = "Claire Petit"
	ok2 := createProspect(t, st, p)
	p = newJean()
	p.Name = "Broken Record"
	bad := createProspect(t, st, p)
	p = newJean()
	p.Name = "Opted Out"
	p.Enrichment.AutoEnrichEnabled = false
	optedOut := createProspect(t, st, p)
	p = newJean()
	p.Name = "Fresh"
	recent := serviceNow.Add(-48 * time.Hour)
	p.Enrichment.Status = model.EnrichmentCompleted
	p.Enrichment.LastEnrichmentAt = &recent
	fresh := createProspect(t, st, p)

	orch := enricherFunc(func(ctx context.Context, req SearchRequest) *model.EnrichmentResult {
		assert.Equal(t, model.TriggerBatch, req.Options.TriggeredBy)
		if req.ProspectName == "Broken Record" {
			return model.FailureResult(req.ProspectName, req.ProspectCompany, SourceOrchestrator, "boom", 0)
		}
		return goodEnricher(nil).Enrich(ctx, req)
	})

	sum, err := newTestService(st, orch).RunBatch(ctx, BatchOptions{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, sum.Skipped)

	for id, want := range map[string]model.EnrichmentStatus{
		ok1:      model.EnrichmentCompleted,
		ok2:      model.EnrichmentCompleted,
		bad:      model.EnrichmentFailed,
		optedOut: model.EnrichmentNever,
		fresh:    model.EnrichmentCompleted,
	} {
		got, err := st.GetProspect(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Enrichment.Status, got.Name)
	}

	runs, err := st.ListRuns(ctx, fresh, 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "recently enriched prospects are left alone")
}

func TestRunBatch_Limit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for range 4 {
		createProspect(t, st, newJean())
	}

	sum, err := newTestService(st, goodEnricher(nil)).RunBatch(ctx, BatchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 2, sum.Succeeded)
}

func TestRunBatch_Empty(t *testing.T) {
	st := newTestStore(t)

	sum, err := newTestService(st, goodEnricher(nil)).RunBatch(context.Background(), BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Duration: sum.Duration}, *sum)
}

func TestListEligible_CompleteProspectsDoNotFillScan(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := newJean()
	old.Name = "Old Incomplete"
	old.CreatedAt = serviceNow.Add(-30 * 24 * time.Hour)
	oldID := createProspect(t, st, old)

	for i := range 5 {
		p := newJean()
		p.Address = "1 rue de la République"
		p.Contact = model.ContactInfo{Email: "jean@acme.fr", Phone: "+33472000000", Website: "https://acme.fr"}
		p.CreatedAt = serviceNow.Add(-time.Duration(i) * time.Hour)
		id := createProspect(t, st, p)

		stored, err := st.GetProspect(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 90.0, stored.Enrichment.DataCompletenessScore)
	}

	svc := newTestService(st, goodEnricher(nil))
	got, err := svc.ListEligible(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, oldID, got[0].ID)

	sum, err := svc.RunBatch(ctx, BatchOptions{Limit: 1, ScanLimit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	stored, err := st.GetProspect(ctx, oldID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentCompleted, stored.Enrichment.Status)
}

func TestListEligible_RecentlyEnrichedDoNotStarveNeverEnriched(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	waiting := newJean()
	waiting.Name = "Waiting"
	waiting.CreatedAt = serviceNow.Add(-90 * 24 * time.Hour)
	waitingID := createProspect(t, st, waiting)

	recent := serviceNow.Add(-24 * time.Hour)
	for i := range 6 {
		p := newJean()
		p.CreatedAt = serviceNow.Add(-time.Duration(i) * time.Hour)
		p.Enrichment.Status = model.EnrichmentCompleted
		p.Enrichment.LastEnrichmentAt = &recent
		createProspect(t, st, p)
	}
	p := newJean()
	p.Enrichment.Status = model.EnrichmentFailed
	p.Enrichment.Attempts = 3
	p.Enrichment.LastEnrichmentAt = &recent
	createProspect(t, st, p)

	got, err := newTestService(st, goodEnricher(nil)).ListEligible(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, waitingID, got[0].ID)
}
