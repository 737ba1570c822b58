package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/config"
	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/store"
	"github.com/sells-group/prospect-enrich/internal/validate"
)

// testConfig points the commands at a SQLite file in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "cmd.db")},
		Batch: config.BatchConfig{Limit: 10, Concurrency: 2, ScanLimit: 40},
		Enrichment: config.EnrichmentConfig{
			MaxContacts: 10,
			Backends: map[string]config.BackendConfig{
				"jina_search":   {Enabled: true},
				"google_places": {Enabled: false},
				"perplexity":    {Enabled: false},
				"web_scraper":   {Enabled: true},
			},
		},
	}
}

func TestEnrichOptions(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() {
		enrichBackends, enrichForce, enrichMaxContacts, enrichURLs = nil, false, 0, nil
	})

	enrichForce = true
	enrichMaxContacts = 3
	enrichURLs = []string{"https://acme.fr/contact"}
	opts, err := enrichOptions()
	require.NoError(t, err)
	assert.True(t, opts.Force)
	assert.Equal(t, 3, opts.MaxContacts)
	assert.Equal(t, model.TriggerManual, opts.TriggeredBy)
	assert.Nil(t, opts.Backends)

	enrichBackends = []string{"web_scraper"}
	opts, err = enrichOptions()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"jina_search": false, "google_places": false, "perplexity": false, "web_scraper": true,
	}, opts.Backends)

	enrichBackends = []string{"bing"}
	_, err = enrichOptions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "bing"`)
}

func TestBatchOptions(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() { batchLimit, batchConcurrency = 0, 0 })

	opts := batchOptions()
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 2, opts.Concurrency)
	assert.Equal(t, 40, opts.ScanLimit)
	assert.Equal(t, model.TriggerBatch, opts.Options.TriggeredBy)

	batchLimit, batchConcurrency = 5, 8
	opts = batchOptions()
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, 8, opts.Concurrency)
}

func TestImportOptions(t *testing.T) {
	t.Cleanup(func() { importDelimiter = "," })

	importDelimiter = ";"
	opts, err := importOptions()
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Delimiter)

	importDelimiter = "||"
	_, err = importOptions()
	assert.Error(t, err)
}

func TestImportCmd_ImportsRows(t *testing.T) {
	cfg = testConfig(t)
	csvPath := filepath.Join(t.TempDir(), "prospects.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,company,city\nJean Martin,Acme,Lyon\n,,Paris\n"), 0o600))

	importCSVPath = csvPath
	importAutoEnrich = true
	t.Cleanup(func() { importCSVPath = "" })
	importCmd.SetContext(context.Background())
	defer importCmd.SetContext(context.TODO())

	require.NoError(t, importCmd.RunE(importCmd, nil))

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	got, err := st.ListAutoEnrichCandidates(context.Background(), store.CandidateQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jean Martin", got[0].Name)
}

func TestImportCmd_BadCSVPath(t *testing.T) {
	cfg = testConfig(t)
	importCSVPath = "/nonexistent/prospects.csv"
	t.Cleanup(func() { importCSVPath = "" })
	importCmd.SetContext(context.Background())
	defer importCmd.SetContext(context.TODO())

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

func TestMigrateCmd_BadDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"
	migrateCmd.SetContext(context.Background())
	defer migrateCmd.SetContext(context.TODO())

	err := migrateCmd.RunE(migrateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestFormatEligible(t *testing.T) {
	gate := eligibility.NewGate(eligibility.DefaultPolicy())
	prospects := []model.Prospect{
		{ID: "abc12345-6789", Name: "Jean Martin", Company: "Acme", Enrichment: model.EnrichmentState{AutoEnrichEnabled: true}},
	}

	var buf bytes.Buffer
	formatEligible(&buf, prospects, gate)

	out := buf.String()
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "Jean Martin")
	assert.Contains(t, out, "never_enriched")
	assert.Contains(t, out, "high")
}

func TestFormatReport(t *testing.T) {
	validateEmails = []string{"jean.martin@acme.fr"}
	validateWebsites = []string{"https://acme.fr"}
	t.Cleanup(func() { validateEmails, validateWebsites = nil, nil })

	candidates := validateCandidates()
	require.Len(t, candidates, 2)
	report := validate.NewEngine().Evaluate(candidates, validate.Context{ProspectName: "Jean Martin", ProspectCompany: "Acme"})

	var buf bytes.Buffer
	formatReport(&buf, candidates, report)

	out := buf.String()
	assert.Contains(t, out, "jean.martin@acme.fr")
	assert.Contains(t, out, "https://acme.fr")
	assert.Contains(t, out, "Overall:")
	assert.Contains(t, out, model.RuleContactQuality)
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.EnrichmentRun{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			TriggeredBy: model.TriggerAPI,
			Success:     true,
			Score:       72.5,
			Contacts:    map[string][]string{"email": {"jean@acme.fr"}, "phone": {"0102030405"}},
			DurationMs:  1500,
			CreatedAt:   now,
		},
		{
			ID:          "def12345-6789-0000-0000-000000000000",
			TriggeredBy: model.TriggerBatch,
			Error:       "all backends failed",
			ErrorClass:  "transient",
			CreatedAt:   now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "TRIGGER")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "72.5")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "failed (transient)")
	assert.Contains(t, output, "2026-06-15 10:30")
}

func TestComputeRunStats(t *testing.T) {
	runs := []model.EnrichmentRun{
		{Success: true, Score: 80, DurationMs: 1000},
		{Success: true, Score: 60, DurationMs: 3000},
		{ErrorClass: "transient", DurationMs: 2000},
		{ErrorClass: "permanent"},
		{},
	}
	s := computeRunStats(runs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 1, s.Transient)
	assert.Equal(t, 1, s.Permanent)
	assert.InDelta(t, 70, s.AvgScore, 0.001)
	assert.InDelta(t, 1.2, s.AvgDurSecs, 0.001)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "Unclassified:")
	assert.Contains(t, buf.String(), "Avg score:")
}
