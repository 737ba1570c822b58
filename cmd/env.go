package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/backend"
	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/resilience"
	"github.com/sells-group/prospect-enrich/internal/scrape"
	"github.com/sells-group/prospect-enrich/internal/store"
	"github.com/sells-group/prospect-enrich/internal/validate"
	"github.com/sells-group/prospect-enrich/pkg/firecrawl"
	"github.com/sells-group/prospect-enrich/pkg/google"
	"github.com/sells-group/prospect-enrich/pkg/jina"
	"github.com/sells-group/prospect-enrich/pkg/perplexity"
)

// Breaker name shared by the Jina reader fallback in the scrape chain.
const jinaReaderService = "jina_reader"

// enrichEnv holds the store and the enrichment stack built from cfg.
type enrichEnv struct {
	Store        store.Store
	Engine       *validate.Engine
	Orchestrator *enrich.Orchestrator
	Service      *enrich.Service
}

// Close releases resources held by the environment.
func (e *enrichEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnrich validates cfg for mode, opens the store and wires the backends,
// orchestrator and service. Callers should defer env.Close().
func initEnrich(ctx context.Context, mode string) (*enrichEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	engine := validate.NewEngine()
	orch := buildOrchestrator(engine)
	gate := eligibility.NewGate(cfg.Eligibility)

	return &enrichEnv{
		Store:        st,
		Engine:       engine,
		Orchestrator: orch,
		Service:      enrich.NewService(st, gate, orch),
	}, nil
}

func orchestratorConfig() enrich.OrchestratorConfig {
	backends := make(map[string]enrich.BackendConfig, len(cfg.Enrichment.Backends))
	for name, bc := range cfg.Enrichment.Backends {
		backends[name] = enrich.BackendConfig{
			Enabled:       bc.Enabled,
			Timeout:       bc.Timeout,
			RatePerSecond: bc.RatePerSecond,
		}
	}
	return enrich.OrchestratorConfig{
		Backends:       backends,
		DefaultTimeout: cfg.Enrichment.DefaultTimeout,
		MaxContacts:    cfg.Enrichment.MaxContacts,
		PerTypeCap:     cfg.Enrichment.PerTypeCap,
		HighScoreAbove: cfg.Enrichment.HighScoreAbove,
		ScrapeWebsite:  cfg.Enrichment.ScrapeWebsite,
		ContactPaths:   cfg.Enrichment.ContactPaths,
		RetryAttempts:  cfg.Enrichment.RetryAttempts,
		Breaker:        cfg.Enrichment.Breaker,
	}
}

func newGuard(oc enrich.OrchestratorConfig) *resilience.Guard {
	retry := resilience.DefaultRetryPolicy()
	if oc.RetryAttempts > 0 {
		retry.Attempts = oc.RetryAttempts
	}
	guard := resilience.NewGuard(resilience.GuardConfig{Retry: retry, Breaker: oc.Breaker})
	for name, bc := range oc.Backends {
		if bc.RatePerSecond > 0 {
			guard.SetRate(name, bc.RatePerSecond)
		}
	}
	return guard
}

// buildOrchestrator creates the API clients and backends. Backends whose
// client cannot be configured are left out and logged.
func buildOrchestrator(engine *validate.Engine) *enrich.Orchestrator {
	oc := orchestratorConfig()
	guard := newGuard(oc)
	extractor := extract.New(backend.DefaultSkipHosts()...)

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithReaderURL(cfg.Jina.BaseURL),
		jina.WithSearchURL(cfg.Jina.SearchBaseURL),
	)

	search := []enrich.SearchBackend{
		backend.NewJinaSearch(jinaClient, extractor, backend.JinaSearchConfig{
			Country:  cfg.Jina.Country,
			Language: cfg.Jina.Language,
			Results:  cfg.Jina.Results,
		}),
	}

	if cfg.Google.Key != "" {
		googleClient := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		search = append(search, backend.NewPlaces(googleClient, backend.PlacesConfig{
			LanguageCode: cfg.Google.LanguageCode,
			RegionCode:   cfg.Google.RegionCode,
			MaxResults:   cfg.Google.MaxResults,
		}))
	} else {
		zap.L().Debug("PROSPECT_GOOGLE_KEY not set, google_places backend disabled")
	}

	if cfg.Perplexity.Key != "" {
		pplx := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		search = append(search, backend.NewPerplexity(pplx, extractor, backend.PerplexityConfig{
			MaxTokens:      cfg.Perplexity.MaxTokens,
			ExcludeDomains: cfg.Perplexity.ExcludeDomains,
			Recency:        cfg.Perplexity.Recency,
		}))
	} else {
		zap.L().Debug("PROSPECT_PERPLEXITY_KEY not set, perplexity backend disabled")
	}

	chain := buildScrapeChain(jinaClient, guard)
	scraper := backend.NewWebScraper(chain, extractor, cfg.Scrape.Concurrency)

	zap.L().Info("enrichment backends ready",
		zap.Int("search_backends", len(search)),
		zap.Strings("scrapers", chain.Scrapers()),
	)
	return enrich.NewOrchestrator(oc, engine, search, scraper, enrich.WithGuard(guard))
}

// buildScrapeChain tries a direct fetch first, then the Jina reader, then
// Firecrawl when a key is configured.
func buildScrapeChain(jinaClient jina.Client, guard *resilience.Guard) *scrape.Chain {
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(scrape.LocalConfig{
			UserAgent:   cfg.Scrape.UserAgent,
			Timeout:     cfg.Scrape.Timeout,
			MaxBodySize: cfg.Scrape.MaxBodySize,
		}),
		scrape.NewJinaAdapterWithBreaker(jinaClient, guard.Breaker(jinaReaderService)),
	}
	if cfg.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
	}
	return scrape.NewChain(scrape.NewPathMatcher(cfg.Scrape.ExcludePaths), scrapers...)
}
