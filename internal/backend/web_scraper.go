package backend

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/scrape"
)

// WebScraper extracts contacts from pages fetched through a scraper chain.
type WebScraper struct {
	chain       *scrape.Chain
	extractor   *extract.Extractor
	concurrency int
}

// NewWebScraper creates the backend. A nil extractor uses the default skip
// hosts.
func NewWebScraper(chain *scrape.Chain, extractor *extract.Extractor, concurrency int) *WebScraper {
	if extractor == nil {
		extractor = extract.New(defaultSkipHosts...)
	}
	return &WebScraper{chain: chain, extractor: extractor, concurrency: concurrency}
}

func (b *WebScraper) Name() string { return NameWebScraper }

// ScrapeURLs fetches urls concurrently. Pages that cannot be fetched are
// skipped; the call fails only when none can.
func (b *WebScraper) ScrapeURLs(ctx context.Context, urls []string, req enrich.SearchRequest) (*model.EnrichmentResult, error) {
	start := time.Now()
	if len(urls) == 0 {
		return nil, eris.New("web_scraper: no urls")
	}

	pages := b.chain.ScrapeAll(ctx, urls, b.concurrency)
	if len(pages) == 0 {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "web_scraper: canceled")
		}
		return nil, eris.Errorf("web_scraper: none of %d pages could be fetched", len(urls))
	}

	var contacts []model.ContactCandidate
	for _, page := range pages {
		contacts = append(contacts, b.fromPage(page)...)
	}

	return succeeded(NameWebScraper, req, contacts, map[string]any{
		"urls":          len(urls),
		"pages_scraped": len(pages),
		"scrapers":      b.chain.Scrapers(),
	}, start), nil
}

func (b *WebScraper) fromPage(page model.CrawledPage) []model.ContactCandidate {
	ectx := model.ExtractionContext{SourceURL: page.URL}
	if page.HTML != "" {
		cs, err := b.extractor.FromHTML(page.HTML, ectx)
		if err == nil {
			return cs
		}
		zap.L().Debug("web_scraper: html parse failed, using text", zap.String("url", page.URL), zap.Error(err))
	}

	out := b.extractor.FromText(page.Markdown, ectx)
	if page.ContactText != "" {
		section := ectx
		section.InContactSection = true
		out = append(out, b.extractor.FromText(page.ContactText, section)...)
	}
	return out
}
