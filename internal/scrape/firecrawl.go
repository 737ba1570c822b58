package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client firecrawl.Client
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true: Firecrawl can attempt any URL as a last resort.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API. When HTML comes
// back, its contact block is isolated the same way the local scraper does.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"markdown", "html"},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}

	page := model.CrawledPage{
		URL:        resp.Data.URL,
		Title:      resp.Data.Title,
		Markdown:   resp.Data.Markdown,
		HTML:       resp.Data.HTML,
		StatusCode: resp.Data.StatusCode,
	}
	if page.URL == "" {
		page.URL = targetURL
	}
	if page.HTML != "" {
		if doc, err := extract.ParseHTML(page.HTML); err == nil {
			page.ContactText = doc.ContactText
			if page.Title == "" {
				page.Title = doc.Title
			}
		}
	}
	return &Result{Page: page, Source: "firecrawl"}, nil
}
