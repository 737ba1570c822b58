package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/model"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; ProspectEnrich/1.0)"

// LocalConfig tunes the direct HTTP scraper.
type LocalConfig struct {
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBodySize int           `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// LocalScraper fetches pages directly with colly, detects blocks, and parses
// the HTML into text plus its contact block. Free, no API calls. Falls through
// to Jina/Firecrawl when blocked.
type LocalScraper struct {
	cfg LocalConfig
}

// NewLocalScraper creates a LocalScraper. Zero config fields take defaults.
func NewLocalScraper(cfg LocalConfig) *LocalScraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 2 << 20
	}
	return &LocalScraper{cfg: cfg}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Supports accepts http and https URLs.
func (l *LocalScraper) Supports(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

type fetched struct {
	status int
	header http.Header
	body   []byte
	url    string
}

// Scrape fetches a URL, rejects blocked or empty pages, and parses the HTML.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	c := colly.NewCollector(
		colly.UserAgent(l.cfg.UserAgent),
		colly.MaxBodySize(l.cfg.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(l.cfg.Timeout)

	var page *fetched
	c.OnResponse(func(r *colly.Response) {
		f := &fetched{status: r.StatusCode, body: r.Body, url: r.Request.URL.String()}
		if r.Headers != nil {
			f.header = r.Headers.Clone()
		}
		page = f
	})

	if err := c.Visit(targetURL); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "local_http: fetch")
		}
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	if page == nil {
		return nil, eris.Errorf("local_http: no response for %s", targetURL)
	}

	if blocked, blockType := DetectBlock(page.status, page.header, page.body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}
	if page.status >= 400 {
		return nil, eris.Errorf("local_http: status %d", page.status)
	}
	if len(page.body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	raw := string(page.body)
	doc, err := extract.ParseHTML(raw)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse")
	}

	return &Result{
		Page: model.CrawledPage{
			URL:         page.url,
			Title:       doc.Title,
			Markdown:    doc.Text,
			HTML:        raw,
			StatusCode:  page.status,
			ContactText: doc.ContactText,
		},
		Source: "local_http",
	}, nil
}
