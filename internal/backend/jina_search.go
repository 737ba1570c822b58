package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
	"github.com/sells-group/prospect-enrich/pkg/jina"
)

// Score for a result URL whose host carries the company name.
const scoreResultHost = 55

// JinaSearchConfig tunes the Jina search backend.
type JinaSearchConfig struct {
	Country  string `mapstructure:"country" yaml:"country"`
	Language string `mapstructure:"language" yaml:"language"`
	// Results is the number of results requested per query.
	Results int `mapstructure:"results" yaml:"results"`
}

// JinaSearch finds contacts in web search results.
type JinaSearch struct {
	client    jina.Client
	extractor *extract.Extractor
	cfg       JinaSearchConfig
}

// NewJinaSearch creates the backend. A nil extractor uses the default skip
// hosts.
func NewJinaSearch(client jina.Client, extractor *extract.Extractor, cfg JinaSearchConfig) *JinaSearch {
	if extractor == nil {
		extractor = extract.New(defaultSkipHosts...)
	}
	if cfg.Results <= 0 {
		cfg.Results = 5
	}
	return &JinaSearch{client: client, extractor: extractor, cfg: cfg}
}

func (b *JinaSearch) Name() string { return NameJinaSearch }

type jinaQuery struct {
	text string
	site string
}

func (b *JinaSearch) queries(req enrich.SearchRequest) []jinaQuery {
	name := strings.TrimSpace(req.ProspectName)
	company := strings.TrimSpace(req.ProspectCompany)

	var qs []jinaQuery
	switch {
	case name != "" && company != "":
		qs = append(qs, jinaQuery{text: fmt.Sprintf("%q %q contact email", name, company)})
	case name != "":
		qs = append(qs, jinaQuery{text: fmt.Sprintf("%q contact email", name)})
	default:
		qs = append(qs, jinaQuery{text: fmt.Sprintf("%q contact email", company)})
	}
	if company != "" && req.City != "" {
		qs = append(qs, jinaQuery{text: fmt.Sprintf("%q %s téléphone", company, req.City)})
	}
	if host := textnorm.Host(req.Website); host != "" {
		qs = append(qs, jinaQuery{text: "contact", site: host})
	}
	return qs
}

// Search runs each query in turn. Failed queries are skipped; the call fails
// only when every query does.
func (b *JinaSearch) Search(ctx context.Context, req enrich.SearchRequest) (*model.EnrichmentResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("backend", NameJinaSearch))

	var (
		contacts []model.ContactCandidate
		firstErr error
		failed   int
		pages    int
	)
	qs := b.queries(req)
	for _, q := range qs {
		opts := []jina.SearchOption{jina.WithCount(b.cfg.Results)}
		if b.cfg.Country != "" || b.cfg.Language != "" {
			opts = append(opts, jina.WithLocale(b.cfg.Country, b.cfg.Language))
		}
		if q.site != "" {
			opts = append(opts, jina.WithSite(q.site))
		}

		resp, err := b.client.Search(ctx, q.text, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "jina_search: canceled")
			}
			log.Debug("jina_search: query failed", zap.String("query", q.text), zap.Error(err))
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, page := range resp.Data {
			pages++
			contacts = append(contacts, b.fromPage(page, q.text, req)...)
		}
	}
	if failed == len(qs) && firstErr != nil {
		return nil, eris.Wrap(firstErr, "jina_search: all queries failed")
	}

	return succeeded(NameJinaSearch, req, contacts, map[string]any{
		"queries":        len(qs),
		"queries_failed": failed,
		"pages":          pages,
	}, start), nil
}

func (b *JinaSearch) fromPage(page jina.Page, query string, req enrich.SearchRequest) []model.ContactCandidate {
	ectx := model.ExtractionContext{SourceURL: page.URL, Query: query}
	text := strings.Join([]string{page.Title, page.Description, page.Content}, "\n")
	out := b.extractor.FromText(text, ectx)

	if host := textnorm.Host(page.URL); companyHost(host, req.ProspectCompany) && !b.extractor.Skipped(host) {
		site := "https://" + host
		out = append(out, model.NewContactCandidate(model.ContactWebsite, site, scoreResultHost, model.ConfidenceMedium, ectx))
	}
	return out
}
