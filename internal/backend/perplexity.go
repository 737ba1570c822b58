package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/extract"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
	"github.com/sells-group/prospect-enrich/pkg/perplexity"
)

const perplexityPrompt = `Find the professional contact details of %s%s.
Answer with one line per item, formatted exactly as:
email: <business email address>
phone: <direct or switchboard phone number, international format>
website: <official company website>
Write "unknown" for anything you cannot find. Do not guess addresses.`

const perplexitySystem = "You are a research assistant that only reports contact details found in public sources."

// Score for a cited page on the company's own domain.
const scoreCitation = 50

// Labels that mark a line of the answer as a structured field.
var answerLabels = []string{"email", "e-mail", "mail", "phone", "téléphone", "telephone", "tel", "website", "site", "web"}

// PerplexityConfig tunes the Perplexity backend.
type PerplexityConfig struct {
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
	// ExcludeDomains are left out of the online search, e.g. directories that
	// only echo switchboard numbers.
	ExcludeDomains []string `mapstructure:"exclude_domains" yaml:"exclude_domains"`
	// Recency is passed as search_recency_filter when set.
	Recency string `mapstructure:"recency" yaml:"recency"`
}

// Perplexity asks an online model for contact details and extracts them from
// the answer and its citations.
type Perplexity struct {
	client    perplexity.Client
	extractor *extract.Extractor
	cfg       PerplexityConfig
}

// NewPerplexity creates the backend. A nil extractor uses the default skip
// hosts.
func NewPerplexity(client perplexity.Client, extractor *extract.Extractor, cfg PerplexityConfig) *Perplexity {
	if extractor == nil {
		extractor = extract.New(defaultSkipHosts...)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	return &Perplexity{client: client, extractor: extractor, cfg: cfg}
}

func (b *Perplexity) Name() string { return NamePerplexity }

func (b *Perplexity) prompt(req enrich.SearchRequest) string {
	where := ""
	if city := strings.TrimSpace(req.City); city != "" {
		where = ", based in " + city
	}
	if host := textnorm.Host(req.Website); host != "" {
		where += ", website " + host
	}
	return fmt.Sprintf(perplexityPrompt, subject(req), where)
}

func (b *Perplexity) Search(ctx context.Context, req enrich.SearchRequest) (*model.EnrichmentResult, error) {
	start := time.Now()
	temperature := 0.0
	maxTokens := b.cfg.MaxTokens

	resp, err := b.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: perplexitySystem},
			{Role: "user", Content: b.prompt(req)},
		},
		Temperature:         &temperature,
		MaxTokens:           &maxTokens,
		SearchDomainFilter:  perplexity.ExcludeDomains(b.cfg.ExcludeDomains...),
		SearchRecencyFilter: b.cfg.Recency,
	})
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: chat completion")
	}
	answer := resp.Content()
	if strings.TrimSpace(answer) == "" {
		return nil, eris.New("perplexity: empty answer")
	}

	sources := resp.Sources()
	source := ""
	if len(sources) > 0 {
		source = sources[0]
	}
	contacts := b.fromAnswer(answer, model.ExtractionContext{SourceURL: source, Query: subject(req)})
	contacts = append(contacts, b.fromCitations(sources, req)...)

	return succeeded(NamePerplexity, req, contacts, map[string]any{
		"citations":         len(sources),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}, start), nil
}

// fromAnswer treats labelled lines as a contact block and the rest as free
// text.
func (b *Perplexity) fromAnswer(answer string, ectx model.ExtractionContext) []model.ContactCandidate {
	var labelled, prose []string
	for _, line := range strings.Split(answer, "\n") {
		if labelledLine(line) {
			labelled = append(labelled, line)
		} else {
			prose = append(prose, line)
		}
	}

	section := ectx
	section.InContactSection = true
	out := b.extractor.FromText(strings.Join(labelled, "\n"), section)
	return append(out, b.extractor.FromText(strings.Join(prose, "\n"), ectx)...)
}

func labelledLine(line string) bool {
	line = strings.ToLower(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
	label, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	label = strings.Trim(label, "* ")
	for _, l := range answerLabels {
		if label == l {
			return true
		}
	}
	return false
}

// fromCitations reports cited pages on the company's own domain as website
// candidates.
func (b *Perplexity) fromCitations(citations []string, req enrich.SearchRequest) []model.ContactCandidate {
	var out []model.ContactCandidate
	for _, c := range citations {
		host := textnorm.Host(c)
		if !companyHost(host, req.ProspectCompany) || b.extractor.Skipped(host) {
			continue
		}
		out = append(out, model.NewContactCandidate(model.ContactWebsite, "https://"+host, scoreCitation,
			model.ConfidenceMedium, model.ExtractionContext{SourceURL: c}))
	}
	return out
}
