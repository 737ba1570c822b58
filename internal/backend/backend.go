// Package backend implements the contact discovery backends the enrichment
// orchestrator fans out to: Jina web search, Google Places, Perplexity and
// direct scraping of known pages.
package backend

import (
	"strings"
	"time"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
)

// Backend names, as used in configuration and result metadata.
const (
	NameJinaSearch   = "jina_search"
	NameGooglePlaces = "google_places"
	NamePerplexity   = "perplexity"
	NameWebScraper   = "web_scraper"
)

// Hosts never reported as a prospect's website.
var defaultSkipHosts = []string{
	"jina.ai",
	"google.com",
	"goo.gl",
	"perplexity.ai",
	"bing.com",
	"duckduckgo.com",
	"wikipedia.org",
	"pagesjaunes.fr",
	"societe.com",
	"pappers.fr",
	"infogreffe.fr",
	"verif.com",
	"schema.org",
	"w3.org",
}

// DefaultSkipHosts returns a copy of the hosts excluded from website
// candidates.
func DefaultSkipHosts() []string {
	return append([]string(nil), defaultSkipHosts...)
}

// subject is how a prospect is named in queries and prompts.
func subject(req enrich.SearchRequest) string {
	name := strings.TrimSpace(req.ProspectName)
	company := strings.TrimSpace(req.ProspectCompany)
	switch {
	case name != "" && company != "":
		return name + " (" + company + ")"
	case name != "":
		return name
	}
	return company
}

// companyHost reports whether host looks like it belongs to the company.
func companyHost(host, company string) bool {
	return host != "" && textnorm.ContainsAny(host, textnorm.Tokens(company, 3))
}

func succeeded(name string, req enrich.SearchRequest, contacts []model.ContactCandidate, metadata map[string]any, start time.Time) *model.EnrichmentResult {
	return model.SuccessResult(req.ProspectName, req.ProspectCompany, name,
		enrich.Dedupe(contacts), model.ValidationOutcome{}, metadata, time.Since(start))
}
