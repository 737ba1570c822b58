package backend

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
	"github.com/sells-group/prospect-enrich/pkg/google"
)

// Place scores before rank decay. A listing whose name matches the company
// is trusted more.
const (
	placePhoneMatched   = 80
	placePhone          = 60
	placeWebsiteMatched = 75
	placeWebsite        = 50
	placeRankDecay      = 10
)

// PlacesConfig tunes the Google Places backend.
type PlacesConfig struct {
	LanguageCode string `mapstructure:"language_code" yaml:"language_code"`
	RegionCode   string `mapstructure:"region_code" yaml:"region_code"`
	MaxResults   int    `mapstructure:"max_results" yaml:"max_results"`
}

// Places looks the company up as a business listing and reports its phone
// number and website.
type Places struct {
	client google.Client
	cfg    PlacesConfig
}

// NewPlaces creates the backend.
func NewPlaces(client google.Client, cfg PlacesConfig) *Places {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &Places{client: client, cfg: cfg}
}

func (b *Places) Name() string { return NameGooglePlaces }

// query prefers the company; a lone person name is searched with the city.
func (b *Places) query(req enrich.SearchRequest) string {
	who := strings.TrimSpace(req.ProspectCompany)
	if who == "" {
		who = strings.TrimSpace(req.ProspectName)
	}
	if who == "" {
		return ""
	}
	if city := strings.TrimSpace(req.City); city != "" {
		return who + " " + city
	}
	return who
}

func (b *Places) Search(ctx context.Context, req enrich.SearchRequest) (*model.EnrichmentResult, error) {
	start := time.Now()
	q := b.query(req)
	if q == "" {
		return nil, eris.New("google_places: nothing to search for")
	}

	resp, err := b.client.TextSearch(ctx, google.TextSearchRequest{
		TextQuery:      q,
		LanguageCode:   b.cfg.LanguageCode,
		RegionCode:     b.cfg.RegionCode,
		MaxResultCount: b.cfg.MaxResults,
	})
	if err != nil {
		return nil, eris.Wrap(err, "google_places: text search")
	}

	var contacts []model.ContactCandidate
	matched := 0
	for i, place := range resp.Places {
		if i >= b.cfg.MaxResults {
			break
		}
		isMatch := placeMatches(place, req)
		if isMatch {
			matched++
		}
		contacts = append(contacts, placeContacts(place, i, isMatch, q)...)
	}

	return succeeded(NameGooglePlaces, req, contacts, map[string]any{
		"query":          q,
		"places":         len(resp.Places),
		"matched_places": matched,
	}, start), nil
}

func placeMatches(p google.Place, req enrich.SearchRequest) bool {
	who := req.ProspectCompany
	if strings.TrimSpace(who) == "" {
		who = req.ProspectName
	}
	return textnorm.ContainsAny(p.DisplayName.Text, textnorm.Tokens(who, 3))
}

func placeContacts(p google.Place, rank int, matched bool, query string) []model.ContactCandidate {
	ectx := model.ExtractionContext{SourceURL: p.GoogleMapsURI, Query: query}
	decay := float64(rank * placeRankDecay)

	phoneScore, webScore := float64(placePhone), float64(placeWebsite)
	confidence := model.ConfidenceMedium
	if matched {
		phoneScore, webScore = placePhoneMatched, placeWebsiteMatched
		confidence = model.ConfidenceHigh
	}

	var out []model.ContactCandidate
	if phone := strings.TrimSpace(p.Phone()); phone != "" {
		out = append(out, model.NewContactCandidate(model.ContactPhone, phone, phoneScore-decay, confidence, ectx))
	}
	if site := strings.TrimSpace(p.WebsiteURI); site != "" {
		out = append(out, model.NewContactCandidate(model.ContactWebsite, site, webScore-decay, confidence, ectx))
	}
	return out
}
