// Package extract finds contact candidates (emails, phone numbers, websites)
// in scraped pages, search snippets and free-form answers.
package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
)

// Backend-side scores assigned before rule validation.
const (
	scoreEmail          = 60
	scoreEmailLink      = 75
	scorePhone          = 55
	scorePhoneLink      = 70
	scoreWebsite        = 45
	contactSectionBonus = 15
)

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9][a-z0-9._%+\-]*@[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?)*\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+|\b00|\b0)\d(?:[\s.\-]?\(?\d{1,4}\)?){3,7}`)
	urlRe   = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'()\[\]{}|]+|\bwww\.[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}[^\s<>"'()\[\]{}|]*`)
	digitRe = regexp.MustCompile(`\d`)
)

// Asset extensions that regularly sneak into email matches ("logo@2x.png").
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// Extractor turns text and HTML into candidates. Hosts in its skip list
// (search engines, the scraping service itself) are never reported as websites.
type Extractor struct {
	skipHosts map[string]bool
}

// New creates an Extractor ignoring the given hosts as website candidates.
func New(skipHosts ...string) *Extractor {
	e := &Extractor{skipHosts: make(map[string]bool, len(skipHosts))}
	for _, h := range skipHosts {
		e.skipHosts[textnorm.Host(h)] = true
	}
	return e
}

// FromText extracts candidates from plain text or markdown.
func (e *Extractor) FromText(text string, ctx model.ExtractionContext) []model.ContactCandidate {
	var set candidateSet
	bonus := 0.0
	confidence := model.ConfidenceMedium
	if ctx.InContactSection {
		bonus = contactSectionBonus
		confidence = model.ConfidenceHigh
	}

	for _, m := range emailRe.FindAllString(text, -1) {
		if addr, ok := cleanEmail(m); ok {
			set.add(model.NewContactCandidate(model.ContactEmail, addr, scoreEmail+bonus, confidence, ctx))
		}
	}
	for _, m := range phoneRe.FindAllString(text, -1) {
		if num, ok := cleanPhone(m); ok {
			set.add(model.NewContactCandidate(model.ContactPhone, num, scorePhone+bonus, confidence, ctx))
		}
	}

	webConfidence := model.ConfidenceLow
	if ctx.InContactSection {
		webConfidence = model.ConfidenceMedium
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		if site, ok := e.cleanWebsite(m); ok {
			set.add(model.NewContactCandidate(model.ContactWebsite, site, scoreWebsite+bonus, webConfidence, ctx))
		}
	}
	return set.list
}

// FromHTML extracts candidates from a raw HTML page. Link targets rank above
// free-text matches; text inside a contact block is marked as such.
func (e *Extractor) FromHTML(raw string, ctx model.ExtractionContext) ([]model.ContactCandidate, error) {
	doc, err := ParseHTML(raw)
	if err != nil {
		return nil, err
	}
	return e.FromDocument(doc, ctx), nil
}

// FromDocument extracts candidates from an already parsed page.
func (e *Extractor) FromDocument(doc *Document, ctx model.ExtractionContext) []model.ContactCandidate {
	var set candidateSet

	for _, m := range doc.Mailto {
		if addr, ok := cleanEmail(m); ok {
			set.add(model.NewContactCandidate(model.ContactEmail, addr, scoreEmailLink, model.ConfidenceHigh, ctx))
		}
	}
	for _, m := range doc.Tel {
		if num, ok := cleanPhone(m); ok {
			set.add(model.NewContactCandidate(model.ContactPhone, num, scorePhoneLink, model.ConfidenceHigh, ctx))
		}
	}

	if doc.ContactText != "" {
		sectionCtx := ctx
		sectionCtx.InContactSection = true
		for _, c := range e.FromText(doc.ContactText, sectionCtx) {
			set.add(c)
		}
	}
	for _, c := range e.FromText(doc.Text, ctx) {
		set.add(c)
	}
	return set.list
}

// candidateSet keeps one candidate per key, preferring the higher score.
type candidateSet struct {
	list  []model.ContactCandidate
	index map[string]int
}

func (s *candidateSet) add(c model.ContactCandidate) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	k := c.Key()
	if i, ok := s.index[k]; ok {
		if c.ValidationScore > s.list[i].ValidationScore {
			s.list[i] = c
		}
		return
	}
	s.index[k] = len(s.list)
	s.list = append(s.list, c)
}

func cleanEmail(m string) (string, bool) {
	addr := strings.ToLower(strings.Trim(m, ".-_ "))
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(addr, suffix) {
			return "", false
		}
	}
	local, domain := textnorm.SplitEmail(addr)
	if local == "" || domain == "" || strings.Contains(domain, "..") {
		return "", false
	}
	return addr, true
}

// cleanPhone keeps numbers with 10 to 15 digits and tidies separators.
func cleanPhone(m string) (string, bool) {
	n := len(digitRe.FindAllString(m, -1))
	if n < 10 || n > 15 {
		return "", false
	}
	num := strings.Join(strings.Fields(strings.Trim(m, " .-")), " ")
	return num, true
}

// Skipped reports whether host is, or is under, one of the skip hosts.
func (e *Extractor) Skipped(host string) bool {
	for skip := range e.skipHosts {
		if textnorm.DomainMatches(host, skip) {
			return true
		}
	}
	return false
}

func (e *Extractor) cleanWebsite(m string) (string, bool) {
	site := strings.TrimRight(m, ".,;:!?*_")
	host := textnorm.Host(site)
	if host == "" || !strings.Contains(host, ".") || e.Skipped(host) {
		return "", false
	}
	return site, true
}
