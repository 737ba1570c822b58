package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/model"
)

func byKey(cands []model.ContactCandidate) map[string]model.ContactCandidate {
	out := make(map[string]model.ContactCandidate, len(cands))
	for _, c := range cands {
		out[c.Key()] = c
	}
	return out
}

func TestFromText(t *testing.T) {
	t.Parallel()

	text := `Cabinet Martin, 12 rue Victor Hugo 69002 Lyon.
Écrivez à Contact@Cabinet-Martin.fr ou appelez le 04 78 12 34 56.
International: +33 4 78 12 34 57. Site: https://www.cabinet-martin.fr/contact.
Logo: logo@2x.png, search https://www.google.com/search?q=martin`

	e := New("google.com")
	got := byKey(e.FromText(text, model.ExtractionContext{Backend: "jina_search", SourceURL: "https://example.org"}))

	email, ok := got["email:contact@cabinet-martin.fr"]
	require.True(t, ok, "%v", got)
	assert.InDelta(t, 60.0, email.ValidationScore, 0.001)
	assert.Equal(t, model.ConfidenceMedium, email.Confidence)
	assert.Equal(t, "jina_search", email.Context.Backend)

	assert.Contains(t, got, "phone:04 78 12 34 56")
	assert.Contains(t, got, "phone:+33 4 78 12 34 57")
	assert.Contains(t, got, "website:https://www.cabinet-martin.fr/contact")
	assert.NotContains(t, got, "email:logo@2x.png")
	for k := range got {
		assert.NotContains(t, k, "google.com")
	}
}

func TestFromText_ContactSectionBoost(t *testing.T) {
	t.Parallel()

	cands := New().FromText("mail: info@acme.fr", model.ExtractionContext{InContactSection: true})
	require.Len(t, cands, 1)
	assert.InDelta(t, 75.0, cands[0].ValidationScore, 0.001)
	assert.Equal(t, model.ConfidenceHigh, cands[0].Confidence)
	assert.True(t, cands[0].Context.InContactSection)
}

func TestFromText_RejectsShortNumbers(t *testing.T) {
	t.Parallel()

	cands := New().FromText("Code postal 69002, SIREN 0123 456, tel 01 23", model.ExtractionContext{})
	for _, c := range cands {
		assert.NotEqual(t, model.ContactPhone, c.Type, c.Value)
	}
}

func TestFromText_Dedupes(t *testing.T) {
	t.Parallel()

	cands := New().FromText("jean@acme.fr, JEAN@acme.fr; jean@acme.fr.", model.ExtractionContext{})
	require.Len(t, cands, 1)
	assert.Equal(t, "jean@acme.fr", cands[0].Value)
}

const page = `<html><head><title> Acme Conseil </title><style>.x{color:red}</style></head>
<body>
<nav><a href="/">Accueil</a></nav>
<h1>Bienvenue</h1>
<p>Nous accompagnons les PME. Commercial: ventes@acme-conseil.fr</p>
<script>var email = "tracker@analytics.io";</script>
<div id="contact-block">
  <h2>Contact</h2>
  <p>Standard : 01 42 00 00 01</p>
  <a href="mailto:Direction@acme-conseil.fr?subject=Bonjour">Écrire</a>
  <a href="tel:+33142000002">Appeler</a>
  <div class="contact-inner">Bureau &amp; accueil</div>
</div>
<footer>www.acme-conseil.fr</footer>
</body></html>`

func TestParseHTML(t *testing.T) {
	t.Parallel()

	doc, err := ParseHTML(page)
	require.NoError(t, err)
	assert.Equal(t, "Acme Conseil", doc.Title)
	assert.Equal(t, []string{"Direction@acme-conseil.fr"}, doc.Mailto)
	assert.Equal(t, []string{"+33142000002"}, doc.Tel)
	assert.Contains(t, doc.ContactText, "01 42 00 00 01")
	assert.Contains(t, doc.ContactText, "Bureau & accueil")
	assert.Contains(t, doc.ContactText, "www.acme-conseil.fr")
	assert.Equal(t, 1, countOf(doc.ContactText, "Bureau & accueil"))
	assert.NotContains(t, doc.Text, "tracker@analytics.io")
	assert.NotContains(t, doc.Text, "color:red")
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestFromHTML(t *testing.T) {
	t.Parallel()

	cands, err := New().FromHTML(page, model.ExtractionContext{SourceURL: "https://acme-conseil.fr", Backend: "web_scraper"})
	require.NoError(t, err)
	got := byKey(cands)

	link := got["email:direction@acme-conseil.fr"]
	assert.InDelta(t, 75.0, link.ValidationScore, 0.001)
	assert.Equal(t, model.ConfidenceHigh, link.Confidence)

	tel := got["phone:+33142000002"]
	assert.InDelta(t, 70.0, tel.ValidationScore, 0.001)

	std := got["phone:01 42 00 00 01"]
	assert.True(t, std.Context.InContactSection)
	assert.InDelta(t, 70.0, std.ValidationScore, 0.001)

	sales := got["email:ventes@acme-conseil.fr"]
	assert.False(t, sales.Context.InContactSection)
	assert.InDelta(t, 60.0, sales.ValidationScore, 0.001)

	site := got["website:www.acme-conseil.fr"]
	assert.Equal(t, model.ConfidenceMedium, site.Confidence)
	assert.NotContains(t, got, "email:tracker@analytics.io")
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world & co", PlainText("<p>Hello <b>world</b></p>   <span>&amp; co</span>"))
	assert.Empty(t, PlainText("<script>alert(1)</script>"))
}
