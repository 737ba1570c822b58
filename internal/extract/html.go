package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
)

// contactSelectors match the page regions that usually hold contact details.
const contactSelectors = `[id*="contact"], [class*="contact"], [id*="kontakt"], [class*="coordonnees"], address, footer`

// Document is the contact-relevant view of an HTML page.
type Document struct {
	Title       string
	Text        string
	ContactText string
	Mailto      []string
	Tel         []string
}

var (
	stripPolicy = newStripPolicy()
	spaceRe     = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe     = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
)

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// PlainText strips markup from raw HTML, dropping script and style content,
// and collapses whitespace.
func PlainText(raw string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(raw))
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(l, " "))
	}
	text = blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// ParseHTML reads a page into a Document: title, plain text, the text of any
// contact block, and mailto/tel link targets.
func ParseHTML(raw string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}

	d := &Document{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  PlainText(raw),
	}

	var blocks []string
	doc.Find(contactSelectors).Each(func(_ int, s *goquery.Selection) {
		// Nested matches would repeat their parent's text.
		if s.ParentsFiltered(contactSelectors).Length() > 0 {
			return
		}
		h, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		if t := PlainText(h); t != "" {
			blocks = append(blocks, t)
		}
	})
	d.ContactText = strings.Join(blocks, "\n\n")

	doc.Find(`a[href]`).Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr := href[len("mailto:"):]
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if addr = strings.TrimSpace(addr); addr != "" {
				d.Mailto = append(d.Mailto, addr)
			}
		case strings.HasPrefix(lower, "tel:"):
			if num := strings.TrimSpace(href[len("tel:"):]); num != "" {
				d.Tel = append(d.Tel, num)
			}
		}
	})
	return d, nil
}
