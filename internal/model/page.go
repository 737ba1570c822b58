package model

// CrawledPage is a page fetched by a scraper.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`
	HTML       string `json:"html,omitempty"`
	StatusCode int    `json:"status_code"`
	// ContactText is the text of the page's contact block, when the scraper
	// could isolate one.
	ContactText string `json:"contact_text,omitempty"`
}
