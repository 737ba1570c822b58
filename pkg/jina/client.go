// Package jina is a client for the Jina AI reader (r.jina.ai) and search
// (s.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-enrich/internal/resilience"
)

// Client reads pages and runs web searches through Jina.
type Client interface {
	// Read fetches targetURL through the reader and returns it as markdown.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search runs a web search. A query with no results yields an empty
	// response, not an error.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the reader endpoint's JSON envelope.
type ReadResponse struct {
	Code int  `json:"code"`
	Data Page `json:"data"`
}

// Page is one page of reader or search output.
type Page struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
}

// SearchResponse is the search endpoint's JSON envelope.
type SearchResponse struct {
	Code int    `json:"code"`
	Data []Page `json:"data"`
}

// SearchOption adjusts a search request.
type SearchOption func(*searchParams)

type searchParams struct {
	site     string
	country  string
	language string
	count    int
}

// WithSite restricts results to one domain.
func WithSite(domain string) SearchOption {
	return func(p *searchParams) { p.site = domain }
}

// WithLocale sets the gl/hl search locale, e.g. ("fr", "fr").
func WithLocale(country, language string) SearchOption {
	return func(p *searchParams) {
		p.country = country
		p.language = language
	}
}

// WithCount caps the number of results.
func WithCount(n int) SearchOption {
	return func(p *searchParams) { p.count = n }
}

// Option configures the client.
type Option func(*httpClient)

// WithReaderURL overrides the reader base URL.
func WithReaderURL(u string) Option {
	return func(c *httpClient) { c.readerURL = u }
}

// WithSearchURL overrides the search base URL.
func WithSearchURL(u string) Option {
	return func(c *httpClient) { c.searchURL = u }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey    string
	readerURL string
	searchURL string
	http      *http.Client
}

// NewClient creates a Jina client. apiKey may be empty for the free tier.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: "https://r.jina.ai",
		searchURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.readerURL+"/"+targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create read request")
	}
	req.Header.Set("X-Return-Format", "markdown")

	var out ReadResponse
	if _, err := c.do(req, &out); err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", targetURL)
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	var p searchParams
	for _, opt := range opts {
		opt(&p)
	}

	q := url.Values{}
	q.Set("q", query)
	if p.site != "" {
		q.Set("site", p.site)
	}
	if p.country != "" {
		q.Set("gl", p.country)
	}
	if p.language != "" {
		q.Set("hl", p.language)
	}
	if p.count > 0 {
		q.Set("num", strconv.Itoa(p.count))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create search request")
	}

	var out SearchResponse
	status, err := c.do(req, &out)
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}
	return &out, nil
}

func (c *httpClient) do(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, resilience.NewTransientError(eris.Wrap(err, "read body"), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, resilience.HTTPStatusError("jina", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, eris.Wrap(err, "decode response")
	}
	return resp.StatusCode, nil
}
