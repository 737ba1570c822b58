package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantID        string
		wantContent   string
		wantCitations int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "contact@acme.fr"}}],
				"citations": ["https://acme.fr/contact", "https://annuaire.fr/acme"],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5}
			}`,
			wantID:        "cmpl-123",
			wantContent:   "contact@acme.fr",
			wantCitations: 2,
		},
		{
			name:          "rate_limit",
			status:        http.StatusTooManyRequests,
			body:          `{"error": "rate limit exceeded"}`,
			wantErr:       "status 429",
			wantTransient: true,
		},
		{
			name:          "server_error",
			status:        http.StatusInternalServerError,
			body:          `{"error": "internal server error"}`,
			wantErr:       "status 500",
			wantTransient: true,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error": "bad key"}`,
			wantErr: "status 401",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "Hi"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, resp.ID)
			assert.Equal(t, tt.wantContent, resp.Content())
			assert.Len(t, resp.Citations, tt.wantCitations)
		})
	}
}

func TestChatCompletion_DefaultModel(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sonar-pro", got.Model)
	assert.Empty(t, resp.Content())

	_, err = NewClient("k", WithBaseURL(srv.URL), WithModel("sonar")).ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sonar", got.Model)
}

func TestContent_Nil(t *testing.T) {
	var r *ChatCompletionResponse
	assert.Empty(t, r.Content())
}

func TestChatCompletion_SearchFilters(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL+"/")).ChatCompletion(context.Background(), ChatCompletionRequest{
		SearchDomainFilter:  ExcludeDomains("pagesjaunes.fr"),
		SearchRecencyFilter: "year",
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"-pagesjaunes.fr"}, got["search_domain_filter"])
	assert.Equal(t, "year", got["search_recency_filter"])

	got = nil
	_, err = NewClient("k", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.NotContains(t, got, "search_domain_filter")
	assert.NotContains(t, got, "search_recency_filter")
}

func TestExcludeDomains(t *testing.T) {
	assert.Nil(t, ExcludeDomains())
	assert.Equal(t, []string{"-a.fr", "-b.fr"}, ExcludeDomains(" a.fr", "", "-b.fr"))

	many := make([]string, 15)
	for i := range many {
		many[i] = string(rune('a'+i)) + ".fr"
	}
	assert.Len(t, ExcludeDomains(many...), 10)
}

func TestSources(t *testing.T) {
	var resp ChatCompletionResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"citations": ["https://acme.fr/contact", "https://annuaire.fr/acme"],
		"search_results": [
			{"title": "Acme - Contact", "url": "https://acme.fr/contact"},
			{"title": "Acme mentions légales", "url": "https://acme.fr/mentions-legales", "date": "2025-11-02"}
		]
	}`), &resp))

	assert.Equal(t, []string{
		"https://acme.fr/contact",
		"https://annuaire.fr/acme",
		"https://acme.fr/mentions-legales",
	}, resp.Sources())

	var nilResp *ChatCompletionResponse
	assert.Nil(t, nilResp.Sources())
}
