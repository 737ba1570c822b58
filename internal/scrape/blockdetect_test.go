package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare 403", 403, http.Header{"Cf-Ray": {"abc123"}}, "", BlockCloudflare},
		{"cloudflare 503 server", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"challenge page", 200, http.Header{}, "<html>Checking your browser before accessing</html>", BlockCloudflare},
		{"captcha", 200, http.Header{}, "<html><body>Please complete the reCAPTCHA to continue</body></html>", BlockCaptcha},
		{"js shell", 200, http.Header{}, "<html><noscript>Enable JavaScript to continue</noscript></html>", BlockJSShell},
		{"meta refresh", 200, http.Header{}, `<html><meta http-equiv="refresh" content="0;url=/x"></html>`, BlockJSShell},
		{"clean page", 200, http.Header{}, "<html><body>Welcome to Acme Corp. We build great products.</body></html>", BlockNone},
		{"plain 403", 403, http.Header{}, "<html><body>Forbidden</body></html>", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, bt := DetectBlock(tt.status, tt.header, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

func TestDetectBlock_ContactFormCaptcha(t *testing.T) {
	body := "<html><body><h1>Contact</h1>" + strings.Repeat("<p>Notre équipe vous répond sous 24h.</p>", 300) +
		`<form><div class="g-recaptcha"></div></form></body></html>`
	blocked, bt := DetectBlock(200, http.Header{}, []byte(body))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}
