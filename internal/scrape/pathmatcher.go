package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip sections that rarely carry contact details.
var defaultExcludePatterns = []string{
	"/blog/*",
	"/news/*",
	"/actualites/*",
	"/press/*",
	"/careers/*",
	"/recrutement/*",
	"/tag/*",
}

// documentExtensions are never scraped, whatever the patterns say.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".zip": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".mp4": true,
}

// PathMatcher filters URLs based on glob-style path patterns. A pattern like
// "/blog/*" also matches multi-level paths like "/blog/deep/path".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns (e.g. "/blog/*", "/*.php").
// Falls back to default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{patterns: patterns}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether a URL is unparsable, points at a document or
// image, or matches an exclude pattern.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if documentExtensions[strings.ToLower(path.Ext(u.Path))] {
		return true
	}
	return m.isPathExcluded(u.Path)
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if matchSegmented(strings.ToLower(pattern), urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented tries path.Match first, then lets a pattern ending in "/*"
// match anything below its directory.
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	return false
}
