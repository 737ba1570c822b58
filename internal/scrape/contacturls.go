package scrape

import (
	"net/url"
	"strings"
)

// DefaultContactPaths are the pages tried on a prospect's site when no URLs
// are given explicitly.
var DefaultContactPaths = []string{
	"/",
	"/contact",
	"/contact-us",
	"/nous-contacter",
	"/mentions-legales",
	"/about",
}

// ContactPageURLs expands a website into the candidate contact page URLs on
// the same host. Returns nil when the website cannot be parsed.
func ContactPageURLs(website string, paths []string) []string {
	website = strings.TrimSpace(website)
	if website == "" {
		return nil
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	base, err := url.Parse(website)
	if err != nil || base.Host == "" {
		return nil
	}
	if len(paths) == 0 {
		paths = DefaultContactPaths
	}

	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		u := url.URL{Scheme: base.Scheme, Host: base.Host, Path: p}
		s := u.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
