// Package textnorm folds and tokenizes names, companies and hostnames so that
// contact values can be compared against prospect identity.
package textnorm

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics ("Hélène" -> "helene").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokens splits the folded form of s on anything that is not a letter or
// digit and keeps tokens strictly longer than minLen.
func Tokens(s string, minLen int) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= minLen || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ContainsAny reports whether haystack contains any of the tokens.
func ContainsAny(haystack string, tokens []string) bool {
	h := Fold(haystack)
	for _, t := range tokens {
		if t != "" && strings.Contains(h, t) {
			return true
		}
	}
	return false
}

// Host returns the lower-cased hostname of rawURL without a leading "www.".
// A value without scheme is treated as http.
func Host(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SplitEmail returns the folded local part and domain of an address.
func SplitEmail(addr string) (local, domain string) {
	addr = strings.TrimSpace(addr)
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return Fold(addr), ""
	}
	return Fold(addr[:i]), strings.ToLower(addr[i+1:])
}

// DomainMatches reports whether host equals domain or is a subdomain of it.
func DomainMatches(host, domain string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
