package validate

import (
	"regexp"
	"strings"
)

const (
	baseEmail   = 50.0
	basePhone   = 60.0
	baseWebsite = 40.0

	minEmail   = 40.0
	minPhone   = 50.0
	minWebsite = 30.0
)

var freeEmailDomains = map[string]bool{
	"gmail.com":        true,
	"yahoo.com":        true,
	"hotmail.com":      true,
	"outlook.com":      true,
	"free.fr":          true,
	"orange.fr":        true,
	"laposte.net":      true,
	"sfr.fr":           true,
	"wanadoo.fr":       true,
	"voila.fr":         true,
	"club-internet.fr": true,
}

var suspiciousPatterns = []string{
	"noreply", "no-reply", "donotreply", "postmaster", "admin", "webmaster", "test", "example",
}

var businessSuffixes = []string{
	".com", ".fr", ".net", ".org", ".eu", ".io", ".co", ".biz", ".pro",
	".de", ".be", ".ch", ".lu", ".uk", ".es", ".it", ".nl", ".ca", ".us",
}

var socialPlatforms = []string{
	"linkedin.com", "twitter.com", "facebook.com", "instagram.com", "youtube.com",
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9](?:[a-zA-Z0-9\-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9\-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)
	phoneStrip   = regexp.MustCompile(`[^0-9+]`)
	frenchPhone  = regexp.MustCompile(`^(?:\+33|0)[1-9][0-9]{8}$`)
	frenchSpaced = regexp.MustCompile(`^(?:\+33\s?|0)[1-9](?:[\s.\-]?[0-9]{2}){4}$`)
	intlPhone    = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

func isFreeDomain(domain string) bool {
	return freeEmailDomains[domain]
}

func isBusinessDomain(domain string) bool {
	if isFreeDomain(domain) {
		return false
	}
	for _, s := range businessSuffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}

// isSuspicious matches a pattern inside the local part, or as a whole label
// of the domain, so "testcompany.com" is not flagged but "test.com" is.
func isSuspicious(local, domain string) bool {
	labels := strings.FieldsFunc(domain, func(r rune) bool { return r == '.' || r == '-' })
	for _, p := range suspiciousPatterns {
		if strings.Contains(local, p) {
			return true
		}
		for _, l := range labels {
			if l == p {
				return true
			}
		}
	}
	return false
}

func isSocialPlatform(host string) bool {
	for _, p := range socialPlatforms {
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

// normalizePhone strips everything except digits and '+' and collapses the
// "+33 (0)1..." notation to "+331...".
func normalizePhone(raw string) string {
	n := phoneStrip.ReplaceAllString(raw, "")
	if strings.HasPrefix(n, "+330") {
		n = "+33" + n[4:]
	}
	return n
}
