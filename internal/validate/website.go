package validate

import (
	"net/url"
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
)

type websiteValidator struct{}

func (websiteValidator) Type() model.ContactType { return model.ContactWebsite }
func (websiteValidator) MinScore() float64       { return minWebsite }

func (v websiteValidator) Score(c model.ContactCandidate, vctx Context) ContactScore {
	raw := strings.TrimSpace(c.Value)
	hasScheme := strings.Contains(raw, "://")
	target := raw
	if !hasScheme {
		target = "http://" + raw
	}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") || strings.ContainsAny(raw, " \t") {
		return rejected("invalid_url")
	}

	t := newTally(baseWebsite)
	t.add("valid_url", 20)

	if hasScheme && (u.Scheme == "http" || u.Scheme == "https") {
		t.add("web_scheme", 10)
	}

	host := textnorm.Host(target)
	if isSocialPlatform(host) {
		t.add("social_platform", 15)
	}
	if textnorm.ContainsAny(host, textnorm.Tokens(vctx.ProspectCompany, 3)) {
		t.add("company_domain_match", 30)
		t.out.CompanyMatch = true
	}

	applyContextual(t, c)
	return t.finish(v.MinScore())
}
