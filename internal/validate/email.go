package validate

import (
	"net/mail"
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/textnorm"
)

type emailValidator struct{}

func (emailValidator) Type() model.ContactType { return model.ContactEmail }
func (emailValidator) MinScore() float64       { return minEmail }

func (v emailValidator) Score(c model.ContactCandidate, vctx Context) ContactScore {
	if !validEmailFormat(c.Value) {
		return rejected("invalid_format")
	}

	t := newTally(baseEmail)
	t.add("valid_format", 20)

	local, domain := textnorm.SplitEmail(c.Value)
	switch {
	case isFreeDomain(domain):
		t.add("free_domain", -15)
	case isBusinessDomain(domain):
		t.add("business_domain", 25)
	}
	if isSuspicious(local, domain) {
		t.add("suspicious_pattern", -30)
	}

	if textnorm.ContainsAny(local, textnorm.Tokens(vctx.ProspectName, 2)) {
		t.add("name_match", 30)
		t.out.NameMatch = true
	}
	if textnorm.ContainsAny(domain, textnorm.Tokens(vctx.ProspectCompany, 3)) {
		t.add("company_domain_match", 35)
		t.out.CompanyMatch = true
	}
	if c.Context.InContactSection {
		t.add("found_in_contact_section", 20)
		t.out.ContactSection = true
	}

	applyContextual(t, c)
	return t.finish(v.MinScore())
}

// validEmailFormat accepts a bare addr-spec with a dotted domain.
func validEmailFormat(value string) bool {
	value = strings.TrimSpace(value)
	if !emailPattern.MatchString(value) {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && strings.EqualFold(addr.Address, value)
}
