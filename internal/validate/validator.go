// Package validate scores discovered contacts against deterministic rules and
// aggregates them into a ValidationOutcome. It performs no I/O.
package validate

import (
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// Context identifies the prospect the contacts are meant to belong to.
type Context struct {
	ProspectName    string `json:"prospect_name"`
	ProspectCompany string `json:"prospect_company"`
}

// Adjustment is one rule's contribution to a contact score.
type Adjustment struct {
	Rule  string  `json:"rule"`
	Delta float64 `json:"delta"`
}

// ContactScore is the per-contact verdict.
type ContactScore struct {
	Score       float64      `json:"score"`
	Valid       bool         `json:"valid"`
	Rejected    string       `json:"rejected,omitempty"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`

	NameMatch      bool `json:"name_match,omitempty"`
	CompanyMatch   bool `json:"company_match,omitempty"`
	LinkedInSource bool `json:"linkedin_source,omitempty"`
	ContactSection bool `json:"found_in_contact_section,omitempty"`
}

// RelevanceBonus reports whether a name or company match was credited.
func (s ContactScore) RelevanceBonus() bool { return s.NameMatch || s.CompanyMatch }

// QualitySourceBonus reports whether a trusted-source bonus was credited.
func (s ContactScore) QualitySourceBonus() bool { return s.LinkedInSource || s.ContactSection }

// Details renders the score as a candidate's ValidationDetails map.
func (s ContactScore) Details() map[string]any {
	d := map[string]any{
		"rule_score": s.Score,
		"valid":      s.Valid,
	}
	if s.Rejected != "" {
		d["rejected"] = s.Rejected
	}
	for _, a := range s.Adjustments {
		d[a.Rule] = a.Delta
	}
	return d
}

// ContactValidator scores candidates of one contact type.
type ContactValidator interface {
	Type() model.ContactType
	MinScore() float64
	Score(c model.ContactCandidate, vctx Context) ContactScore
}

// tally accumulates rule adjustments on top of a base score.
type tally struct {
	score float64
	adj   []Adjustment
	out   ContactScore
}

func newTally(base float64) *tally {
	return &tally{score: base, adj: []Adjustment{{Rule: "base", Delta: base}}}
}

func (t *tally) add(rule string, delta float64) {
	t.score += delta
	t.adj = append(t.adj, Adjustment{Rule: rule, Delta: delta})
}

func (t *tally) finish(minScore float64) ContactScore {
	t.out.Score = model.ClampScore(t.score)
	t.out.Valid = t.out.Score >= minScore
	t.out.Adjustments = t.adj
	return t.out
}

func rejected(reason string) ContactScore {
	return ContactScore{Score: 0, Valid: false, Rejected: reason}
}

// applyContextual adds the bonuses shared by every contact type.
func applyContextual(t *tally, c model.ContactCandidate) {
	if strings.Contains(strings.ToLower(c.Context.SourceURL), "linkedin.com") {
		t.add("linkedin_source", 15)
		t.out.LinkedInSource = true
	}
	switch c.Confidence {
	case model.ConfidenceHigh:
		t.add("high_confidence", 10)
	case model.ConfidenceMedium:
		t.add("medium_confidence", 5)
	}
}
