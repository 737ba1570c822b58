package validate

import (
	"fmt"
	"math"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// Aggregate weights of the four rule scores.
const (
	weightQuality     = 0.40
	weightDiversity   = 0.20
	weightRelevance   = 0.25
	weightReliability = 0.15

	diversityPerType    = 30.0
	lowValidRatio       = 0.5
	lowValidRatioFactor = 0.8
)

const (
	msgNoContacts      = "No contacts to validate"
	msgNoValidContacts = "No valid contacts found after validation"
)

// Report pairs the aggregate outcome with each candidate's verdict, in input order.
type Report struct {
	Outcome model.ValidationOutcome
	Scores  []ContactScore
}

// Engine dispatches candidates to the validator registered for their type.
type Engine struct {
	validators map[model.ContactType]ContactValidator
}

// NewEngine returns an engine with the email, phone and website validators.
func NewEngine() *Engine {
	e := &Engine{validators: make(map[model.ContactType]ContactValidator)}
	for _, v := range []ContactValidator{emailValidator{}, phoneValidator{}, websiteValidator{}} {
		e.validators[v.Type()] = v
	}
	return e
}

// MinScore returns the per-candidate validity threshold for t.
func (e *Engine) MinScore(t model.ContactType) float64 {
	if v, ok := e.validators[t]; ok {
		return v.MinScore()
	}
	return math.Inf(1)
}

// ScoreContact scores a single candidate.
func (e *Engine) ScoreContact(c model.ContactCandidate, vctx Context) ContactScore {
	v, ok := e.validators[c.Type]
	if !ok {
		return rejected("unknown_type")
	}
	return v.Score(c, vctx)
}

// Validate scores candidates and aggregates them into an outcome.
func (e *Engine) Validate(candidates []model.ContactCandidate, vctx Context) model.ValidationOutcome {
	return e.Evaluate(candidates, vctx).Outcome
}

// Evaluate is Validate plus the per-candidate verdicts.
func (e *Engine) Evaluate(candidates []model.ContactCandidate, vctx Context) Report {
	if len(candidates) == 0 {
		return Report{Outcome: model.InvalidOutcome(msgNoContacts)}
	}

	scores := make([]ContactScore, len(candidates))
	var (
		validSum     float64
		validCount   int
		relevant     int
		reliable     int
		typesPresent = make(map[model.ContactType]bool)
	)
	for i, c := range candidates {
		s := e.ScoreContact(c, vctx)
		scores[i] = s
		if s.RelevanceBonus() {
			relevant++
		}
		if s.QualitySourceBonus() {
			reliable++
		}
		if s.Valid {
			validSum += s.Score
			validCount++
			typesPresent[c.Type] = true
		}
	}

	if validCount == 0 {
		return Report{Outcome: model.InvalidOutcome(msgNoValidContacts), Scores: scores}
	}

	total := float64(len(candidates))
	rules := map[string]float64{
		model.RuleContactQuality:    validSum / float64(validCount),
		model.RuleContactDiversity:  math.Min(100, float64(len(typesPresent))*diversityPerType),
		model.RuleProspectRelevance: 100 * float64(relevant) / total,
		model.RuleSourceReliability: 100 * float64(reliable) / total,
	}

	overall := rules[model.RuleContactQuality]*weightQuality +
		rules[model.RuleContactDiversity]*weightDiversity +
		rules[model.RuleProspectRelevance]*weightRelevance +
		rules[model.RuleSourceReliability]*weightReliability

	ratio := float64(validCount) / total
	penalized := ratio < lowValidRatio
	if penalized {
		overall *= lowValidRatioFactor
	}

	metadata := map[string]any{
		"validated_count": validCount,
		"total_count":     len(candidates),
		"valid_ratio":     ratio,
		"types":           len(typesPresent),
	}

	return Report{
		Outcome: model.NewValidationOutcome(overall, rules, buildMessages(validCount, len(candidates), rules, penalized), metadata),
		Scores:  scores,
	}
}

func buildMessages(valid, total int, rules map[string]float64, penalized bool) []string {
	msgs := []string{
		fmt.Sprintf("%d of %d contacts passed validation", valid, total),
		fmt.Sprintf("Average contact quality: %.1f/100", rules[model.RuleContactQuality]),
	}

	switch rel := rules[model.RuleProspectRelevance]; {
	case rel >= 50:
		msgs = append(msgs, "Contacts strongly match the prospect name or company")
	case rel == 0:
		msgs = append(msgs, "No contact matches the prospect name or company")
	}

	if rules[model.RuleContactDiversity] >= 60 {
		msgs = append(msgs, "Good diversity of contact types")
	} else {
		msgs = append(msgs, "Limited diversity of contact types")
	}

	if rules[model.RuleSourceReliability] >= 50 {
		msgs = append(msgs, "Most contacts come from reliable sources")
	}
	if penalized {
		msgs = append(msgs, "Fewer than half of the contacts passed validation; overall score reduced")
	}
	return msgs
}
