package model

// Rule names reported in ValidationOutcome.RuleScores.
const (
	RuleContactQuality    = "contact_quality"
	RuleContactDiversity  = "contact_diversity"
	RuleProspectRelevance = "prospect_relevance"
	RuleSourceReliability = "source_reliability"
)

// BatchValidThreshold is the overall score at which a batch of contacts is
// considered usable.
const BatchValidThreshold = 40.0

// ValidationOutcome is the aggregate result of validating a batch of
// candidates.
type ValidationOutcome struct {
	OverallScore float64            `json:"overall_score"`
	RuleScores   map[string]float64 `json:"rule_scores"`
	IsValid      bool               `json:"is_valid"`
	Messages     []string           `json:"validation_messages"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
}

// NewValidationOutcome builds an outcome whose validity follows
// BatchValidThreshold.
func NewValidationOutcome(overall float64, rules map[string]float64, messages []string, metadata map[string]any) ValidationOutcome {
	overall = ClampScore(overall)
	return ValidationOutcome{
		OverallScore: overall,
		RuleScores:   rules,
		IsValid:      overall >= BatchValidThreshold,
		Messages:     messages,
		Metadata:     metadata,
	}
}

// InvalidOutcome is a zero-score outcome carrying a single message.
func InvalidOutcome(message string) ValidationOutcome {
	return ValidationOutcome{
		OverallScore: 0,
		RuleScores:   map[string]float64{},
		IsValid:      false,
		Messages:     []string{message},
		Metadata:     map[string]any{},
	}
}

// WithValidity returns a copy with IsValid explicitly overridden.
func (o ValidationOutcome) WithValidity(valid bool) ValidationOutcome {
	o.IsValid = valid
	return o
}
