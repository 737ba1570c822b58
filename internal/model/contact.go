package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ContactType is the closed set of contact kinds the pipeline discovers.
type ContactType string

const (
	ContactEmail   ContactType = "email"
	ContactPhone   ContactType = "phone"
	ContactWebsite ContactType = "website"
)

// AllContactTypes returns every contact type in canonical order.
func AllContactTypes() []ContactType {
	return []ContactType{ContactEmail, ContactPhone, ContactWebsite}
}

// ParseContactType converts a raw string into a ContactType.
func ParseContactType(s string) (ContactType, error) {
	switch ContactType(strings.ToLower(strings.TrimSpace(s))) {
	case ContactEmail:
		return ContactEmail, nil
	case ContactPhone:
		return ContactPhone, nil
	case ContactWebsite:
		return ContactWebsite, nil
	}
	return "", eris.Errorf("model: unknown contact type %q", s)
}

// ConfidenceLevel is the producing backend's own trust in a candidate.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Rank orders confidence levels: high > medium > low > unknown.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// ExtractionContext describes where a candidate was found. All fields are
// informational; none is required.
type ExtractionContext struct {
	SourceURL        string `json:"source_url,omitempty"`
	InContactSection bool   `json:"in_contact_section,omitempty"`
	Backend          string `json:"backend,omitempty"`
	Query            string `json:"query,omitempty"`
}

// ContactCandidate is one discovered contact value. Treat it as a value:
// the With* helpers return modified copies.
type ContactCandidate struct {
	Type              ContactType       `json:"type"`
	Value             string            `json:"value"`
	ValidationScore   float64           `json:"validation_score"`
	Confidence        ConfidenceLevel   `json:"confidence_level"`
	Context           ExtractionContext `json:"context"`
	ValidationDetails map[string]any    `json:"validation_details,omitempty"`
}

// NewContactCandidate builds a candidate with its score clamped to [0,100].
func NewContactCandidate(t ContactType, value string, score float64, confidence ConfidenceLevel, ctx ExtractionContext) ContactCandidate {
	return ContactCandidate{
		Type:            t,
		Value:           strings.TrimSpace(value),
		ValidationScore: ClampScore(score),
		Confidence:      confidence,
		Context:         ctx,
	}
}

// Key is the deduplication key: lowercase "type:value".
func (c ContactCandidate) Key() string {
	return strings.ToLower(string(c.Type) + ":" + strings.TrimSpace(c.Value))
}

// WithBackend returns a copy tagged with the originating backend.
func (c ContactCandidate) WithBackend(name string) ContactCandidate {
	c.Context.Backend = name
	return c
}

// WithDetails returns a copy carrying the given validation details.
func (c ContactCandidate) WithDetails(details map[string]any) ContactCandidate {
	cp := make(map[string]any, len(details))
	for k, v := range details {
		cp[k] = v
	}
	c.ValidationDetails = cp
	return c
}

// ClampScore bounds a score to [0,100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
