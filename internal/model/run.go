package model

import "time"

// EnrichmentRun is the audit record of one orchestration run.
type EnrichmentRun struct {
	ID          string              `json:"id"`
	ProspectID  string              `json:"prospect_id"`
	TriggeredBy TriggerSource       `json:"triggered_by"`
	Success     bool                `json:"success"`
	Score       float64             `json:"score"`
	Contacts    map[string][]string `json:"contacts,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorClass  string              `json:"error_class,omitempty"`
	DurationMs  int64               `json:"duration_ms"`
	CreatedAt   time.Time           `json:"created_at"`
}
