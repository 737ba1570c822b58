package model

// TriggerSource records what started an enrichment run.
type TriggerSource string

const (
	TriggerManual TriggerSource = "manual"
	TriggerAuto   TriggerSource = "auto"
	TriggerAPI    TriggerSource = "api"
	TriggerBatch  TriggerSource = "batch"
)

// DefaultMaxContacts caps the selected contact subset when options leave it unset.
const DefaultMaxContacts = 10

// EnrichOptions are the per-call knobs recognised by the orchestrator.
type EnrichOptions struct {
	MaxContacts  int             `json:"max_contacts,omitempty"`
	Force        bool            `json:"force,omitempty"`
	URLsToScrape []string        `json:"urls_to_scrape,omitempty"`
	TriggeredBy  TriggerSource   `json:"triggered_by,omitempty"`
	Backends     map[string]bool `json:"backends,omitempty"` // per-call enable override by backend name
}

// EffectiveMaxContacts returns MaxContacts or the default when unset.
func (o EnrichOptions) EffectiveMaxContacts() int {
	if o.MaxContacts <= 0 {
		return DefaultMaxContacts
	}
	return o.MaxContacts
}

// Trigger returns TriggeredBy, defaulting to manual.
func (o EnrichOptions) Trigger() TriggerSource {
	if o.TriggeredBy == "" {
		return TriggerManual
	}
	return o.TriggeredBy
}
