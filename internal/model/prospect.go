package model

import "time"

// EnrichmentStatus tracks where a prospect is in its enrichment lifecycle.
type EnrichmentStatus string

const (
	EnrichmentNever     EnrichmentStatus = "never"
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
	EnrichmentSkipped   EnrichmentStatus = "skipped"
)

// ContactInfo holds the contact fields of a prospect record.
type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// Get returns the field for a contact type.
func (c ContactInfo) Get(t ContactType) string {
	switch t {
	case ContactEmail:
		return c.Email
	case ContactPhone:
		return c.Phone
	case ContactWebsite:
		return c.Website
	}
	return ""
}

// With returns a copy with the field for t set to value.
func (c ContactInfo) With(t ContactType, value string) ContactInfo {
	switch t {
	case ContactEmail:
		c.Email = value
	case ContactPhone:
		c.Phone = value
	case ContactWebsite:
		c.Website = value
	}
	return c
}

// EnrichmentState is the enrichment bookkeeping owned by a prospect.
type EnrichmentState struct {
	LastEnrichmentAt      *time.Time          `json:"last_enrichment_at,omitempty"`
	Attempts              int                 `json:"enrichment_attempts"`
	Status                EnrichmentStatus    `json:"enrichment_status"`
	Score                 float64             `json:"enrichment_score"`
	AutoEnrichEnabled     bool                `json:"auto_enrich_enabled"`
	BlacklistedAt         *time.Time          `json:"enrichment_blacklisted_at,omitempty"`
	Data                  map[string][]string `json:"enrichment_data,omitempty"`
	DataCompletenessScore float64             `json:"data_completeness_score"`
}

// NeverEnriched reports whether no enrichment has ever been recorded.
func (s EnrichmentState) NeverEnriched() bool {
	return s.LastEnrichmentAt == nil && (s.Status == "" || s.Status == EnrichmentNever)
}

// HasData reports whether any raw enrichment data has been stored.
func (s EnrichmentState) HasData() bool {
	for _, v := range s.Data {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Prospect is a sales lead record. Version is incremented on every write and
// used for optimistic concurrency control.
type Prospect struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Company    string          `json:"company"`
	City       string          `json:"city,omitempty"`
	Address    string          `json:"address,omitempty"`
	Contact    ContactInfo     `json:"contact_info"`
	Enrichment EnrichmentState `json:"enrichment"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
