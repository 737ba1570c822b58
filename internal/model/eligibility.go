package model

import "time"

// EligibilityReason explains an eligibility decision.
type EligibilityReason string

const (
	ReasonNeverEnriched      EligibilityReason = "never_enriched"
	ReasonPreviousFailure    EligibilityReason = "previous_failure"
	ReasonOutdatedEnrichment EligibilityReason = "outdated_enrichment"
	ReasonIncompleteData     EligibilityReason = "incomplete_data"
	ReasonRecentlyEnriched   EligibilityReason = "recently_enriched"
	ReasonCompleteData       EligibilityReason = "complete_data"
	ReasonBlacklisted        EligibilityReason = "blacklisted"
	ReasonDisabled           EligibilityReason = "disabled"
	ReasonInProgress         EligibilityReason = "in_progress"
	ReasonMaxAttemptsReached EligibilityReason = "max_attempts_reached"
	ReasonForced             EligibilityReason = "forced"
)

// Eligible reports whether the reason corresponds to an eligible decision.
func (r EligibilityReason) Eligible() bool {
	switch r {
	case ReasonNeverEnriched, ReasonPreviousFailure, ReasonOutdatedEnrichment, ReasonIncompleteData, ReasonForced:
		return true
	}
	return false
}

// Priority ranks eligible prospects.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DecisionDetails carries the facts a decision was based on.
type DecisionDetails struct {
	MissingData             []string `json:"missing_data"`
	DaysSinceLastEnrichment *int     `json:"days_since_last_enrichment,omitempty"`
	Attempts                int      `json:"enrichment_attempts"`
}

// EligibilityDecision is computed per call and never persisted.
type EligibilityDecision struct {
	IsEligible        bool              `json:"is_eligible"`
	Reason            EligibilityReason `json:"reason"`
	NextEligibleAt    *time.Time        `json:"next_eligible_at,omitempty"`
	CompletenessScore float64           `json:"completeness_score"`
	Priority          Priority          `json:"priority,omitempty"`
	Details           DecisionDetails   `json:"details"`
}
