package model

import (
	"sort"
	"time"
)

// EnrichmentResult is the outcome of one orchestration run or of a single
// backend call. Construct it with SuccessResult or FailureResult.
type EnrichmentResult struct {
	ProspectName    string             `json:"prospect_name"`
	ProspectCompany string             `json:"prospect_company"`
	Source          string             `json:"source"`
	Contacts        []ContactCandidate `json:"contacts"`
	Validation      ValidationOutcome  `json:"validation"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	ExecutionTime   time.Duration      `json:"execution_time"`
	Success         bool               `json:"success"`
	Error           string             `json:"error,omitempty"`
}

// SuccessResult builds a successful result.
func SuccessResult(name, company, source string, contacts []ContactCandidate, validation ValidationOutcome, metadata map[string]any, elapsed time.Duration) *EnrichmentResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &EnrichmentResult{
		ProspectName:    name,
		ProspectCompany: company,
		Source:          source,
		Contacts:        contacts,
		Validation:      validation,
		Metadata:        metadata,
		ExecutionTime:   elapsed,
		Success:         true,
	}
}

// FailureResult builds a failed result with no contacts.
func FailureResult(name, company, source, errMsg string, elapsed time.Duration) *EnrichmentResult {
	return &EnrichmentResult{
		ProspectName:    name,
		ProspectCompany: company,
		Source:          source,
		Validation:      InvalidOutcome(errMsg),
		Metadata:        map[string]any{},
		ExecutionTime:   elapsed,
		Success:         false,
		Error:           errMsg,
	}
}

// ExecutionMillis returns the execution time in milliseconds.
func (r *EnrichmentResult) ExecutionMillis() int64 {
	return r.ExecutionTime.Milliseconds()
}

// ContactsOfType returns the contacts of type t in result order.
func (r *EnrichmentResult) ContactsOfType(t ContactType) []ContactCandidate {
	var out []ContactCandidate
	for _, c := range r.Contacts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// BestOfType returns the highest-scoring contact of type t.
func (r *EnrichmentResult) BestOfType(t ContactType) (ContactCandidate, bool) {
	var best ContactCandidate
	found := false
	for _, c := range r.Contacts {
		if c.Type != t {
			continue
		}
		if !found || c.ValidationScore > best.ValidationScore {
			best = c
			found = true
		}
	}
	return best, found
}

// ContactsGrouped returns contact values grouped by type, each group sorted.
func (r *EnrichmentResult) ContactsGrouped() map[string][]string {
	out := make(map[string][]string)
	for _, c := range r.Contacts {
		out[string(c.Type)] = append(out[string(c.Type)], c.Value)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}
