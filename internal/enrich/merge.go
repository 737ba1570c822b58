package enrich

import (
	"strings"
	"time"

	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/model"
)

// MergeContacts fills empty contact fields from a successful result and
// reports which types it filled. A non-empty field is never replaced. Each
// empty field takes the best candidate of its type; equal scores go to the
// smallest key so the choice does not depend on backend order.
func MergeContacts(existing model.ContactInfo, result *model.EnrichmentResult) (model.ContactInfo, []model.ContactType) {
	if result == nil || !result.Success {
		return existing, nil
	}

	merged := existing
	var updated []model.ContactType
	for _, t := range model.AllContactTypes() {
		if strings.TrimSpace(existing.Get(t)) != "" {
			continue
		}
		best, ok := bestForMerge(result.ContactsOfType(t))
		if !ok {
			continue
		}
		merged = merged.With(t, best.Value)
		updated = append(updated, t)
	}
	return merged, updated
}

// bestForMerge returns the highest-scoring non-empty candidate, breaking
// ties on Key.
func bestForMerge(candidates []model.ContactCandidate) (model.ContactCandidate, bool) {
	var best model.ContactCandidate
	found := false
	for _, c := range candidates {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		if !found || c.ValidationScore > best.ValidationScore ||
			(c.ValidationScore == best.ValidationScore && c.Key() < best.Key()) {
			best = c
			found = true
		}
	}
	return best, found
}

// ApplyResult returns p updated with the outcome of an enrichment run:
// contacts merged, enrichment state stamped, discovered contacts appended to
// the enrichment data and completeness recomputed.
func ApplyResult(p model.Prospect, result *model.EnrichmentResult, now time.Time) (model.Prospect, []model.ContactType) {
	at := now
	p.Enrichment.LastEnrichmentAt = &at
	p.UpdatedAt = now

	var updated []model.ContactType
	if result == nil || !result.Success {
		p.Enrichment.Status = model.EnrichmentFailed
		p.Enrichment.Attempts++
	} else {
		p.Enrichment.Status = model.EnrichmentCompleted
		p.Contact, updated = MergeContacts(p.Contact, result)
	}
	if result != nil {
		p.Enrichment.Score = result.Validation.OverallScore
		p.Enrichment.Data = appendData(p.Enrichment.Data, result.ContactsGrouped())
	} else {
		p.Enrichment.Score = 0
	}

	p.Enrichment.DataCompletenessScore = eligibility.CompletenessScore(p)
	return p, updated
}

// appendData adds values per type, skipping ones already recorded
// (case-insensitively). The input map is not modified.
func appendData(data, add map[string][]string) map[string][]string {
	if len(add) == 0 {
		return data
	}
	out := make(map[string][]string, len(data)+len(add))
	for k, v := range data {
		out[k] = append([]string(nil), v...)
	}
	for k, values := range add {
		seen := make(map[string]bool, len(out[k]))
		for _, v := range out[k] {
			seen[strings.ToLower(v)] = true
		}
		for _, v := range values {
			if lv := strings.ToLower(v); !seen[lv] {
				seen[lv] = true
				out[k] = append(out[k], v)
			}
		}
	}
	return out
}
