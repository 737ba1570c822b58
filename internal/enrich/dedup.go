package enrich

import (
	"sort"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// Dedupe collapses candidates sharing a Key into one, keeping the higher
// ValidationScore. Ties fall to higher confidence, then the smaller backend
// name, then the smaller source URL, so the result does not depend on input
// order. Output is sorted by score descending, then key.
func Dedupe(candidates []model.ContactCandidate) []model.ContactCandidate {
	if len(candidates) == 0 {
		return nil
	}

	best := make(map[string]model.ContactCandidate, len(candidates))
	for _, c := range candidates {
		k := c.Key()
		if cur, ok := best[k]; !ok || preferred(c, cur) {
			best[k] = c
		}
	}

	out := make([]model.ContactCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

// preferred reports whether a should replace b for the same key.
func preferred(a, b model.ContactCandidate) bool {
	if a.ValidationScore != b.ValidationScore {
		return a.ValidationScore > b.ValidationScore
	}
	if ra, rb := a.Confidence.Rank(), b.Confidence.Rank(); ra != rb {
		return ra > rb
	}
	if a.Context.Backend != b.Context.Backend {
		return a.Context.Backend < b.Context.Backend
	}
	if a.Context.SourceURL != b.Context.SourceURL {
		return a.Context.SourceURL < b.Context.SourceURL
	}
	return a.Value < b.Value
}

// sortCandidates orders by ValidationScore descending, then Key ascending.
func sortCandidates(cs []model.ContactCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].ValidationScore != cs[j].ValidationScore {
			return cs[i].ValidationScore > cs[j].ValidationScore
		}
		return cs[i].Key() < cs[j].Key()
	})
}
