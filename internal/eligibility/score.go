package eligibility

import (
	"math"
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
)

// completenessWeights lists profile fields in scoring order with their weight.
var completenessWeights = []struct {
	field  string
	weight float64
	has    func(p model.Prospect) bool
}{
	{"name", 15, func(p model.Prospect) bool { return present(p.Name) }},
	{"company", 15, func(p model.Prospect) bool { return present(p.Company) }},
	{"city", 10, func(p model.Prospect) bool { return present(p.City) }},
	{"address", 10, func(p model.Prospect) bool { return present(p.Address) }},
	{"email", 20, func(p model.Prospect) bool { return present(p.Contact.Email) }},
	{"phone", 15, func(p model.Prospect) bool { return present(p.Contact.Phone) }},
	{"website", 5, func(p model.Prospect) bool { return present(p.Contact.Website) }},
	{"enrichment_data", 10, func(p model.Prospect) bool { return p.Enrichment.HasData() }},
}

func present(s string) bool { return strings.TrimSpace(s) != "" }

// CompletenessScore rates how much profile and contact data p already has,
// 0 to 100.
func CompletenessScore(p model.Prospect) float64 {
	var score float64
	for _, w := range completenessWeights {
		if w.has(p) {
			score += w.weight
		}
	}
	return math.Min(score, 100)
}

// MissingData lists the fields that do not contribute to p's completeness.
func MissingData(p model.Prospect) []string {
	var missing []string
	for _, w := range completenessWeights {
		if !w.has(p) {
			missing = append(missing, w.field)
		}
	}
	return missing
}
