package enrich

import (
	"github.com/sells-group/prospect-enrich/internal/model"
)

// Selection defaults.
const (
	DefaultPerTypeCap     = 3
	DefaultHighScoreAbove = 70.0
)

// SelectionPolicy bounds the best-subset selection. PerTypeCap limits how
// many candidates of one type are taken; a candidate scoring above
// HighScoreAbove is admitted past the cap while capacity remains.
type SelectionPolicy struct {
	MaxContacts    int
	PerTypeCap     int
	HighScoreAbove float64
}

func (p SelectionPolicy) withDefaults() SelectionPolicy {
	if p.MaxContacts <= 0 {
		p.MaxContacts = model.DefaultMaxContacts
	}
	if p.PerTypeCap <= 0 {
		p.PerTypeCap = DefaultPerTypeCap
	}
	if p.HighScoreAbove <= 0 {
		p.HighScoreAbove = DefaultHighScoreAbove
	}
	return p
}

// SelectBest greedily picks at most MaxContacts candidates, best score first.
// The input is not modified.
func SelectBest(candidates []model.ContactCandidate, policy SelectionPolicy) []model.ContactCandidate {
	policy = policy.withDefaults()

	ranked := make([]model.ContactCandidate, len(candidates))
	copy(ranked, candidates)
	sortCandidates(ranked)

	perType := make(map[model.ContactType]int)
	var out []model.ContactCandidate
	for _, c := range ranked {
		if len(out) >= policy.MaxContacts {
			break
		}
		if perType[c.Type] >= policy.PerTypeCap && c.ValidationScore <= policy.HighScoreAbove {
			continue
		}
		perType[c.Type]++
		out = append(out, c)
	}
	return out
}
