package validate

import (
	"strings"

	"github.com/sells-group/prospect-enrich/internal/model"
)

type phoneValidator struct{}

func (phoneValidator) Type() model.ContactType { return model.ContactPhone }
func (phoneValidator) MinScore() float64       { return minPhone }

func (v phoneValidator) Score(c model.ContactCandidate, _ Context) ContactScore {
	normalized := normalizePhone(c.Value)
	if normalized == "" {
		return rejected("no_digits")
	}

	t := newTally(basePhone)
	if n := len(normalized); n >= 10 && n <= 15 {
		t.add("valid_length", 15)
	} else {
		t.add("invalid_length", -25)
	}

	switch {
	case frenchPhone.MatchString(normalized) || frenchSpaced.MatchString(strings.TrimSpace(c.Value)):
		t.add("french_format", 25)
	case intlPhone.MatchString(normalized):
		t.add("international_format", 15)
	}

	applyContextual(t, c)
	return t.finish(v.MinScore())
}
