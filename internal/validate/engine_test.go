package validate

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-enrich/internal/model"
)

func email(v string) model.ContactCandidate {
	return model.NewContactCandidate(model.ContactEmail, v, 50, model.ConfidenceLow, model.ExtractionContext{})
}

func phone(v string) model.ContactCandidate {
	return model.NewContactCandidate(model.ContactPhone, v, 50, model.ConfidenceLow, model.ExtractionContext{})
}

func website(v string) model.ContactCandidate {
	return model.NewContactCandidate(model.ContactWebsite, v, 50, model.ConfidenceLow, model.ExtractionContext{})
}

var johnDoe = Context{ProspectName: "John Doe", ProspectCompany: "Test Company"}

func TestValidate_Empty(t *testing.T) {
	t.Parallel()

	out := NewEngine().Validate(nil, johnDoe)
	assert.Zero(t, out.OverallScore)
	assert.False(t, out.IsValid)
	assert.Equal(t, []string{"No contacts to validate"}, out.Messages)

	out = NewEngine().Validate([]model.ContactCandidate{}, Context{})
	assert.Zero(t, out.OverallScore)
	assert.False(t, out.IsValid)
}

func TestScenario_NameAndDomainMatch(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	c := email("john.doe@testcompany.com")

	s := e.ScoreContact(c, johnDoe)
	assert.Greater(t, s.Score, 80.0)
	assert.True(t, s.Valid)
	assert.True(t, s.NameMatch)
	assert.True(t, s.CompanyMatch)

	out := e.Validate([]model.ContactCandidate{c}, johnDoe)
	assert.True(t, out.IsValid)
	assert.Greater(t, out.RuleScores[model.RuleProspectRelevance], 50.0)
	assert.InDelta(t, 71.0, out.OverallScore, 0.001)
}

func TestScenario_FreeDomain(t *testing.T) {
	t.Parallel()

	s := NewEngine().ScoreContact(email("user@gmail.com"), Context{})
	assert.True(t, s.Valid)
	assert.Less(t, s.Score, 80.0)
	assert.InDelta(t, 55.0, s.Score, 0.001)
	assert.False(t, s.RelevanceBonus())
}

func TestScenario_InvalidEmail(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	s := e.ScoreContact(email("invalid-email"), johnDoe)
	assert.Zero(t, s.Score)
	assert.False(t, s.Valid)
	assert.Equal(t, "invalid_format", s.Rejected)

	out := e.Validate([]model.ContactCandidate{email("invalid-email")}, johnDoe)
	assert.False(t, out.IsValid)
	assert.Zero(t, out.OverallScore)
	assert.Equal(t, []string{"No valid contacts found after validation"}, out.Messages)
}

func TestScoreContact_Email(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	linkedin := model.ExtractionContext{SourceURL: "https://fr.linkedin.com/in/jane"}

	tests := []struct {
		name  string
		c     model.ContactCandidate
		vctx  Context
		score float64
		valid bool
	}{
		{"noreply penalised", email("noreply@acme.com"), Context{}, 65, true},
		{"example domain label", email("contact@example.com"), Context{}, 65, true},
		{"test as substring of domain is fine", email("sales@testcompany.com"), Context{}, 95, true},
		{"linkedin source high confidence", model.NewContactCandidate(model.ContactEmail, "jane@gmail.com", 10, model.ConfidenceHigh, linkedin), Context{}, 80, true},
		{"medium confidence", model.NewContactCandidate(model.ContactEmail, "jane@gmail.com", 10, model.ConfidenceMedium, model.ExtractionContext{}), Context{}, 60, true},
		{"contact section", model.NewContactCandidate(model.ContactEmail, "hello@yahoo.com", 10, model.ConfidenceLow, model.ExtractionContext{InContactSection: true}), Context{}, 75, true},
		{"accent folded name match", email("helene.martin@orange.fr"), Context{ProspectName: "Hélène Martin"}, 85, true},
		{"display name rejected", email("John <john@acme.com>"), Context{}, 0, false},
		{"free and suspicious", email("admin@hotmail.com"), Context{}, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := e.ScoreContact(tt.c, tt.vctx)
			assert.InDelta(t, tt.score, s.Score, 0.001)
			assert.Equal(t, tt.valid, s.Valid)
		})
	}
}

func TestScoreContact_Phone(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	tests := []struct {
		name  string
		value string
		score float64
		valid bool
	}{
		{"french spaced", "01 23 45 67 89", 100, true},
		{"french dotted", "01.23.45.67.89", 100, true},
		{"french international", "+33 1 23 45 67 89", 100, true},
		{"french international with trunk zero", "+33 (0)1 23 45 67 89", 100, true},
		{"us international", "+1 415 555 2671", 90, true},
		{"too short", "12345", 35, false},
		{"long local number", "4155552671", 75, true},
		{"letters only", "call us", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := e.ScoreContact(phone(tt.value), Context{})
			assert.InDelta(t, tt.score, s.Score, 0.001)
			assert.Equal(t, tt.valid, s.Valid)
		})
	}
}

func TestScoreContact_Website(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	tests := []struct {
		name  string
		value string
		vctx  Context
		score float64
		valid bool
	}{
		{"company domain with scheme", "https://www.testcompany.com", johnDoe, 100, true},
		{"company domain without scheme", "testcompany.com", johnDoe, 90, true},
		{"social platform", "https://linkedin.com/company/foo", Context{}, 85, true},
		{"non web scheme", "ftp://files.acme.com", Context{}, 60, true},
		{"spaces", "not a url", Context{}, 0, false},
		{"no host", "https://", Context{}, 0, false},
		{"no dot", "localhost", Context{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := e.ScoreContact(website(tt.value), tt.vctx)
			assert.InDelta(t, tt.score, s.Score, 0.001)
			assert.Equal(t, tt.valid, s.Valid)
		})
	}
}

func TestValidate_AggregatesRules(t *testing.T) {
	t.Parallel()

	cands := []model.ContactCandidate{
		email("john.doe@testcompany.com"),
		phone("01 23 45 67 89"),
		website("https://testcompany.com"),
	}
	out := NewEngine().Validate(cands, johnDoe)

	require.True(t, out.IsValid)
	assert.InDelta(t, 100.0, out.RuleScores[model.RuleContactQuality], 0.001)
	assert.InDelta(t, 90.0, out.RuleScores[model.RuleContactDiversity], 0.001)
	assert.InDelta(t, 200.0/3, out.RuleScores[model.RuleProspectRelevance], 0.001)
	assert.InDelta(t, 0.0, out.RuleScores[model.RuleSourceReliability], 0.001)
	assert.InDelta(t, 40+18+200.0/3*0.25, out.OverallScore, 0.001)
	assert.Equal(t, 3, out.Metadata["validated_count"])
	assert.Contains(t, out.Messages, "3 of 3 contacts passed validation")
	assert.Contains(t, out.Messages, "Good diversity of contact types")
}

func TestValidate_LowValidRatioPenalty(t *testing.T) {
	t.Parallel()

	cands := []model.ContactCandidate{
		email("user@gmail.com"),
		email("invalid-email"),
		phone("123"),
	}
	out := NewEngine().Validate(cands, Context{})

	assert.InDelta(t, (55*0.4+30*0.2)*0.8, out.OverallScore, 0.001)
	assert.False(t, out.IsValid)
	assert.Contains(t, out.Messages, "Fewer than half of the contacts passed validation; overall score reduced")
}

func TestValidate_ReliabilityFromContactSection(t *testing.T) {
	t.Parallel()

	c := model.NewContactCandidate(model.ContactEmail, "hello@yahoo.com", 10, model.ConfidenceLow, model.ExtractionContext{InContactSection: true})
	out := NewEngine().Validate([]model.ContactCandidate{c, phone("01 23 45 67 89")}, Context{})
	assert.InDelta(t, 50.0, out.RuleScores[model.RuleSourceReliability], 0.001)
	assert.Contains(t, out.Messages, "Most contacts come from reliable sources")
}

func TestEvaluate_ScoresAlignWithInput(t *testing.T) {
	t.Parallel()

	cands := []model.ContactCandidate{email("invalid"), phone("01 23 45 67 89")}
	rep := NewEngine().Evaluate(cands, Context{})
	require.Len(t, rep.Scores, 2)
	assert.False(t, rep.Scores[0].Valid)
	assert.True(t, rep.Scores[1].Valid)
	assert.Equal(t, 100.0, rep.Scores[1].Details()["rule_score"])
	assert.Equal(t, 15.0, rep.Scores[1].Details()["valid_length"])
}

func TestScoreContact_UnknownType(t *testing.T) {
	t.Parallel()
	c := model.ContactCandidate{Type: "fax", Value: "0102030405"}
	s := NewEngine().ScoreContact(c, Context{})
	assert.False(t, s.Valid)
	assert.Equal(t, "unknown_type", s.Rejected)
}

func TestScoreContact_AlwaysClamped(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	r := rand.New(rand.NewPCG(7, 11))

	values := map[model.ContactType][]string{
		model.ContactEmail:   {"john.doe@testcompany.com", "noreply@test.com", "x@gmail.com", "bad", "admin@example.fr"},
		model.ContactPhone:   {"01 23 45 67 89", "1", "+4915123456789", "", "++++"},
		model.ContactWebsite: {"https://testcompany.com", "linkedin.com/in/john", "::", "ftp://x.y", "a b"},
	}
	sources := []string{"", "https://linkedin.com/in/x", "https://acme.com/contact"}
	confidences := []model.ConfidenceLevel{model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh}
	types := model.AllContactTypes()

	for i := 0; i < 500; i++ {
		ct := types[r.IntN(len(types))]
		vs := values[ct]
		c := model.NewContactCandidate(ct, vs[r.IntN(len(vs))], r.Float64()*100, confidences[r.IntN(3)], model.ExtractionContext{
			SourceURL:        sources[r.IntN(len(sources))],
			InContactSection: r.IntN(2) == 0,
		})
		s := e.ScoreContact(c, johnDoe)
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 100.0)
		assert.Equal(t, s.Score >= e.MinScore(ct), s.Valid)
	}
}
