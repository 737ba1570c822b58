// Package eligibility decides whether a prospect should be (re-)enriched now
// and scores how complete its profile already is.
package eligibility

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy holds the thresholds the gate applies.
type Policy struct {
	RefreshAfterDays     int     `yaml:"refresh_after_days" mapstructure:"refresh_after_days" json:"refresh_after_days"`
	MinCompletenessScore float64 `yaml:"min_completeness_score" mapstructure:"min_completeness_score" json:"min_completeness_score"`
	MaxAttempts          int     `yaml:"max_attempts" mapstructure:"max_attempts" json:"max_attempts"`
	ForceMode            bool    `yaml:"force_mode" mapstructure:"force_mode" json:"force_mode"`
}

// DefaultPolicy returns the stock thresholds: refresh after 30 days, skip at
// 80% completeness, give up after 3 failed attempts.
func DefaultPolicy() Policy {
	return Policy{
		RefreshAfterDays:     30,
		MinCompletenessScore: 80,
		MaxAttempts:          3,
	}
}

// WithDefaults fills zero-valued thresholds from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	if p.RefreshAfterDays <= 0 {
		p.RefreshAfterDays = d.RefreshAfterDays
	}
	if p.MinCompletenessScore <= 0 {
		p.MinCompletenessScore = d.MinCompletenessScore
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	return p
}

// LoadPolicy reads a policy from a YAML file with a top-level "eligibility" key.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "eligibility: read policy %s", path)
	}

	var wrapper struct {
		Eligibility Policy `yaml:"eligibility"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Policy{}, eris.Wrap(err, "eligibility: parse policy")
	}
	return wrapper.Eligibility.WithDefaults(), nil
}
