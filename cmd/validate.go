package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/validate"
)

var (
	validateEmails   []string
	validatePhones   []string
	validateWebsites []string
	validateName     string
	validateCompany  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score contact values against the validation rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		candidates := validateCandidates()
		if len(candidates) == 0 {
			return eris.New("at least one of --email, --phone or --website is required")
		}

		report := validate.NewEngine().Evaluate(candidates, validate.Context{
			ProspectName:    validateName,
			ProspectCompany: validateCompany,
		})
		formatReport(os.Stdout, candidates, report)
		return nil
	},
}

func validateCandidates() []model.ContactCandidate {
	var out []model.ContactCandidate
	add := func(t model.ContactType, values []string) {
		for _, v := range values {
			out = append(out, model.NewContactCandidate(t, v, 0, model.ConfidenceMedium, model.ExtractionContext{Backend: "cli"}))
		}
	}
	add(model.ContactEmail, validateEmails)
	add(model.ContactPhone, validatePhones)
	add(model.ContactWebsite, validateWebsites)
	return out
}

// formatReport writes per-contact verdicts followed by the aggregate outcome.
func formatReport(out io.Writer, candidates []model.ContactCandidate, report validate.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Value", "Score", "Valid", "Rejected"})
	for i, sc := range report.Scores {
		t.AppendRow(table.Row{candidates[i].Type, candidates[i].Value, fmt.Sprintf("%.1f", sc.Score), sc.Valid, sc.Rejected})
	}
	t.Render()

	o := report.Outcome
	_, _ = fmt.Fprintf(out, "\nOverall: %.1f (valid: %t)\n", o.OverallScore, o.IsValid)
	for _, rule := range []string{model.RuleContactQuality, model.RuleContactDiversity, model.RuleProspectRelevance, model.RuleSourceReliability} {
		if v, ok := o.RuleScores[rule]; ok {
			_, _ = fmt.Fprintf(out, "  %-20s %.1f\n", rule, v)
		}
	}
	for _, m := range o.Messages {
		_, _ = fmt.Fprintf(out, "  - %s\n", m)
	}
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateEmails, "email", nil, "email address to score (repeatable)")
	validateCmd.Flags().StringSliceVar(&validatePhones, "phone", nil, "phone number to score (repeatable)")
	validateCmd.Flags().StringSliceVar(&validateWebsites, "website", nil, "website to score (repeatable)")
	validateCmd.Flags().StringVar(&validateName, "name", "", "prospect name")
	validateCmd.Flags().StringVar(&validateCompany, "company", "", "prospect company")
	rootCmd.AddCommand(validateCmd)
}
