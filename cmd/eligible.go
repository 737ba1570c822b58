package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/model"
)

var eligibleLimit int

var eligibleCmd = &cobra.Command{
	Use:   "eligible",
	Short: "List prospects eligible for automatic enrichment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		gate := eligibility.NewGate(cfg.Eligibility)
		limit := eligibleLimit
		if limit <= 0 {
			limit = cfg.Batch.Limit
		}
		// Listing never runs the orchestrator.
		prospects, err := enrich.NewService(st, gate, nil).ListEligible(ctx, limit, cfg.Batch.ScanLimit)
		if err != nil {
			return eris.Wrap(err, "eligible")
		}

		if len(prospects) == 0 {
			fmt.Fprintln(os.Stderr, "No eligible prospects.")
			return nil
		}
		formatEligible(os.Stdout, prospects, gate)
		return nil
	},
}

// formatEligible writes a table of prospects and their decisions to w.
func formatEligible(out io.Writer, prospects []model.Prospect, gate *eligibility.Gate) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Company", "Reason", "Priority", "Completeness", "Attempts"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 30},
		{Number: 3, WidthMax: 30},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	for _, p := range prospects {
		d := gate.Decide(p)
		t.AppendRow(table.Row{
			truncateID(p.ID), p.Name, p.Company, d.Reason, d.Priority,
			fmt.Sprintf("%.0f", d.CompletenessScore), p.Enrichment.Attempts,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(prospects)})
	t.Render()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	eligibleCmd.Flags().IntVar(&eligibleLimit, "limit", 0, "max number of prospects to list (default from config)")
	rootCmd.AddCommand(eligibleCmd)
}
