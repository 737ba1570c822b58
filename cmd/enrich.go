package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/model"
)

var (
	enrichForce       bool
	enrichMaxContacts int
	enrichURLs        []string
	enrichBackends    []string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <prospect-id>",
	Short: "Enrich one prospect",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		opts, err := enrichOptions()
		if err != nil {
			return err
		}
		out, err := env.Service.EnrichProspect(ctx, args[0], opts)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		log := zap.L().With(zap.String("prospect_id", args[0]))
		switch {
		case out.Skipped:
			log.Info("enrichment skipped", zap.String("reason", string(out.Decision.Reason)))
		case out.Result != nil && !out.Result.Success:
			log.Warn("enrichment failed", zap.String("error", out.Result.Error))
		default:
			log.Info("enrichment complete", zap.Int("updated_fields", len(out.Updated)))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// enrichOptions builds the per-call options from the enrich flags.
func enrichOptions() (model.EnrichOptions, error) {
	opts := model.EnrichOptions{
		MaxContacts:  enrichMaxContacts,
		Force:        enrichForce,
		URLsToScrape: enrichURLs,
		TriggeredBy:  model.TriggerManual,
	}
	if len(enrichBackends) > 0 {
		opts.Backends = make(map[string]bool, len(cfg.Enrichment.Backends))
		for name := range cfg.Enrichment.Backends {
			opts.Backends[name] = false
		}
		for _, name := range enrichBackends {
			if _, ok := cfg.Enrichment.Backends[name]; !ok {
				return opts, eris.Errorf("unknown backend %q", name)
			}
			opts.Backends[name] = true
		}
	}
	return opts, nil
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "bypass the eligibility gate")
	enrichCmd.Flags().IntVar(&enrichMaxContacts, "max-contacts", 0, "max contacts to keep (default from config)")
	enrichCmd.Flags().StringSliceVar(&enrichURLs, "url", nil, "page to scrape for contacts (repeatable)")
	enrichCmd.Flags().StringSliceVar(&enrichBackends, "backend", nil, "only run these backends (repeatable)")
	rootCmd.AddCommand(enrichCmd)
}
