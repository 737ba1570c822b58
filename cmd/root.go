package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/config"
	"github.com/sells-group/prospect-enrich/internal/eligibility"
)

var (
	cfg        *config.Config
	policyPath string
)

var rootCmd = &cobra.Command{
	Use:   "prospect-enrich",
	Short: "Prospect contact enrichment",
	Long:  "Finds, validates and merges email, phone and website contacts for sales prospects using web search, Google Places, Perplexity and page scraping.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		if policyPath != "" {
			policy, err := eligibility.LoadPolicy(policyPath)
			if err != nil {
				return err
			}
			cfg.Eligibility = policy
			zap.L().Debug("eligibility policy loaded", zap.String("path", policyPath))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "YAML file with an eligibility policy overriding config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
