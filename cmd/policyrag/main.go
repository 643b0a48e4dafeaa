package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"policyrag/internal/app"
	"policyrag/internal/config"
	"policyrag/internal/logging"
)

var cfgPath string

func main() {
	_ = godotenv.Load()

	var root = &cobra.Command{
		Use:           "policyrag",
		Short:         "Answer questions over a folder of policy documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml or ~/.config/policyrag/config.yaml)")
	root.AddCommand(serveCMD(), reindexCMD(), askCMD(), chatCMD())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// bootstrap loads configuration, builds the logger and assembles the pipeline.
func bootstrap(console bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Logging, console)
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble pipeline")
		return nil, err
	}
	return a, nil
}
