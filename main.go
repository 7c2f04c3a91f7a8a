// riftcoach watches a running League of Legends match through the local live client
// data API and pushes objective and wave timing tips to overlays.
//
// Usage:
//
//	riftcoach serve
//	riftcoach rules check ./rules
//	riftcoach snapshot
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riftcoach/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "riftcoach",
		Short:        "Live-game coaching tips for League of Legends",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(snapshotCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type bootstrap struct {
	cfg     *config.Config
	timings config.Timings
	logger  *zap.Logger
}

func loadRuntime() (bootstrap, error) {
	cfg, err := config.Load()
	if err != nil {
		return bootstrap{}, err
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		return bootstrap{}, err
	}
	timings, err := config.LoadTimings(cfg.TimingsFile)
	if err != nil {
		return bootstrap{}, err
	}
	return bootstrap{cfg: cfg, timings: timings, logger: logger}, nil
}
