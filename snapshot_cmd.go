package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"riftcoach/internal/assets"
	liveapp "riftcoach/internal/livegame/application"
	"riftcoach/internal/livegame/infrastructure/liveclient"
)

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Aggregate one snapshot and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			aggregator, err := buildAggregator(rt)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			snap, err := aggregator.Aggregate(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func buildAggregator(rt bootstrap) (*liveapp.Aggregator, error) {
	client, err := liveclient.NewClient(rt.cfg.LiveClient.URL, liveclient.WithTimeout(rt.cfg.LiveClient.Timeout))
	if err != nil {
		return nil, err
	}
	opts := []liveapp.AggregatorOption{
		liveapp.WithSchedule(rt.timings.Objectives),
		liveapp.WithLogger(rt.logger),
	}
	if rt.cfg.Assets.Enabled {
		catalog, err := assets.NewCatalog(rt.cfg.Assets.BaseURL,
			assets.WithLocale(rt.cfg.Assets.Locale),
			assets.WithTTL(rt.cfg.Assets.CacheTTL),
			assets.WithHTTPClient(&http.Client{Timeout: rt.cfg.Assets.Timeout}),
			assets.WithLogger(rt.logger),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, liveapp.WithIcons(catalog))
	}
	return liveapp.NewAggregator(client, opts...)
}
