package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riftcoach/internal/auth"
	"riftcoach/internal/journal"
	liveapp "riftcoach/internal/livegame/application"
	"riftcoach/internal/observability/metrics"
	"riftcoach/internal/relay"
	"riftcoach/internal/stream"
	tipapp "riftcoach/internal/tips/application"
	tips "riftcoach/internal/tips/domain"
	"riftcoach/internal/tips/infrastructure/yamlsource"
	"riftcoach/internal/tips/notify"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the live client, evaluate tip rules and serve the overlay API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

type closer interface {
	Close()
}

func serve(parent context.Context, rt bootstrap) error {
	cfg, logger := rt.cfg, rt.logger
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	metrics.Init()

	aggregator, err := buildAggregator(rt)
	if err != nil {
		return fmt.Errorf("aggregator: %w", err)
	}

	// Workers started below drain their queues once ctx is cancelled.
	var workers []closer

	broker := stream.NewSSEBroker()
	hub := stream.NewHub(logger, cfg.HTTP.MaxWSConnections)
	sinks := []stream.Sink{broker, hub}
	if cfg.RelayEnabled() {
		client, err := relay.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher, err := relay.NewPublisher(client, relay.WithPrefix(cfg.Redis.ChannelPrefix), relay.WithLogger(logger))
		if err != nil {
			return err
		}
		publisher.Start(ctx)
		workers = append(workers, publisher)
		sinks = append(sinks, publisher)
		logger.Info("redis relay enabled", zap.String("addr", cfg.Redis.Addr), zap.String("prefix", cfg.Redis.ChannelPrefix))
	}
	fanout := stream.NewFanout(logger, sinks...)

	store := liveapp.NewSnapshotStore()
	poller, err := liveapp.NewPoller(aggregator, store, cfg.LiveClient.PollInterval,
		liveapp.WithPublisher(fanout),
		liveapp.WithPollerLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}

	tipNotifiers := notify.NewMultiNotifier(fanout)
	if cfg.WebhookEnabled() {
		webhook, err := buildWebhookNotifier(rt)
		if err != nil {
			return err
		}
		webhook.Start(ctx)
		workers = append(workers, webhook)
		tipNotifiers.Add(webhook)
		logger.Info("tip webhook enabled", zap.String("url", notify.RedactURL(cfg.Webhook.URL)))
	}
	if cfg.JournalEnabled() {
		db, err := journal.Open(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := journal.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
		journaler, err := journal.NewNotifier(repo, logger)
		if err != nil {
			return err
		}
		journaler.Start(ctx)
		workers = append(workers, journaler)
		tipNotifiers.Add(journaler)
		logger.Info("tip journal enabled")
	}

	engine, err := tipapp.NewEngine(tipNotifiers,
		tipapp.WithEngineLogger(logger),
		tipapp.WithWaveSchedule(rt.timings.Waves),
	)
	if err != nil {
		return fmt.Errorf("tips engine: %w", err)
	}
	loader, err := yamlsource.NewLoader(cfg.Rules.Dir, rt.timings.Objectives.Has, logger)
	if err != nil {
		return err
	}
	reloader, err := yamlsource.NewReloader(loader, engine, cfg.Rules.ReloadInterval, logger)
	if err != nil {
		return err
	}
	ticker, err := tipapp.NewTicker(engine, store, cfg.LiveClient.TickInterval)
	if err != nil {
		return err
	}

	api := &stream.API{
		Snapshots: store,
		Rules:     engine,
		Reloader:  reloader,
		Poller:    poller,
		Broker:    broker,
		Hub:       hub,
		WSConfig:  stream.DefaultWSConfig(),
		Logger:    logger,
	}
	var handler http.Handler = api.Routes()
	if cfg.AuthEnabled() {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), policy, logger).Wrap(handler)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, overlay API is unauthenticated")
	}
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           stream.LogRequests(handler, logger),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	go hub.Run(ctx)
	_ = reloader.Start(ctx)
	poller.Start(ctx)
	go ticker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("http server failed", zap.Error(serveErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	poller.Stop()
	cancel()
	<-hub.Done()
	for _, w := range workers {
		w.Close()
	}
	return serveErr
}

func buildWebhookNotifier(rt bootstrap) (*notify.WebhookNotifier, error) {
	cfg := rt.cfg.Webhook
	channel, err := notify.NewWebhookChannel(cfg.URL, notify.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	tpl, err := notify.NewTemplate(cfg.Template)
	if err != nil {
		return nil, err
	}
	severity, err := tips.ParseSeverity(cfg.MinSeverity)
	if err != nil {
		return nil, fmt.Errorf("TIP_WEBHOOK_MIN_SEVERITY: %w", err)
	}
	return notify.NewWebhookNotifier(channel, tpl,
		notify.WithLogger(rt.logger),
		notify.WithRateLimit(cfg.RatePerMin),
		notify.WithRequestTimeout(cfg.Timeout),
		notify.WithMinSeverity(severity),
	)
}
