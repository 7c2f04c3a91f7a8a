package yamlsource

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"riftcoach/internal/observability/metrics"
	tips "riftcoach/internal/tips/domain"
)

// DefaultPollInterval is how often the directory fingerprint is checked.
const DefaultPollInterval = 2 * time.Second

// RuleSink receives every successfully loaded rule set.
type RuleSink interface {
	SetRules(set *tips.RuleSet)
}

// Status describes the last reload attempt.
type Status struct {
	Dir       string    `json:"dir"`
	Files     int       `json:"files"`
	Documents int       `json:"documents"`
	Rules     int       `json:"rules"`
	Problems  []string  `json:"problems"`
	LastError string    `json:"lastError,omitempty"`
	LoadedAt  time.Time `json:"loadedAt"`
	AttemptAt time.Time `json:"attemptAt"`
}

// Reloader polls the rules directory and swaps the sink's rules when files change.
type Reloader struct {
	loader   *Loader
	sink     RuleSink
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	fingerprint string
	status      Status
}

// NewReloader constructs a Reloader.
func NewReloader(loader *Loader, sink RuleSink, interval time.Duration, logger *zap.Logger) (*Reloader, error) {
	if loader == nil {
		return nil, errors.New("yamlsource: nil loader")
	}
	if sink == nil {
		return nil, errors.New("yamlsource: nil rule sink")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		loader:   loader,
		sink:     sink,
		interval: interval,
		logger:   logger.Named("rules"),
		status:   Status{Dir: loader.Dir(), Problems: []string{}},
	}, nil
}

// Start performs the initial load and keeps polling until ctx is cancelled. The poll loop
// runs even when the initial load fails so a directory fixed later is picked up.
func (r *Reloader) Start(ctx context.Context) error {
	_, err := r.Reload(ctx)
	if err != nil {
		r.logger.Warn("initial rule load failed", zap.Error(err))
	}
	go r.pollLoop(ctx)
	return err
}

func (r *Reloader) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.checkAndReload(ctx); err != nil {
				r.logger.Warn("rule reload failed", zap.Error(err))
			}
		}
	}
}

func (r *Reloader) checkAndReload(ctx context.Context) error {
	fingerprint, err := r.loader.Fingerprint()
	if err != nil {
		return err
	}
	r.mu.Lock()
	unchanged := fingerprint == r.fingerprint
	r.mu.Unlock()
	if unchanged {
		return nil
	}
	_, err = r.Reload(ctx)
	return err
}

// Reload loads the directory now. When files exist but none is usable the previous
// rules stay active.
func (r *Reloader) Reload(_ context.Context) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.status.AttemptAt = now
	fingerprint, _ := r.loader.Fingerprint()
	r.fingerprint = fingerprint

	result, err := r.loader.Load()
	if err == nil && result.Files > 0 && result.Documents == 0 {
		err = ErrNoDocuments
	}
	if err != nil {
		metrics.ObserveRuleReload(metrics.ResultError, 0)
		r.status.LastError = err.Error()
		r.status.Problems = problemStrings(result.Problems)
		return r.status, err
	}

	r.sink.SetRules(result.Set)
	metrics.ObserveRuleReload(metrics.ResultSuccess, result.Set.Len())
	r.status = Status{
		Dir:       r.loader.Dir(),
		Files:     result.Files,
		Documents: result.Documents,
		Rules:     result.Set.Len(),
		Problems:  problemStrings(result.Problems),
		LoadedAt:  now,
		AttemptAt: now,
	}
	r.logger.Info("rules loaded",
		zap.Int("files", result.Files),
		zap.Int("rules", result.Set.Len()),
		zap.Int("problems", len(result.Problems)))
	return r.status, nil
}

// Status returns the last reload outcome.
func (r *Reloader) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.status
	status.Problems = append(make([]string, 0, len(r.status.Problems)), r.status.Problems...)
	return status
}

func problemStrings(problems []error) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Error())
	}
	return out
}
