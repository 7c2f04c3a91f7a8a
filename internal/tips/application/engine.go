package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	live "riftcoach/internal/livegame/domain"
	"riftcoach/internal/observability/metrics"
	tips "riftcoach/internal/tips/domain"
)

// DefaultSlack is the width in seconds of the window that closes at each lead time.
const DefaultSlack = 1.5

var errUnsupportedTrigger = errors.New("tips: unsupported trigger")

// Notifier receives emitted tips.
type Notifier interface {
	NotifyTip(ctx context.Context, tip tips.Tip)
}

// Clock provides wall time for throttling.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type throttleRecord struct {
	at       time.Time
	interval time.Duration
}

// Engine evaluates compiled rules against snapshots and emits tips.
type Engine struct {
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
	waves    tips.WaveSchedule
	slack    float64

	rulesMu sync.RWMutex
	rules   *tips.RuleSet

	mu           sync.Mutex
	fired        map[string]float64
	lastFired    map[string]throttleRecord
	lastGameTime float64
	hasBaseline  bool
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithRules seeds the initial rule set.
func WithRules(set *tips.RuleSet) EngineOption {
	return func(e *Engine) {
		if set != nil {
			e.rules = set
		}
	}
}

// WithEngineClock overrides the wall clock.
func WithEngineClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWaveSchedule overrides the cannon wave timings.
func WithWaveSchedule(schedule tips.WaveSchedule) EngineOption {
	return func(e *Engine) {
		e.waves = schedule
	}
}

// WithSlack overrides the firing window width.
func WithSlack(seconds float64) EngineOption {
	return func(e *Engine) {
		if seconds > 0 {
			e.slack = seconds
		}
	}
}

// NewEngine constructs an Engine.
func NewEngine(notifier Notifier, opts ...EngineOption) (*Engine, error) {
	if notifier == nil {
		return nil, errors.New("tips engine: nil notifier")
	}
	e := &Engine{
		notifier:  notifier,
		clock:     systemClock{},
		logger:    zap.NewNop(),
		waves:     tips.DefaultWaveSchedule(),
		slack:     DefaultSlack,
		rules:     &tips.RuleSet{},
		fired:     make(map[string]float64),
		lastFired: make(map[string]throttleRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("tips")
	return e, nil
}

// SetRules swaps the active rule set. Firing and throttle state survive the swap.
func (e *Engine) SetRules(set *tips.RuleSet) {
	if e == nil || set == nil {
		return
	}
	e.rulesMu.Lock()
	e.rules = set
	e.rulesMu.Unlock()
	e.logger.Info("rules applied", zap.Int("rules", set.Len()))
}

// Rules returns the active rule set.
func (e *Engine) Rules() *tips.RuleSet {
	if e == nil {
		return &tips.RuleSet{}
	}
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	return e.rules
}

// Tick evaluates every active rule against the snapshot and emits due tips.
// Error snapshots are ignored. A backwards game clock clears the firing history.
func (e *Engine) Tick(ctx context.Context, snap live.Snapshot) []tips.Tip {
	if e == nil || snap.Error {
		return nil
	}
	set := e.Rules()

	e.mu.Lock()
	now := snap.GameTime
	if e.hasBaseline && now < e.lastGameTime {
		e.fired = make(map[string]float64)
		metrics.IncClockReset()
		e.logger.Info("game clock went backwards, firing history cleared",
			zap.Float64("previous", e.lastGameTime), zap.Float64("now", now))
	}
	e.lastGameTime = now
	e.hasBaseline = true

	wall := e.clock.Now()
	var emitted []tips.Tip
	for _, rule := range set.Rules {
		if !rule.Active() || !rule.When.Applies(now, snap.GameMode) {
			continue
		}
		out, err := e.evaluate(rule, snap, wall)
		if err != nil {
			metrics.IncRuleError(rule.ID)
			e.logger.Warn("rule evaluation failed", zap.String("rule", rule.ID), zap.Error(err))
			continue
		}
		emitted = append(emitted, out...)
	}
	e.prune(now, wall)
	e.mu.Unlock()

	for _, tip := range emitted {
		e.notifier.NotifyTip(ctx, tip)
	}
	return emitted
}

// occurrence is one concrete future instance a trigger counts down to.
type occurrence struct {
	at        float64
	key       string
	objective string
	meta      map[string]any
}

func (e *Engine) occurrences(rule tips.CompiledRule, snap live.Snapshot) ([]occurrence, error) {
	switch trigger := rule.Trigger.(type) {
	case tips.CannonWave:
		waves := e.waves.Upcoming(snap.GameTime)
		out := make([]occurrence, 0, len(waves))
		for _, wave := range waves {
			out = append(out, occurrence{
				at:   wave.At,
				key:  fmt.Sprintf("wave:%d", wave.Index),
				meta: map[string]any{tips.MetaOccurrence: wave.Index},
			})
		}
		return out, nil
	case tips.ObjectiveSpawn:
		timer, ok := snap.Objectives[trigger.Objective]
		if !ok || timer.Despawned {
			return nil, nil
		}
		spawn := math.Round(timer.NextSpawnTime)
		return []occurrence{{
			at:        timer.NextSpawnTime,
			key:       fmt.Sprintf("%s:%d", trigger.Objective, int64(spawn)),
			objective: trigger.Objective,
			meta: map[string]any{
				tips.MetaSpawnAt:   timer.NextSpawnTime,
				tips.MetaObjective: trigger.Objective,
			},
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedTrigger, rule.Trigger)
	}
}

func (e *Engine) evaluate(rule tips.CompiledRule, snap live.Snapshot, wall time.Time) ([]tips.Tip, error) {
	occs, err := e.occurrences(rule, snap)
	if err != nil {
		return nil, err
	}
	var out []tips.Tip
	for _, occ := range occs {
		delta := occ.at - snap.GameTime
		for _, lead := range rule.Trigger.Leads() {
			if !e.inWindow(delta, lead) {
				continue
			}
			key := rule.ID + "|" + tips.FormatLead(lead) + "|" + occ.key
			if _, done := e.fired[key]; done {
				continue
			}
			if e.throttled(key, wall) {
				metrics.IncTipThrottled(rule.ID)
				e.logger.Debug("tip throttled", zap.String("rule", rule.ID), zap.String("key", key))
				continue
			}
			e.fired[key] = occ.at
			if rule.Throttle > 0 {
				e.lastFired[key] = throttleRecord{at: wall, interval: rule.Throttle}
			}
			tip := buildTip(rule, occ, lead, snap.GameTime, wall)
			metrics.IncTipEmitted(rule.ID, string(tip.Severity))
			out = append(out, tip)
		}
	}
	return out, nil
}

func (e *Engine) inWindow(delta, lead float64) bool {
	return delta > 0 && delta <= lead && delta > lead-e.slack
}

func (e *Engine) throttled(key string, wall time.Time) bool {
	record, ok := e.lastFired[key]
	if !ok {
		return false
	}
	return wall.Sub(record.at) < record.interval
}

// prune drops history for occurrences already passed and throttle windows already closed.
func (e *Engine) prune(now float64, wall time.Time) {
	for key, at := range e.fired {
		if at <= now {
			delete(e.fired, key)
		}
	}
	for key, record := range e.lastFired {
		if wall.Sub(record.at) >= record.interval {
			delete(e.lastFired, key)
		}
	}
}

func buildTip(rule tips.CompiledRule, occ occurrence, lead, gameTime float64, wall time.Time) tips.Tip {
	meta := map[string]any{
		tips.MetaModule:      rule.ModuleID,
		tips.MetaTrigger:     rule.Trigger.Type(),
		tips.MetaLeadSeconds: lead,
	}
	for k, v := range occ.meta {
		meta[k] = v
	}
	ch := rule.Channel
	return tips.Tip{
		ID:        rule.ID,
		Title:     tips.Render(ch.Title, lead, occ.objective),
		Body:      tips.Render(ch.Body, lead, occ.objective),
		Icon:      ch.Icon,
		Severity:  ch.Severity,
		StickyMs:  ch.StickyMs,
		GameTime:  gameTime,
		EmittedAt: wall,
		Metadata:  meta,
	}
}
