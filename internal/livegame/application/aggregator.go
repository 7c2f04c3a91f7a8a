package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"riftcoach/internal/livegame/domain"
	"riftcoach/internal/livegame/identity"
	"riftcoach/internal/livegame/objectives"
	"riftcoach/internal/observability/metrics"
)

// ErrCoreDataset marks a failure of one of the four datasets a snapshot cannot be built without.
var ErrCoreDataset = errors.New("aggregator: core dataset unavailable")

var errNoCandidates = errors.New("aggregator: no identity candidates")

const (
	EndpointScores = "playerscores"
	EndpointItems  = "playeritems"
	EndpointSpells = "playersummonerspells"
	EndpointRunes  = "playermainrunes"
)

const defaultEnrichTimeout = 2 * time.Second

// Aggregator builds one normalized snapshot per call from the live client.
type Aggregator struct {
	client        LiveClient
	icons         IconResolver
	schedule      objectives.Schedule
	clock         Clock
	logger        *zap.Logger
	enrichTimeout time.Duration
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithIcons enables best-effort icon enrichment.
func WithIcons(icons IconResolver) AggregatorOption {
	return func(a *Aggregator) {
		a.icons = icons
	}
}

// WithSchedule overrides the objective schedule.
func WithSchedule(schedule objectives.Schedule) AggregatorOption {
	return func(a *Aggregator) {
		if len(schedule.Objectives) > 0 {
			a.schedule = schedule
		}
	}
}

// WithClock overrides the clock used for fetchedAt.
func WithClock(clock Clock) AggregatorOption {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithEnrichTimeout bounds the whole enrichment stage.
func WithEnrichTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.enrichTimeout = timeout
		}
	}
}

// NewAggregator constructs an Aggregator.
func NewAggregator(client LiveClient, opts ...AggregatorOption) (*Aggregator, error) {
	if client == nil {
		return nil, errors.New("aggregator: nil live client")
	}
	a := &Aggregator{
		client:        client,
		schedule:      objectives.DefaultSchedule(),
		clock:         systemClock{},
		logger:        zap.NewNop(),
		enrichTimeout: defaultEnrichTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("aggregator")
	return a, nil
}

// Schedule returns the objective schedule in use.
func (a *Aggregator) Schedule() objectives.Schedule {
	if a == nil {
		return objectives.DefaultSchedule()
	}
	return a.schedule
}

type coreData struct {
	stats  domain.GameStats
	events domain.EventLog
	active domain.ActiveIdentity
	roster []domain.RosterEntry
}

type localData struct {
	player    *domain.ActivePlayer
	abilities *domain.AbilitySet
}

type keyedData struct {
	scores *domain.Scores
	items  []domain.UpstreamItem
	spells *domain.SummonerSpells
	runes  *domain.MainRunes
}

// Aggregate fetches every dataset and merges them into a snapshot. Only a failure of a
// core dataset returns an error; everything else degrades to absent fields.
func (a *Aggregator) Aggregate(ctx context.Context) (domain.Snapshot, error) {
	if a == nil {
		return domain.Snapshot{}, errors.New("aggregator: nil")
	}
	core, local, err := a.fetchCore(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	res := identity.Resolve(core.active, core.roster)
	keyed, accepted := a.fetchKeyed(ctx, res.Candidates)

	snap := domain.EmptySnapshot()
	snap.GameTime = core.stats.GameTime
	snap.GameClock = domain.FormatClock(core.stats.GameTime)
	snap.GameMode = core.stats.GameMode
	snap.GameModeName = domain.GameModeName(core.stats.GameMode)
	snap.MapName = core.stats.MapName
	snap.FetchedAt = a.clock.Now().UTC()
	snap.Identity = domain.IdentityDiagnostics{Candidates: res.Candidates, AcceptedBy: accepted}
	snap.Objectives = objectives.Compute(core.stats.GameTime, core.events.Events, a.schedule)
	snap.Teams = TallyTeams(core.roster, core.events.Events)
	snap.Equipment = domain.NormalizeEquipment(convertItems(keyed.items))
	snap.Abilities = convertAbilities(local.abilities)
	snap.Spells = convertSpells(keyed.spells)
	snap.Runes = convertRunes(keyed.runes)
	snap.Player = buildPlayer(res.Entry, core.active, local.player, keyed.scores)
	if snap.Player != nil {
		var teamKills int
		if team := snap.Teams.Team(snap.Player.Team); team != nil {
			teamKills = team.Kills
		}
		DeriveRates(snap.Player, core.stats.GameTime, teamKills)
	}

	if a.icons != nil {
		a.enrich(ctx, &snap, res.Entry, keyed.spells)
	}
	return snap, nil
}

func (a *Aggregator) fetchCore(ctx context.Context) (coreData, localData, error) {
	var core coreData
	var local localData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := a.client.GameStats(gctx)
		if err != nil {
			return fmt.Errorf("%w: gamestats: %w", ErrCoreDataset, err)
		}
		core.stats = stats
		return nil
	})
	g.Go(func() error {
		events, err := a.client.EventLog(gctx)
		if err != nil {
			return fmt.Errorf("%w: eventdata: %w", ErrCoreDataset, err)
		}
		core.events = events
		return nil
	})
	g.Go(func() error {
		active, err := a.client.ActivePlayerName(gctx)
		if err != nil {
			return fmt.Errorf("%w: activeplayername: %w", ErrCoreDataset, err)
		}
		core.active = active
		return nil
	})
	g.Go(func() error {
		roster, err := a.client.PlayerList(gctx)
		if err != nil {
			return fmt.Errorf("%w: playerlist: %w", ErrCoreDataset, err)
		}
		core.roster = roster
		return nil
	})
	g.Go(func() error {
		player, err := a.client.ActivePlayer(gctx)
		if err != nil {
			a.logger.Debug("active player unavailable", zap.Error(err))
			return nil
		}
		local.player = &player
		return nil
	})
	g.Go(func() error {
		abilities, err := a.client.ActivePlayerAbilities(gctx)
		if err != nil {
			a.logger.Debug("abilities unavailable", zap.Error(err))
			return nil
		}
		local.abilities = &abilities
		return nil
	})
	if err := g.Wait(); err != nil {
		return coreData{}, localData{}, err
	}
	return core, local, nil
}

func (a *Aggregator) fetchKeyed(ctx context.Context, candidates []string) (keyedData, map[string]string) {
	var keyed keyedData
	var mu sync.Mutex
	accepted := make(map[string]string, 4)
	record := func(endpoint, candidate string, err error) bool {
		if err != nil {
			a.logger.Debug("identity-keyed endpoint unavailable",
				zap.String("endpoint", endpoint), zap.Int("candidates", len(candidates)), zap.Error(err))
			return false
		}
		mu.Lock()
		accepted[endpoint] = candidate
		mu.Unlock()
		return true
	}

	var g errgroup.Group
	g.Go(func() error {
		scores, by, err := tryCandidates(ctx, EndpointScores, candidates, a.client.PlayerScores)
		if record(EndpointScores, by, err) {
			keyed.scores = &scores
		}
		return nil
	})
	g.Go(func() error {
		items, by, err := tryCandidates(ctx, EndpointItems, candidates, a.client.PlayerItems)
		if record(EndpointItems, by, err) {
			keyed.items = items
		}
		return nil
	})
	g.Go(func() error {
		spells, by, err := tryCandidates(ctx, EndpointSpells, candidates, a.client.PlayerSummonerSpells)
		if record(EndpointSpells, by, err) {
			keyed.spells = &spells
		}
		return nil
	})
	g.Go(func() error {
		runes, by, err := tryCandidates(ctx, EndpointRunes, candidates, a.client.PlayerMainRunes)
		if record(EndpointRunes, by, err) {
			keyed.runes = &runes
		}
		return nil
	})
	_ = g.Wait()
	return keyed, accepted
}

// tryCandidates calls fetch with each candidate in order and returns the first success
// together with the candidate that produced it.
func tryCandidates[T any](ctx context.Context, endpoint string, candidates []string, fetch func(context.Context, string) (T, error)) (T, string, error) {
	var zero T
	lastErr := errNoCandidates
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		value, err := fetch(ctx, candidate)
		if err == nil {
			metrics.IncIdentityAttempt(endpoint, metrics.ResultSuccess)
			return value, candidate, nil
		}
		metrics.IncIdentityAttempt(endpoint, metrics.ResultError)
		lastErr = err
	}
	return zero, "", lastErr
}

func buildPlayer(entry *domain.RosterEntry, active domain.ActiveIdentity, player *domain.ActivePlayer, scores *domain.Scores) *domain.LocalPlayer {
	if entry == nil && player == nil && active.Raw == "" {
		return nil
	}
	p := &domain.LocalPlayer{
		RiotID:   active.Raw,
		GameName: active.Name,
		TagLine:  active.Tag,
	}
	if entry != nil {
		if id := entry.DisplayID(); id != "" {
			p.RiotID = id
		}
		if name := strings.TrimSpace(entry.RiotIDGameName); name != "" {
			p.GameName = name
			p.TagLine = strings.TrimSpace(entry.RiotIDTagLine)
		}
		p.ChampionName = entry.ChampionName
		p.Team = entry.Team
		p.Level = entry.Level
	}
	if player != nil {
		if player.Level > 0 {
			p.Level = player.Level
		}
		p.CurrentGold = player.CurrentGold
	}
	if scores != nil {
		s := *scores
		p.Scores = &s
	}
	return p
}

// DeriveRates fills the per-minute and ratio metrics of a player that has scores.
// Elapsed minutes are clamped to at least one second's worth.
func DeriveRates(p *domain.LocalPlayer, gameTime float64, teamKills int) {
	if p == nil || p.Scores == nil {
		return
	}
	minutes := gameTime / 60
	if minutes < 1.0/60 {
		minutes = 1.0 / 60
	}
	s := p.Scores
	deaths := s.Deaths
	if deaths < 1 {
		deaths = 1
	}
	p.KDA = ptr(float64(s.Kills+s.Assists) / float64(deaths))
	p.CSPerMinute = ptr(float64(s.CreepScore) / minutes)
	p.KillsPerMinute = ptr(float64(s.Kills) / minutes)
	p.WardScorePerMin = ptr(s.WardScore / minutes)
	if teamKills > 0 {
		p.KillParticipation = ptr(float64(s.Kills+s.Assists) / float64(teamKills))
	}
}

func convertItems(items []domain.UpstreamItem) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Item{
			ID:    item.ItemID,
			Name:  item.DisplayName,
			Slot:  item.Slot,
			Count: item.Count,
		})
	}
	return out
}

func convertAbilities(set *domain.AbilitySet) domain.Abilities {
	if set == nil {
		return domain.Abilities{}
	}
	name := func(a *domain.Ability) string {
		if a == nil {
			return ""
		}
		return a.DisplayName
	}
	return domain.Abilities{
		Passive: name(set.Passive),
		Q:       name(set.Q),
		W:       name(set.W),
		E:       name(set.E),
		R:       name(set.R),
	}
}

func convertSpells(spells *domain.SummonerSpells) domain.Spells {
	if spells == nil {
		return domain.Spells{}
	}
	convert := func(s *domain.SummonerSpell) *domain.Spell {
		if s == nil || s.DisplayName == "" {
			return nil
		}
		return &domain.Spell{Name: s.DisplayName}
	}
	return domain.Spells{One: convert(spells.One), Two: convert(spells.Two)}
}

func convertRunes(runes *domain.MainRunes) *domain.Runes {
	if runes == nil {
		return nil
	}
	out := &domain.Runes{}
	if runes.Keystone != nil {
		out.KeystoneID = runes.Keystone.ID
		out.Keystone = runes.Keystone.DisplayName
	}
	if runes.PrimaryRuneTree != nil {
		out.PrimaryTree = runes.PrimaryRuneTree.DisplayName
	}
	if runes.SecondaryRuneTree != nil {
		out.SecondaryTree = runes.SecondaryRuneTree.DisplayName
	}
	return out
}

func ptr(v float64) *float64 { return &v }
