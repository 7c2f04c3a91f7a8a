package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"riftcoach/internal/livegame/domain"
	"riftcoach/internal/livegame/objectives"
)

var errNotFound = errors.New("fake: not found")

type fakeLiveClient struct {
	stats     domain.GameStats
	statsErr  error
	events    domain.EventLog
	active    domain.ActiveIdentity
	roster    []domain.RosterEntry
	rosterErr error
	player    domain.ActivePlayer
	playerErr error
	abilities domain.AbilitySet

	// accept maps an identity-keyed endpoint to the only riot id it answers for.
	accept map[string]string
	scores domain.Scores
	items  []domain.UpstreamItem
	spells domain.SummonerSpells
	runes  domain.MainRunes

	mu    sync.Mutex
	calls map[string][]string
}

func (f *fakeLiveClient) keyed(endpoint, riotID string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string][]string)
	}
	f.calls[endpoint] = append(f.calls[endpoint], riotID)
	f.mu.Unlock()
	if want, ok := f.accept[endpoint]; ok && want == riotID {
		return nil
	}
	return errNotFound
}

func (f *fakeLiveClient) GameStats(context.Context) (domain.GameStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeLiveClient) EventLog(context.Context) (domain.EventLog, error) {
	return f.events, nil
}

func (f *fakeLiveClient) ActivePlayerName(context.Context) (domain.ActiveIdentity, error) {
	return f.active, nil
}

func (f *fakeLiveClient) PlayerList(context.Context) ([]domain.RosterEntry, error) {
	return f.roster, f.rosterErr
}

func (f *fakeLiveClient) ActivePlayer(context.Context) (domain.ActivePlayer, error) {
	return f.player, f.playerErr
}

func (f *fakeLiveClient) ActivePlayerAbilities(context.Context) (domain.AbilitySet, error) {
	return f.abilities, nil
}

func (f *fakeLiveClient) PlayerScores(_ context.Context, riotID string) (domain.Scores, error) {
	if err := f.keyed(EndpointScores, riotID); err != nil {
		return domain.Scores{}, err
	}
	return f.scores, nil
}

func (f *fakeLiveClient) PlayerItems(_ context.Context, riotID string) ([]domain.UpstreamItem, error) {
	if err := f.keyed(EndpointItems, riotID); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeLiveClient) PlayerSummonerSpells(_ context.Context, riotID string) (domain.SummonerSpells, error) {
	if err := f.keyed(EndpointSpells, riotID); err != nil {
		return domain.SummonerSpells{}, err
	}
	return f.spells, nil
}

func (f *fakeLiveClient) PlayerMainRunes(_ context.Context, riotID string) (domain.MainRunes, error) {
	if err := f.keyed(EndpointRunes, riotID); err != nil {
		return domain.MainRunes{}, err
	}
	return f.runes, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newMatchClient() *fakeLiveClient {
	return &fakeLiveClient{
		stats:  domain.GameStats{GameMode: "CLASSIC", GameTime: 600, MapName: "Map11"},
		active: domain.ParseActiveIdentity("Faker#KR1"),
		roster: []domain.RosterEntry{
			{RiotID: "Faker#KR1", RiotIDGameName: "Faker", RiotIDTagLine: "KR1", SummonerName: "Hide on bush",
				ChampionName: "Ahri", RawChampionName: "game_character_displayname_Ahri", Team: domain.TeamOrder, Level: 9},
			{RiotID: "Zeus#KR1", RiotIDGameName: "Zeus", RiotIDTagLine: "KR1", ChampionName: "Jayce", Team: domain.TeamOrder, Level: 10},
			{RiotID: "Caps#G2", RiotIDGameName: "Caps", RiotIDTagLine: "G2", ChampionName: "Sylas", Team: domain.TeamChaos, Level: 10},
		},
		events: domain.EventLog{Events: []domain.Event{
			{EventName: "GameStart", EventTime: 0},
			{EventName: domain.EventChampionKill, EventTime: 100, KillerName: "Faker"},
			{EventName: domain.EventChampionKill, EventTime: 150, KillerName: "Zeus"},
			{EventName: domain.EventChampionKill, EventTime: 200, KillerName: "Caps"},
			{EventName: domain.EventChampionKill, EventTime: 250, KillerName: "faker#kr1"},
			{EventName: domain.EventChampionKill, EventTime: 260, KillerName: "Zeus"},
			{EventName: domain.EventTurretKilled, EventTime: 300, KillerName: "Caps", TurretKilled: "Turret_T1_L_03_A"},
			{EventName: domain.EventTurretKilled, EventTime: 320, KillerName: "Minion_T100L1S04N0003", TurretKilled: "Turret_T2_R_03_A"},
			{EventName: domain.EventDragonKill, EventTime: 410, KillerName: "Caps"},
			{EventName: domain.EventInhibKilled, EventTime: 500, KillerName: "Zeus", InhibKilled: "Barracks_T2_L1"},
		}},
		player:    domain.ActivePlayer{Level: 11, CurrentGold: 1234.5},
		abilities: domain.AbilitySet{Q: &domain.Ability{DisplayName: "Orb of Deception"}, R: &domain.Ability{DisplayName: "Spirit Rush"}},
		accept: map[string]string{
			EndpointScores: "Faker#KR1",
			EndpointItems:  "Faker",
			EndpointSpells: "Faker#KR1",
			EndpointRunes:  "Faker#KR1",
		},
		scores: domain.Scores{Kills: 2, Deaths: 1, Assists: 2, CreepScore: 80, WardScore: 5},
		items: []domain.UpstreamItem{
			{ItemID: 3340, DisplayName: "Stealth Ward", Slot: 6, Count: 1},
			{ItemID: 6655, DisplayName: "Luden's Companion", Slot: 0, Count: 1},
			{ItemID: 2003, DisplayName: "Health Potion", Slot: 9, Count: 2},
		},
		spells: domain.SummonerSpells{
			One: &domain.SummonerSpell{DisplayName: "Flash", RawDisplayName: "GeneratedTip_SummonerSpell_SummonerFlash_DisplayName"},
			Two: &domain.SummonerSpell{DisplayName: "Ignite", RawDisplayName: "GeneratedTip_SummonerSpell_SummonerDot_DisplayName"},
		},
		runes: domain.MainRunes{
			Keystone:          &domain.RuneDescriptor{ID: 8112, DisplayName: "Electrocute"},
			PrimaryRuneTree:   &domain.RuneDescriptor{ID: 8100, DisplayName: "Domination"},
			SecondaryRuneTree: &domain.RuneDescriptor{ID: 8300, DisplayName: "Inspiration"},
		},
	}
}

func TestAggregateMergesAllDatasets(t *testing.T) {
	client := newMatchClient()
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg, err := NewAggregator(client, WithClock(fixedClock{now: fetchedAt}), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.Error)
	assert.Equal(t, "10:00", snap.GameClock)
	assert.Equal(t, "Summoner's Rift", snap.GameModeName)
	assert.Equal(t, fetchedAt, snap.FetchedAt)

	assert.Equal(t, []string{"Faker#KR1", "Faker", "Hide on bush"}, snap.Identity.Candidates)
	assert.Equal(t, "Faker", snap.Identity.AcceptedBy[EndpointItems])
	assert.Equal(t, "Faker#KR1", snap.Identity.AcceptedBy[EndpointScores])

	require.NotNil(t, snap.Player)
	assert.Equal(t, "Ahri", snap.Player.ChampionName)
	assert.Equal(t, domain.TeamOrder, snap.Player.Team)
	assert.Equal(t, 11, snap.Player.Level)
	assert.InDelta(t, 1234.5, snap.Player.CurrentGold, 0.001)
	require.NotNil(t, snap.Player.KDA)
	assert.InDelta(t, 4.0, *snap.Player.KDA, 0.0001)
	assert.InDelta(t, 8.0, *snap.Player.CSPerMinute, 0.0001)
	assert.InDelta(t, 0.5, *snap.Player.WardScorePerMin, 0.0001)
	require.NotNil(t, snap.Player.KillParticipation)
	assert.InDelta(t, 1.0, *snap.Player.KillParticipation, 0.0001)

	require.Len(t, snap.Equipment, domain.EquipmentSlots)
	require.NotNil(t, snap.Equipment[0])
	assert.Equal(t, "Luden's Companion", snap.Equipment[0].Name)
	require.NotNil(t, snap.Equipment[domain.TrinketSlot])
	assert.Equal(t, 3340, snap.Equipment[domain.TrinketSlot].ID)
	assert.Nil(t, snap.Equipment[1])

	assert.Equal(t, "Orb of Deception", snap.Abilities.Q)
	require.NotNil(t, snap.Spells.One)
	assert.Equal(t, "Flash", snap.Spells.One.Name)
	require.NotNil(t, snap.Runes)
	assert.Equal(t, "Electrocute", snap.Runes.Keystone)

	assert.Equal(t, 4, snap.Teams.Order.Kills)
	assert.Equal(t, 1, snap.Teams.Chaos.Kills)
	assert.Equal(t, 1, snap.Teams.Chaos.TurretsDestroyed)
	assert.Equal(t, 1, snap.Teams.Order.InhibitorsDestroyed)
	assert.Equal(t, 1, snap.Teams.Order.StructuresDestroyed)
	assert.Equal(t, 1, snap.Teams.UncreditedStructures)
	assert.Len(t, snap.Teams.Order.Players, 2)
	assert.Len(t, snap.Teams.Chaos.Players, 1)

	dragon := snap.Objectives[objectives.Dragon]
	assert.Equal(t, 710.0, dragon.NextSpawnTime)
	assert.Equal(t, "1:50", dragon.TimeToSpawn)
}

func TestAggregateEquipmentFailureIsNotFatal(t *testing.T) {
	client := newMatchClient()
	delete(client.accept, EndpointItems)
	agg, err := NewAggregator(client)
	require.NoError(t, err)

	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.Error)
	assert.Len(t, snap.Equipment, domain.EquipmentSlots)
	for slot, item := range snap.Equipment {
		assert.Nil(t, item, "slot %d", slot)
	}
	_, accepted := snap.Identity.AcceptedBy[EndpointItems]
	assert.False(t, accepted)
	assert.Equal(t, snap.Identity.Candidates, client.calls[EndpointItems])

	require.NotNil(t, snap.Player)
	require.NotNil(t, snap.Player.Scores)
	assert.Equal(t, 80, snap.Player.Scores.CreepScore)
	assert.Equal(t, 4, snap.Teams.Order.Kills)
}

func TestAggregateCoreFailureIsFatal(t *testing.T) {
	client := newMatchClient()
	client.rosterErr = errors.New("connection refused")
	agg, err := NewAggregator(client)
	require.NoError(t, err)

	_, err = agg.Aggregate(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCoreDataset))
}

func TestAggregateOptionalLocalFetchDegrades(t *testing.T) {
	client := newMatchClient()
	client.playerErr = errors.New("loading screen")
	agg, err := NewAggregator(client)
	require.NoError(t, err)

	snap, err := agg.Aggregate(context.Background())

	require.NoError(t, err)
	require.NotNil(t, snap.Player)
	assert.Equal(t, 9, snap.Player.Level)
	assert.Zero(t, snap.Player.CurrentGold)
}

type stubIcons struct {
	failItems bool
}

func (s stubIcons) ChampionIconURL(_ context.Context, name, _ string) (string, error) {
	return "https://cdn/champion/" + name + ".png", nil
}

func (s stubIcons) ItemIconURL(_ context.Context, itemID int) (string, error) {
	if s.failItems && itemID == 3340 {
		return "", errors.New("catalog down")
	}
	return "https://cdn/item.png", nil
}

func (s stubIcons) SpellIconURL(_ context.Context, name, _ string) (string, error) {
	return "https://cdn/spell/" + name + ".png", nil
}

func (s stubIcons) RuneIconURL(context.Context, int) (string, error) {
	return "", errors.New("unknown rune")
}

func TestAggregateEnrichmentIsBestEffort(t *testing.T) {
	agg, err := NewAggregator(newMatchClient(), WithIcons(stubIcons{failItems: true}))
	require.NoError(t, err)

	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	require.NotNil(t, snap.Player.ChampionIconURL)
	assert.Equal(t, "https://cdn/champion/Ahri.png", *snap.Player.ChampionIconURL)
	require.NotNil(t, snap.Equipment[0].IconURL)
	assert.Nil(t, snap.Equipment[domain.TrinketSlot].IconURL)
	require.NotNil(t, snap.Spells.Two.IconURL)
	assert.Equal(t, "https://cdn/spell/Ignite.png", *snap.Spells.Two.IconURL)
	assert.Nil(t, snap.Runes.KeystoneIconURL)
	assert.Equal(t, "Electrocute", snap.Runes.Keystone)
}

func TestAggregateEmptyRoster(t *testing.T) {
	client := newMatchClient()
	client.roster = nil
	client.accept = nil
	agg, err := NewAggregator(client)
	require.NoError(t, err)

	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Faker#KR1"}, snap.Identity.Candidates)
	require.NotNil(t, snap.Player)
	assert.Equal(t, "Faker#KR1", snap.Player.RiotID)
	assert.Nil(t, snap.Player.Scores)
	assert.Nil(t, snap.Player.KDA)
	assert.Empty(t, snap.Teams.Order.Players)
}

func TestDeriveRatesClampsElapsedMinutes(t *testing.T) {
	p := &domain.LocalPlayer{Scores: &domain.Scores{Kills: 1, CreepScore: 2}}

	DeriveRates(p, 0, 0)

	require.NotNil(t, p.CSPerMinute)
	assert.InDelta(t, 120.0, *p.CSPerMinute, 0.0001)
	assert.InDelta(t, 60.0, *p.KillsPerMinute, 0.0001)
	assert.Nil(t, p.KillParticipation)
}

func TestNewAggregatorRequiresClient(t *testing.T) {
	_, err := NewAggregator(nil)
	assert.Error(t, err)
}
