package application

import (
	"context"
	"time"

	"riftcoach/internal/livegame/domain"
)

// LiveClient reads the live client data API.
type LiveClient interface {
	GameStats(ctx context.Context) (domain.GameStats, error)
	EventLog(ctx context.Context) (domain.EventLog, error)
	ActivePlayerName(ctx context.Context) (domain.ActiveIdentity, error)
	PlayerList(ctx context.Context) ([]domain.RosterEntry, error)
	ActivePlayer(ctx context.Context) (domain.ActivePlayer, error)
	ActivePlayerAbilities(ctx context.Context) (domain.AbilitySet, error)
	PlayerScores(ctx context.Context, riotID string) (domain.Scores, error)
	PlayerItems(ctx context.Context, riotID string) ([]domain.UpstreamItem, error)
	PlayerSummonerSpells(ctx context.Context, riotID string) (domain.SummonerSpells, error)
	PlayerMainRunes(ctx context.Context, riotID string) (domain.MainRunes, error)
}

// IconResolver resolves remote icon URLs. Every method may fail independently.
type IconResolver interface {
	ChampionIconURL(ctx context.Context, name, rawName string) (string, error)
	ItemIconURL(ctx context.Context, itemID int) (string, error)
	SpellIconURL(ctx context.Context, name, rawName string) (string, error)
	RuneIconURL(ctx context.Context, runeID int) (string, error)
}

// SnapshotPublisher receives every snapshot the poller produces.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snapshot domain.Snapshot)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
