package domain

import "time"

// EquipmentSlots is the fixed number of inventory positions. Slot 6 holds the trinket.
const EquipmentSlots = 7

// TrinketSlot is the reserved trinket position.
const TrinketSlot = 6

const (
	TeamOrder = "ORDER"
	TeamChaos = "CHAOS"
)

// Snapshot is one normalized, point-in-time view of the live session.
type Snapshot struct {
	GameTime     float64                   `json:"gameTime"`
	GameClock    string                    `json:"gameClock"`
	GameMode     string                    `json:"gameMode"`
	GameModeName string                    `json:"gameModeName"`
	MapName      string                    `json:"mapName"`
	Player       *LocalPlayer              `json:"player"`
	Equipment    Equipment                 `json:"equipment"`
	Abilities    Abilities                 `json:"abilities"`
	Spells       Spells                    `json:"spells"`
	Runes        *Runes                    `json:"runes"`
	Teams        Teams                     `json:"teams"`
	Objectives   map[string]ObjectiveTimer `json:"objectives"`
	Identity     IdentityDiagnostics       `json:"identity"`
	FetchedAt    time.Time                 `json:"fetchedAt"`
	Error        bool                      `json:"error"`
	ErrorMessage string                    `json:"errorMessage,omitempty"`
}

// LocalPlayer holds the local player's identity, stats and derived rates.
type LocalPlayer struct {
	RiotID            string   `json:"riotId"`
	GameName          string   `json:"gameName"`
	TagLine           string   `json:"tagLine"`
	ChampionName      string   `json:"championName"`
	ChampionIconURL   *string  `json:"championIconUrl"`
	Level             int      `json:"level"`
	Team              string   `json:"team"`
	CurrentGold       float64  `json:"currentGold"`
	Scores            *Scores  `json:"scores"`
	KDA               *float64 `json:"kda"`
	CSPerMinute       *float64 `json:"csPerMinute"`
	KillsPerMinute    *float64 `json:"killsPerMinute"`
	WardScorePerMin   *float64 `json:"wardScorePerMinute"`
	KillParticipation *float64 `json:"killParticipation"`
}

// Scores mirrors the upstream per-player score block.
type Scores struct {
	Kills      int     `json:"kills"`
	Deaths     int     `json:"deaths"`
	Assists    int     `json:"assists"`
	CreepScore int     `json:"creepScore"`
	WardScore  float64 `json:"wardScore"`
}

// Item is one occupied inventory slot.
type Item struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Slot    int     `json:"slot"`
	Count   int     `json:"count"`
	IconURL *string `json:"iconUrl"`
}

// Equipment always has EquipmentSlots positions; empty slots are nil.
type Equipment [EquipmentSlots]*Item

// Abilities holds ability names by key.
type Abilities struct {
	Passive string `json:"passive,omitempty"`
	Q       string `json:"q,omitempty"`
	W       string `json:"w,omitempty"`
	E       string `json:"e,omitempty"`
	R       string `json:"r,omitempty"`
}

// Spell is one summoner spell.
type Spell struct {
	Name    string  `json:"name"`
	IconURL *string `json:"iconUrl"`
}

// Spells holds the two summoner spells; nil when unavailable.
type Spells struct {
	One *Spell `json:"one"`
	Two *Spell `json:"two"`
}

// Runes holds rune page names.
type Runes struct {
	KeystoneID      int     `json:"keystoneId"`
	Keystone        string  `json:"keystone"`
	KeystoneIconURL *string `json:"keystoneIconUrl"`
	PrimaryTree     string  `json:"primaryTree"`
	SecondaryTree   string  `json:"secondaryTree"`
}

// RosterPlayer is the view of one player in a team roster.
type RosterPlayer struct {
	RiotID       string  `json:"riotId"`
	ChampionName string  `json:"championName"`
	Level        int     `json:"level"`
	IsDead       bool    `json:"isDead"`
	IsBot        bool    `json:"isBot"`
	Position     string  `json:"position,omitempty"`
	Scores       *Scores `json:"scores"`
}

// TeamSummary aggregates one team.
type TeamSummary struct {
	Players             []RosterPlayer `json:"players"`
	Kills               int            `json:"kills"`
	TurretsDestroyed    int            `json:"turretsDestroyed"`
	InhibitorsDestroyed int            `json:"inhibitorsDestroyed"`
	StructuresDestroyed int            `json:"structuresDestroyed"`
}

// Teams holds both team summaries.
type Teams struct {
	Order                TeamSummary `json:"order"`
	Chaos                TeamSummary `json:"chaos"`
	UncreditedStructures int         `json:"uncreditedStructures"`
}

// Team returns the summary for a team name, or nil when unknown.
func (t *Teams) Team(name string) *TeamSummary {
	switch name {
	case TeamOrder:
		return &t.Order
	case TeamChaos:
		return &t.Chaos
	default:
		return nil
	}
}

// ObjectiveTimer is the computed state of one recurring objective.
type ObjectiveTimer struct {
	Name          string   `json:"name"`
	NextSpawnTime float64  `json:"nextSpawnTime"`
	TimeToSpawn   string   `json:"timeToSpawn"`
	LastKillTime  *float64 `json:"lastKillTime"`
	KillCount     int      `json:"killCount"`
	DespawnTime   *float64 `json:"despawnTime,omitempty"`
	Despawned     bool     `json:"despawned,omitempty"`
}

// IdentityDiagnostics records which identity forms were tried and accepted.
type IdentityDiagnostics struct {
	Candidates []string          `json:"candidates"`
	AcceptedBy map[string]string `json:"acceptedBy"`
}

// EmptySnapshot returns a snapshot with all collections initialized.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Objectives: map[string]ObjectiveTimer{},
		Teams: Teams{
			Order: TeamSummary{Players: []RosterPlayer{}},
			Chaos: TeamSummary{Players: []RosterPlayer{}},
		},
		Identity: IdentityDiagnostics{Candidates: []string{}, AcceptedBy: map[string]string{}},
	}
}

// NormalizeEquipment places items at their slot index. Out-of-range and duplicate slots are dropped.
func NormalizeEquipment(items []Item) Equipment {
	var out Equipment
	for i := range items {
		item := items[i]
		if item.Slot < 0 || item.Slot >= EquipmentSlots {
			continue
		}
		if out[item.Slot] != nil {
			continue
		}
		out[item.Slot] = &item
	}
	return out
}
