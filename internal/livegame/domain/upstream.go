package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// IdentitySeparator joins a game name and tag line into a composite riot id.
const IdentitySeparator = "#"

// GameStats is the upstream /gamestats payload.
type GameStats struct {
	GameMode string  `json:"gameMode"`
	GameTime float64 `json:"gameTime"`
	MapName  string  `json:"mapName"`
}

// Event is one entry of the upstream event log. Variant fields are empty when absent.
type Event struct {
	EventID      int      `json:"EventID"`
	EventName    string   `json:"EventName"`
	EventTime    float64  `json:"EventTime"`
	KillerName   string   `json:"KillerName,omitempty"`
	VictimName   string   `json:"VictimName,omitempty"`
	Assisters    []string `json:"Assisters,omitempty"`
	DragonType   string   `json:"DragonType,omitempty"`
	Stolen       string   `json:"Stolen,omitempty"`
	TurretKilled string   `json:"TurretKilled,omitempty"`
	InhibKilled  string   `json:"InhibKilled,omitempty"`
}

const (
	EventChampionKill = "ChampionKill"
	EventTurretKilled = "TurretKilled"
	EventInhibKilled  = "InhibKilled"
	EventDragonKill   = "DragonKill"
	EventHeraldKill   = "HeraldKill"
	EventBaronKill    = "BaronKill"
)

// EventLog is the upstream /eventdata payload.
type EventLog struct {
	Events []Event `json:"Events"`
}

// ActiveIdentity is the upstream "active player name", which may arrive as a bare
// string, a composite "name#tag" string, or an object with separate fields.
type ActiveIdentity struct {
	Raw  string
	Name string
	Tag  string
}

type activeIdentityObject struct {
	RiotID         string `json:"riotId"`
	RiotIDGameName string `json:"riotIdGameName"`
	RiotIDTagLine  string `json:"riotIdTagLine"`
}

// UnmarshalJSON accepts both the string and the object representation.
func (a *ActiveIdentity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ActiveIdentity{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*a = ParseActiveIdentity(raw)
		return nil
	}
	var obj activeIdentityObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	parsed := ParseActiveIdentity(obj.RiotID)
	if name := strings.TrimSpace(obj.RiotIDGameName); name != "" {
		parsed.Name = name
	}
	if tag := strings.TrimSpace(obj.RiotIDTagLine); tag != "" {
		parsed.Tag = tag
	}
	if parsed.Raw == "" && parsed.Name != "" {
		parsed.Raw = parsed.Name
		if parsed.Tag != "" {
			parsed.Raw = parsed.Name + IdentitySeparator + parsed.Tag
		}
	}
	*a = parsed
	return nil
}

// ParseActiveIdentity splits a raw identity string into name and tag when composite.
func ParseActiveIdentity(raw string) ActiveIdentity {
	raw = strings.TrimSpace(raw)
	id := ActiveIdentity{Raw: raw}
	name, tag, ok := strings.Cut(raw, IdentitySeparator)
	if ok {
		id.Name = strings.TrimSpace(name)
		id.Tag = strings.TrimSpace(tag)
		return id
	}
	id.Name = raw
	return id
}

// Composite returns "name#tag" when both parts are known.
func (a ActiveIdentity) Composite() string {
	if a.Name == "" || a.Tag == "" {
		return ""
	}
	return a.Name + IdentitySeparator + a.Tag
}

// IsComposite reports whether the raw string carries a tag separator.
func (a ActiveIdentity) IsComposite() bool {
	return strings.Contains(a.Raw, IdentitySeparator)
}

// RosterEntry is one element of the upstream /playerlist payload.
type RosterEntry struct {
	ChampionName    string         `json:"championName"`
	RawChampionName string         `json:"rawChampionName"`
	IsBot           bool           `json:"isBot"`
	IsDead          bool           `json:"isDead"`
	Level           int            `json:"level"`
	Position        string         `json:"position"`
	RiotID          string         `json:"riotId"`
	RiotIDGameName  string         `json:"riotIdGameName"`
	RiotIDTagLine   string         `json:"riotIdTagLine"`
	SummonerName    string         `json:"summonerName"`
	Team            string         `json:"team"`
	Scores          *Scores        `json:"scores"`
	Items           []UpstreamItem `json:"items"`
}

// Composite returns the entry's structured name and tag joined, or "".
func (r RosterEntry) Composite() string {
	name := strings.TrimSpace(r.RiotIDGameName)
	tag := strings.TrimSpace(r.RiotIDTagLine)
	if name == "" || tag == "" {
		return ""
	}
	return name + IdentitySeparator + tag
}

// DisplayID returns the best textual identity of the entry.
func (r RosterEntry) DisplayID() string {
	for _, candidate := range []string{r.RiotID, r.Composite(), r.RiotIDGameName, r.SummonerName} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}

// UpstreamItem is one entry of the upstream item list.
type UpstreamItem struct {
	ItemID      int    `json:"itemID"`
	DisplayName string `json:"displayName"`
	Slot        int    `json:"slot"`
	Count       int    `json:"count"`
}

// ActivePlayer is the subset of /activeplayer used by the snapshot.
type ActivePlayer struct {
	Level          int     `json:"level"`
	CurrentGold    float64 `json:"currentGold"`
	RiotID         string  `json:"riotId"`
	RiotIDGameName string  `json:"riotIdGameName"`
	RiotIDTagLine  string  `json:"riotIdTagLine"`
	SummonerName   string  `json:"summonerName"`
}

// Ability is one entry of /activeplayerabilities.
type Ability struct {
	AbilityLevel int    `json:"abilityLevel"`
	DisplayName  string `json:"displayName"`
	ID           string `json:"id"`
}

// AbilitySet is the /activeplayerabilities payload.
type AbilitySet struct {
	Passive *Ability `json:"Passive"`
	Q       *Ability `json:"Q"`
	W       *Ability `json:"W"`
	E       *Ability `json:"E"`
	R       *Ability `json:"R"`
}

// SummonerSpell is one spell descriptor.
type SummonerSpell struct {
	DisplayName    string `json:"displayName"`
	RawDisplayName string `json:"rawDisplayName"`
}

// SummonerSpells is the /playersummonerspells payload.
type SummonerSpells struct {
	One *SummonerSpell `json:"summonerSpellOne"`
	Two *SummonerSpell `json:"summonerSpellTwo"`
}

// RuneDescriptor names a rune or rune tree.
type RuneDescriptor struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}

// MainRunes is the /playermainrunes payload.
type MainRunes struct {
	Keystone          *RuneDescriptor `json:"keystone"`
	PrimaryRuneTree   *RuneDescriptor `json:"primaryRuneTree"`
	SecondaryRuneTree *RuneDescriptor `json:"secondaryRuneTree"`
}
