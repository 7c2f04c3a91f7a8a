// Package identity reconciles the several naming schemes the live client uses for a
// player into one roster match and an ordered list of identity forms to try against
// identity-keyed endpoints.
package identity

import (
	"strings"

	"riftcoach/internal/livegame/domain"
)

// Match names the precedence rule that selected the roster entry.
type Match string

const (
	MatchNone      Match = ""
	MatchComposite Match = "composite"
	MatchNameTag   Match = "name_tag"
	MatchName      Match = "name"
	MatchLegacy    Match = "legacy"
	MatchFallback  Match = "fallback"
)

// Resolution is the result of resolving the active identity against a roster.
type Resolution struct {
	Entry      *domain.RosterEntry
	Index      int
	Match      Match
	Candidates []string
}

// Resolve finds the roster entry for the active identity. The first matching rule wins:
// composite id, structured name+tag, name only, legacy name. When nothing matches the first
// roster entry is selected. Resolve never fails; an empty roster yields no entry.
func Resolve(active domain.ActiveIdentity, roster []domain.RosterEntry) Resolution {
	res := Resolution{Index: -1}
	if idx, match := findEntry(active, roster); idx >= 0 {
		res.Index = idx
		res.Match = match
		entry := roster[idx]
		res.Entry = &entry
	}
	res.Candidates = Candidates(active, res.Entry)
	return res
}

func findEntry(active domain.ActiveIdentity, roster []domain.RosterEntry) (int, Match) {
	if len(roster) == 0 {
		return -1, MatchNone
	}
	full := normalize(active.Composite())
	if full == "" && active.IsComposite() {
		full = normalize(active.Raw)
	}
	if full != "" {
		for i, entry := range roster {
			if normalize(entry.RiotID) == full {
				return i, MatchComposite
			}
		}
	}

	name := normalize(active.Name)
	tag := normalize(active.Tag)
	if name != "" && tag != "" {
		for i, entry := range roster {
			entryName, entryTag := structured(entry)
			if entryName == name && entryTag == tag {
				return i, MatchNameTag
			}
		}
	}

	if name != "" {
		for i, entry := range roster {
			entryName, _ := structured(entry)
			if entryName == name {
				return i, MatchName
			}
		}
	}

	if raw := normalize(active.Raw); raw != "" && !active.IsComposite() {
		for i, entry := range roster {
			if normalize(entry.SummonerName) == raw {
				return i, MatchLegacy
			}
		}
	}

	return 0, MatchFallback
}

// structured returns the entry's normalized name and tag, preferring the structured fields
// and falling back to splitting the composite id.
func structured(entry domain.RosterEntry) (string, string) {
	name := normalize(entry.RiotIDGameName)
	tag := normalize(entry.RiotIDTagLine)
	if name != "" {
		return name, tag
	}
	if entry.RiotID != "" {
		parsed := domain.ParseActiveIdentity(entry.RiotID)
		return normalize(parsed.Name), normalize(parsed.Tag)
	}
	return "", ""
}

// Candidates lists every identity form worth trying, most specific first, without duplicates.
func Candidates(active domain.ActiveIdentity, entry *domain.RosterEntry) []string {
	list := make([]string, 0, 6)
	seen := make(map[string]struct{}, 6)
	add := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		list = append(list, value)
	}

	if full := active.Composite(); full != "" {
		add(full)
	} else if active.IsComposite() {
		add(active.Raw)
	}
	if entry != nil {
		add(entry.Composite())
		add(entry.RiotID)
		name, _ := rawStructured(*entry)
		add(name)
		add(entry.SummonerName)
	}
	add(active.Raw)
	return list
}

func rawStructured(entry domain.RosterEntry) (string, string) {
	if name := strings.TrimSpace(entry.RiotIDGameName); name != "" {
		return name, strings.TrimSpace(entry.RiotIDTagLine)
	}
	if entry.RiotID != "" {
		parsed := domain.ParseActiveIdentity(entry.RiotID)
		return parsed.Name, parsed.Tag
	}
	return "", ""
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
