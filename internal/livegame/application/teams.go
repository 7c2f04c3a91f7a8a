package application

import (
	"strings"

	"riftcoach/internal/livegame/domain"
)

// TallyTeams builds the per-team rosters and scans the event log once for kill and
// structure credit. Credit goes to the team of the killer; structures without a known
// killer are counted as uncredited.
func TallyTeams(roster []domain.RosterEntry, events []domain.Event) domain.Teams {
	teams := domain.Teams{
		Order: domain.TeamSummary{Players: []domain.RosterPlayer{}},
		Chaos: domain.TeamSummary{Players: []domain.RosterPlayer{}},
	}
	byName := make(map[string]string, len(roster)*3)
	for _, entry := range roster {
		summary := teams.Team(entry.Team)
		if summary == nil {
			continue
		}
		summary.Players = append(summary.Players, domain.RosterPlayer{
			RiotID:       entry.DisplayID(),
			ChampionName: entry.ChampionName,
			Level:        entry.Level,
			IsDead:       entry.IsDead,
			IsBot:        entry.IsBot,
			Position:     entry.Position,
			Scores:       entry.Scores,
		})
		for _, name := range entryNames(entry) {
			byName[name] = entry.Team
		}
	}

	teamOf := func(killer string) *domain.TeamSummary {
		team, ok := byName[strings.ToLower(strings.TrimSpace(killer))]
		if !ok {
			return nil
		}
		return teams.Team(team)
	}

	for _, evt := range events {
		switch evt.EventName {
		case domain.EventChampionKill:
			if team := teamOf(evt.KillerName); team != nil {
				team.Kills++
			}
		case domain.EventTurretKilled:
			if team := teamOf(evt.KillerName); team != nil {
				team.TurretsDestroyed++
				team.StructuresDestroyed++
			} else {
				teams.UncreditedStructures++
			}
		case domain.EventInhibKilled:
			if team := teamOf(evt.KillerName); team != nil {
				team.InhibitorsDestroyed++
				team.StructuresDestroyed++
			} else {
				teams.UncreditedStructures++
			}
		}
	}
	return teams
}

func entryNames(entry domain.RosterEntry) []string {
	names := make([]string, 0, 4)
	for _, name := range []string{
		entry.RiotID,
		entry.Composite(),
		entry.RiotIDGameName,
		domain.ParseActiveIdentity(entry.RiotID).Name,
		entry.SummonerName,
	} {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}
