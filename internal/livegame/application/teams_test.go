package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"riftcoach/internal/livegame/domain"
)

func TestTallyTeamsLegacyNames(t *testing.T) {
	roster := []domain.RosterEntry{
		{SummonerName: "OldName", Team: domain.TeamChaos},
		{SummonerName: "Spectator", Team: "NEUTRAL"},
	}
	events := []domain.Event{
		{EventName: domain.EventChampionKill, KillerName: "oldname "},
		{EventName: domain.EventChampionKill, KillerName: "Turret_T1_C_05_A"},
		{EventName: domain.EventInhibKilled, KillerName: ""},
	}

	teams := TallyTeams(roster, events)

	assert.Equal(t, 1, teams.Chaos.Kills)
	assert.Equal(t, 0, teams.Order.Kills)
	assert.Equal(t, 1, teams.UncreditedStructures)
	assert.Len(t, teams.Chaos.Players, 1)
	assert.Equal(t, "OldName", teams.Chaos.Players[0].RiotID)
}
