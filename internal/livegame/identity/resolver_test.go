package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftcoach/internal/livegame/domain"
)

func TestResolvePrefersNameTagOverWeakerMatches(t *testing.T) {
	roster := []domain.RosterEntry{
		{SummonerName: "Faker", ChampionName: "legacy"},
		{RiotIDGameName: "Faker", RiotIDTagLine: "EUW", ChampionName: "name-only"},
		{RiotIDGameName: "faker ", RiotIDTagLine: "kr1", ChampionName: "name-tag"},
	}
	active := domain.ActiveIdentity{Raw: "Faker#KR1", Name: "Faker", Tag: "KR1"}

	res := Resolve(active, roster)

	require.NotNil(t, res.Entry)
	assert.Equal(t, "name-tag", res.Entry.ChampionName)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, MatchNameTag, res.Match)
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		active    domain.ActiveIdentity
		roster    []domain.RosterEntry
		wantIndex int
		wantMatch Match
	}{
		{
			name:   "composite id wins",
			active: domain.ParseActiveIdentity("Hide on bush#KR1"),
			roster: []domain.RosterEntry{
				{RiotIDGameName: "Hide on bush", RiotIDTagLine: "KR1"},
				{RiotID: "HIDE ON BUSH#kr1"},
			},
			wantIndex: 1,
			wantMatch: MatchComposite,
		},
		{
			name:   "name only when tag differs",
			active: domain.ParseActiveIdentity("Caps#EUW"),
			roster: []domain.RosterEntry{
				{RiotIDGameName: "Perkz", RiotIDTagLine: "EUW"},
				{RiotID: "Caps#G2"},
			},
			wantIndex: 1,
			wantMatch: MatchName,
		},
		{
			name:   "legacy bare name",
			active: domain.ParseActiveIdentity("Doublelift"),
			roster: []domain.RosterEntry{
				{SummonerName: "Bjergsen"},
				{SummonerName: "doublelift"},
			},
			wantIndex: 1,
			wantMatch: MatchLegacy,
		},
		{
			name:   "fallback to first entry",
			active: domain.ParseActiveIdentity("Nobody#NA1"),
			roster: []domain.RosterEntry{
				{SummonerName: "First"},
				{SummonerName: "Second"},
			},
			wantIndex: 0,
			wantMatch: MatchFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.active, tt.roster)
			require.NotNil(t, res.Entry)
			assert.Equal(t, tt.wantIndex, res.Index)
			assert.Equal(t, tt.wantMatch, res.Match)
		})
	}
}

func TestResolveLegacyOnlyForBareActiveName(t *testing.T) {
	roster := []domain.RosterEntry{
		{RiotIDGameName: "Other", RiotIDTagLine: "X"},
		{SummonerName: "Legacy"},
	}

	res := Resolve(domain.ActiveIdentity{Raw: "Legacy"}, roster)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, MatchLegacy, res.Match)

	res = Resolve(domain.ActiveIdentity{Raw: "Legacy#TAG", Tag: "TAG"}, roster)
	assert.Equal(t, MatchFallback, res.Match)
}

func TestResolveEmptyRoster(t *testing.T) {
	res := Resolve(domain.ParseActiveIdentity("Faker#KR1"), nil)
	assert.Nil(t, res.Entry)
	assert.Equal(t, -1, res.Index)
	assert.Equal(t, MatchNone, res.Match)
	assert.Equal(t, []string{"Faker#KR1"}, res.Candidates)
}

func TestCandidatesOrderAndDedup(t *testing.T) {
	active := domain.ActiveIdentity{Raw: "Faker", Name: "Faker", Tag: "KR1"}
	entry := &domain.RosterEntry{
		RiotID:         "Faker#KR2",
		RiotIDGameName: "Faker",
		RiotIDTagLine:  "KR1",
		SummonerName:   "Hide on bush",
	}

	got := Candidates(active, entry)

	assert.Equal(t, []string{"Faker#KR1", "Faker#KR2", "Faker", "Hide on bush"}, got)
}

func TestCandidatesWithoutEntry(t *testing.T) {
	assert.Equal(t, []string{"Solo"}, Candidates(domain.ActiveIdentity{Raw: "Solo", Name: "Solo"}, nil))
	assert.Empty(t, Candidates(domain.ActiveIdentity{}, nil))
}
