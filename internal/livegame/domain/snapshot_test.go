package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEquipmentKeepsSevenSlots(t *testing.T) {
	cases := map[string][]Item{
		"empty": nil,
		"partial": {
			{ID: 1055, Name: "Doran's Blade", Slot: 0},
			{ID: 3340, Name: "Stealth Ward", Slot: 6},
		},
		"out of range and duplicates": {
			{ID: 1, Name: "first", Slot: 2},
			{ID: 2, Name: "duplicate", Slot: 2},
			{ID: 3, Name: "too high", Slot: 7},
			{ID: 4, Name: "negative", Slot: -1},
		},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			eq := NormalizeEquipment(items)
			require.Len(t, eq, EquipmentSlots)

			seen := map[int]bool{}
			for _, item := range items {
				if item.Slot < 0 || item.Slot >= EquipmentSlots || seen[item.Slot] {
					continue
				}
				seen[item.Slot] = true
				require.NotNil(t, eq[item.Slot])
				assert.Equal(t, item.Name, eq[item.Slot].Name)
			}
			for slot, item := range eq {
				if !seen[slot] {
					assert.Nil(t, item, "slot %d", slot)
				}
			}
		})
	}
}

func TestEquipmentMarshalsNullSlots(t *testing.T) {
	eq := NormalizeEquipment([]Item{{ID: 3340, Name: "Stealth Ward", Slot: TrinketSlot}})
	data, err := json.Marshal(eq)
	require.NoError(t, err)

	var decoded []*Item
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, EquipmentSlots)
	for i := 0; i < TrinketSlot; i++ {
		assert.Nil(t, decoded[i])
	}
	require.NotNil(t, decoded[TrinketSlot])
	assert.Equal(t, 3340, decoded[TrinketSlot].ID)
}

func TestActiveIdentityUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ActiveIdentity
	}{
		{name: "composite string", payload: `"Faker#KR1"`, want: ActiveIdentity{Raw: "Faker#KR1", Name: "Faker", Tag: "KR1"}},
		{name: "bare string", payload: `"Faker"`, want: ActiveIdentity{Raw: "Faker", Name: "Faker"}},
		{name: "object", payload: `{"riotIdGameName":"Faker","riotIdTagLine":"KR1"}`, want: ActiveIdentity{Raw: "Faker#KR1", Name: "Faker", Tag: "KR1"}},
		{name: "object with riot id", payload: `{"riotId":"Faker#KR1"}`, want: ActiveIdentity{Raw: "Faker#KR1", Name: "Faker", Tag: "KR1"}},
		{name: "null", payload: `null`, want: ActiveIdentity{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ActiveIdentity
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:15", FormatClock(15))
	assert.Equal(t, "19:45", FormatClock(1185))
	assert.Equal(t, "-14:45", FormatClock(-885))
	assert.Equal(t, "0:00", FormatClock(-0.4))
	assert.Equal(t, "1:05", FormatClock(65.9))
}

func TestGameModeName(t *testing.T) {
	assert.Equal(t, "Summoner's Rift", GameModeName("CLASSIC"))
	assert.Equal(t, "Arena", GameModeName("cherry"))
	assert.Equal(t, "SOMETHINGNEW", GameModeName("SOMETHINGNEW"))
}
