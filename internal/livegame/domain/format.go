package domain

import (
	"fmt"
	"math"
	"strings"
)

var gameModeNames = map[string]string{
	"CLASSIC":      "Summoner's Rift",
	"ARAM":         "ARAM",
	"URF":          "URF",
	"ARURF":        "All Random URF",
	"ONEFORALL":    "One for All",
	"NEXUSBLITZ":   "Nexus Blitz",
	"ULTBOOK":      "Ultimate Spellbook",
	"CHERRY":       "Arena",
	"STRAWBERRY":   "Swarm",
	"PRACTICETOOL": "Practice Tool",
	"TUTORIAL":     "Tutorial",
}

// GameModeName returns the friendly name for an upstream game mode. Unknown modes pass through.
func GameModeName(mode string) string {
	if name, ok := gameModeNames[strings.ToUpper(strings.TrimSpace(mode))]; ok {
		return name
	}
	return mode
}

// FormatClock renders seconds as signed m:ss. Negative values keep a leading minus.
func FormatClock(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	total := int(math.Floor(seconds))
	if total == 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%d:%02d", sign, total/60, total%60)
}
