package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity of a tip.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity accepts the three severities, defaulting empty input to info.
func ParseSeverity(value string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(value))) {
	case "", SeverityInfo:
		return SeverityInfo, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityCritical:
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, value)
	}
}

// Metadata keys carried on every tip.
const (
	MetaModule      = "module"
	MetaTrigger     = "trigger"
	MetaLeadSeconds = "leadSeconds"
	MetaOccurrence  = "occurrence"
	MetaSpawnAt     = "spawnAt"
	MetaObjective   = "objective"
)

// Tip is one emitted notification. ID is the rule id and repeats across occurrences.
type Tip struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	Severity  Severity       `json:"severity"`
	StickyMs  int            `json:"stickyMs"`
	GameTime  float64        `json:"gameTime"`
	EmittedAt time.Time      `json:"emittedAt"`
	Metadata  map[string]any `json:"metadata"`
}

// Render substitutes {lead} and {objective} in a message template.
func Render(template string, lead float64, objective string) string {
	replacer := strings.NewReplacer(
		"{lead}", FormatLead(lead),
		"{objective}", DisplayObjective(objective),
	)
	return replacer.Replace(template)
}

// FormatLead renders whole seconds without a decimal point.
func FormatLead(lead float64) string {
	return strconv.FormatFloat(lead, 'f', -1, 64)
}

// DisplayObjective capitalizes an objective name for messages.
func DisplayObjective(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
