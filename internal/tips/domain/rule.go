package domain

import (
	"fmt"
	"strings"
	"time"
)

// SupportedVersion is the rule document schema version.
const SupportedVersion = 1

const (
	ChannelOverlay = "overlay"
	// DefaultStickyMs is the suggested display duration when a channel omits stickyMs.
	DefaultStickyMs = 6000
)

// Document is one rule file.
type Document struct {
	Version int      `yaml:"version"`
	Modules []Module `yaml:"modules"`
}

// Module groups rules that are enabled or disabled together.
type Module struct {
	ID      string `yaml:"id"`
	Enabled *bool  `yaml:"enabled,omitempty"`
	Rules   []Rule `yaml:"rules"`
}

// Rule is the declarative form of a tip rule.
type Rule struct {
	ID      string      `yaml:"id"`
	Enabled *bool       `yaml:"enabled,omitempty"`
	When    *When       `yaml:"when,omitempty"`
	Trigger TriggerSpec `yaml:"trigger"`
	Notify  Notify      `yaml:"notify"`
}

// When restricts a rule to a game-time window and a set of game modes.
type When struct {
	Phase *Phase   `yaml:"phase,omitempty" json:"phase,omitempty"`
	Modes []string `yaml:"modes,omitempty" json:"modes,omitempty"`
}

// Phase bounds are inclusive seconds of game time.
type Phase struct {
	MinGameTimeSec *float64 `yaml:"minGameTimeSec,omitempty" json:"minGameTimeSec,omitempty"`
	MaxGameTimeSec *float64 `yaml:"maxGameTimeSec,omitempty" json:"maxGameTimeSec,omitempty"`
}

// Applies reports whether the window matches the given game time and mode.
func (w *When) Applies(gameTime float64, mode string) bool {
	if w == nil {
		return true
	}
	if w.Phase != nil {
		if w.Phase.MinGameTimeSec != nil && gameTime < *w.Phase.MinGameTimeSec {
			return false
		}
		if w.Phase.MaxGameTimeSec != nil && gameTime > *w.Phase.MaxGameTimeSec {
			return false
		}
	}
	if len(w.Modes) == 0 {
		return true
	}
	for _, allowed := range w.Modes {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(mode)) {
			return true
		}
	}
	return false
}

// Notify describes how a firing is delivered.
type Notify struct {
	ThrottleSec float64   `yaml:"throttleSec,omitempty"`
	Channels    []Channel `yaml:"channels"`
}

// Channel is one delivery target. Only overlay channels exist today.
type Channel struct {
	Type     string   `yaml:"type" json:"type"`
	Severity Severity `yaml:"severity,omitempty" json:"severity"`
	Icon     string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	Title    string   `yaml:"title" json:"title"`
	Body     string   `yaml:"body,omitempty" json:"body,omitempty"`
	StickyMs int      `yaml:"stickyMs,omitempty" json:"stickyMs"`
}

// CompiledRule is a validated rule ready for evaluation.
type CompiledRule struct {
	ModuleID      string        `json:"module"`
	ModuleEnabled bool          `json:"moduleEnabled"`
	ID            string        `json:"id"`
	Enabled       bool          `json:"enabled"`
	When          *When         `json:"when,omitempty"`
	Trigger       Trigger       `json:"-"`
	Spec          TriggerSpec   `json:"trigger"`
	ThrottleSec   float64       `json:"throttleSec,omitempty"`
	Throttle      time.Duration `json:"-"`
	Channel       Channel       `json:"channel"`
}

// Active reports whether both the rule and its module are enabled.
func (r CompiledRule) Active() bool {
	return r.ModuleEnabled && r.Enabled
}

// RuleSet is an immutable, validated set of rules in load order.
type RuleSet struct {
	Rules []CompiledRule
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rules)
}

// Compile validates every rule of the documents. Invalid rules and later duplicates are
// skipped and reported; the remaining rules form the set.
func Compile(docs []Document, knownObjective func(string) bool) (*RuleSet, []error) {
	set := &RuleSet{}
	var problems []error
	seen := make(map[string]string)
	for _, doc := range docs {
		for _, module := range doc.Modules {
			moduleID := strings.TrimSpace(module.ID)
			if moduleID == "" {
				problems = append(problems, fmt.Errorf("%w: module without id", ErrInvalidRule))
				continue
			}
			moduleEnabled := enabled(module.Enabled)
			for _, rule := range module.Rules {
				compiled, err := compileRule(moduleID, moduleEnabled, rule, knownObjective)
				if err != nil {
					problems = append(problems, err)
					continue
				}
				if owner, dup := seen[compiled.ID]; dup {
					problems = append(problems, fmt.Errorf("%w: %q in module %q already defined in module %q",
						ErrDuplicateRule, compiled.ID, moduleID, owner))
					continue
				}
				seen[compiled.ID] = moduleID
				set.Rules = append(set.Rules, compiled)
			}
		}
	}
	return set, problems
}

func compileRule(moduleID string, moduleEnabled bool, rule Rule, knownObjective func(string) bool) (CompiledRule, error) {
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		return CompiledRule{}, fmt.Errorf("%w: module %q: rule without id", ErrInvalidRule, moduleID)
	}
	trigger, err := rule.Trigger.Build(knownObjective)
	if err != nil {
		return CompiledRule{}, fmt.Errorf("rule %q: %w", id, err)
	}
	if rule.Notify.ThrottleSec < 0 {
		return CompiledRule{}, fmt.Errorf("%w: rule %q: throttleSec must not be negative", ErrInvalidRule, id)
	}
	channel, err := overlayChannel(rule.Notify.Channels)
	if err != nil {
		return CompiledRule{}, fmt.Errorf("rule %q: %w", id, err)
	}
	if rule.When != nil && rule.When.Phase != nil {
		p := rule.When.Phase
		if p.MinGameTimeSec != nil && p.MaxGameTimeSec != nil && *p.MinGameTimeSec > *p.MaxGameTimeSec {
			return CompiledRule{}, fmt.Errorf("%w: rule %q: minGameTimeSec exceeds maxGameTimeSec", ErrInvalidRule, id)
		}
	}
	spec := rule.Trigger
	spec.LeadSeconds = trigger.Leads()
	if objective, ok := trigger.(ObjectiveSpawn); ok {
		spec.Objective = objective.Objective
	}
	return CompiledRule{
		ModuleID:      moduleID,
		ModuleEnabled: moduleEnabled,
		ID:            id,
		Enabled:       enabled(rule.Enabled),
		When:          rule.When,
		Trigger:       trigger,
		Spec:          spec,
		ThrottleSec:   rule.Notify.ThrottleSec,
		Throttle:      time.Duration(rule.Notify.ThrottleSec * float64(time.Second)),
		Channel:       channel,
	}, nil
}

func overlayChannel(channels []Channel) (Channel, error) {
	var found *Channel
	for i := range channels {
		ch := channels[i]
		if strings.TrimSpace(ch.Type) != ChannelOverlay {
			return Channel{}, fmt.Errorf("%w: unknown channel type %q", ErrInvalidRule, ch.Type)
		}
		if found == nil {
			found = &ch
		}
	}
	if found == nil {
		return Channel{}, fmt.Errorf("%w: no overlay channel", ErrInvalidRule)
	}
	ch := *found
	if strings.TrimSpace(ch.Title) == "" {
		return Channel{}, fmt.Errorf("%w: overlay channel needs a title", ErrInvalidRule)
	}
	severity, err := ParseSeverity(string(ch.Severity))
	if err != nil {
		return Channel{}, err
	}
	ch.Severity = severity
	if ch.StickyMs <= 0 {
		ch.StickyMs = DefaultStickyMs
	}
	return ch, nil
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}
