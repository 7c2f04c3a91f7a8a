package domain

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TriggerCannonWave     = "cannon_wave"
	TriggerObjectiveSpawn = "objective_spawn"
)

// LeadSeconds accepts either a single number or a list of numbers.
type LeadSeconds []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LeadSeconds) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single float64
		if err := value.Decode(&single); err != nil {
			return fmt.Errorf("leadSeconds: %w", err)
		}
		*l = LeadSeconds{single}
		return nil
	case yaml.SequenceNode:
		var list []float64
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("leadSeconds: %w", err)
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("leadSeconds: expected number or list, line %d", value.Line)
	}
}

// TriggerSpec is the declarative trigger as written in a rule document.
type TriggerSpec struct {
	Type        string      `yaml:"type" json:"type"`
	Objective   string      `yaml:"objective,omitempty" json:"objective,omitempty"`
	LeadSeconds LeadSeconds `yaml:"leadSeconds" json:"leadSeconds"`
}

// Trigger is the closed set of compiled trigger variants.
type Trigger interface {
	Type() string
	Leads() []float64
	sealed()
}

// CannonWave fires ahead of upcoming cannon minion waves.
type CannonWave struct {
	LeadSeconds []float64
}

func (CannonWave) Type() string       { return TriggerCannonWave }
func (t CannonWave) Leads() []float64 { return t.LeadSeconds }
func (CannonWave) sealed()            {}

// ObjectiveSpawn fires ahead of the next spawn of a named objective.
type ObjectiveSpawn struct {
	Objective   string
	LeadSeconds []float64
}

func (ObjectiveSpawn) Type() string       { return TriggerObjectiveSpawn }
func (t ObjectiveSpawn) Leads() []float64 { return t.LeadSeconds }
func (ObjectiveSpawn) sealed()            {}

// Build validates the spec and returns its compiled variant. knownObjective reports
// whether an objective name is tracked.
func (s TriggerSpec) Build(knownObjective func(string) bool) (Trigger, error) {
	leads, err := normalizeLeads(s.LeadSeconds)
	if err != nil {
		return nil, err
	}
	switch strings.TrimSpace(s.Type) {
	case TriggerCannonWave:
		return CannonWave{LeadSeconds: leads}, nil
	case TriggerObjectiveSpawn:
		name := strings.ToLower(strings.TrimSpace(s.Objective))
		if name == "" || knownObjective == nil || !knownObjective(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownObjective, s.Objective)
		}
		return ObjectiveSpawn{Objective: name, LeadSeconds: leads}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, s.Type)
	}
}

// normalizeLeads requires positive lead times and returns them sorted and unique.
func normalizeLeads(leads LeadSeconds) ([]float64, error) {
	if len(leads) == 0 {
		return nil, fmt.Errorf("%w: leadSeconds is required", ErrInvalidRule)
	}
	out := make([]float64, 0, len(leads))
	seen := make(map[float64]struct{}, len(leads))
	for _, lead := range leads {
		if lead <= 0 {
			return nil, fmt.Errorf("%w: leadSeconds must be positive, got %v", ErrInvalidRule, lead)
		}
		if _, dup := seen[lead]; dup {
			continue
		}
		seen[lead] = struct{}{}
		out = append(out, lead)
	}
	sort.Float64s(out)
	return out, nil
}
