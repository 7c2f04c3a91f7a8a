package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"riftcoach/internal/livegame/objectives"
	tips "riftcoach/internal/tips/domain"
)

// Timings are the map timings the aggregator and tips engine share.
type Timings struct {
	Objectives objectives.Schedule
	Waves      tips.WaveSchedule
}

// DefaultTimings returns the Summoner's Rift timings.
func DefaultTimings() Timings {
	return Timings{Objectives: objectives.DefaultSchedule(), Waves: tips.DefaultWaveSchedule()}
}

type timingsFile struct {
	Objectives []objectiveOverride `yaml:"objectives"`
	Waves      *waveOverride       `yaml:"waves"`
}

type objectiveOverride struct {
	Name        string   `yaml:"name"`
	KillEvent   string   `yaml:"kill_event"`
	FirstSpawn  *float64 `yaml:"first_spawn"`
	Respawn     *float64 `yaml:"respawn"`
	DespawnWith *string  `yaml:"despawn_with"`
}

type waveOverride struct {
	FirstSpawn *float64 `yaml:"first_spawn"`
	Interval   *float64 `yaml:"interval"`
	Cutoff     *float64 `yaml:"cutoff"`
	Lookahead  *int     `yaml:"lookahead"`
}

// LoadTimings reads the overlay at path on top of the defaults. An empty path returns the defaults.
func LoadTimings(path string) (Timings, error) {
	timings := DefaultTimings()
	if path == "" {
		return timings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return timings, fmt.Errorf("config: read timings: %w", err)
	}
	return ApplyTimings(timings, data)
}

// ApplyTimings overlays YAML onto base. Objectives merge by name; unknown names are appended.
func ApplyTimings(base Timings, data []byte) (Timings, error) {
	var file timingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("config: parse timings: %w", err)
	}

	out := Timings{
		Objectives: objectives.Schedule{Objectives: append([]objectives.Spec(nil), base.Objectives.Objectives...)},
		Waves:      base.Waves,
	}
	for _, override := range file.Objectives {
		if override.Name == "" {
			return base, errors.New("config: timings objective without name")
		}
		idx := -1
		for i, spec := range out.Objectives.Objectives {
			if spec.Name == override.Name {
				idx = i
				break
			}
		}
		spec := objectives.Spec{Name: override.Name}
		if idx >= 0 {
			spec = out.Objectives.Objectives[idx]
		}
		if override.KillEvent != "" {
			spec.KillEvent = override.KillEvent
		}
		if override.FirstSpawn != nil {
			spec.FirstSpawn = *override.FirstSpawn
		}
		if override.Respawn != nil {
			spec.Respawn = *override.Respawn
		}
		if override.DespawnWith != nil {
			spec.DespawnWith = *override.DespawnWith
		}
		if spec.KillEvent == "" || spec.FirstSpawn <= 0 || spec.Respawn <= 0 {
			return base, fmt.Errorf("config: timings objective %q needs kill_event, first_spawn and respawn", spec.Name)
		}
		if idx >= 0 {
			out.Objectives.Objectives[idx] = spec
		} else {
			out.Objectives.Objectives = append(out.Objectives.Objectives, spec)
		}
	}

	if w := file.Waves; w != nil {
		if w.FirstSpawn != nil {
			out.Waves.FirstSpawn = *w.FirstSpawn
		}
		if w.Interval != nil {
			out.Waves.Interval = *w.Interval
		}
		if w.Cutoff != nil {
			out.Waves.Cutoff = *w.Cutoff
		}
		if w.Lookahead != nil {
			out.Waves.Lookahead = *w.Lookahead
		}
		if out.Waves.Interval <= 0 || out.Waves.Lookahead <= 0 {
			return base, errors.New("config: timings waves need a positive interval and lookahead")
		}
	}
	return out, nil
}
