// Package objectives computes spawn timers for recurring map objectives from the elapsed
// game time and the upstream event log.
package objectives

import (
	"math"

	"riftcoach/internal/livegame/domain"
)

const (
	Dragon = "dragon"
	Herald = "herald"
	Baron  = "baron"
)

// Spec describes one recurring objective.
type Spec struct {
	Name       string  `yaml:"name"`
	KillEvent  string  `yaml:"kill_event"`
	FirstSpawn float64 `yaml:"first_spawn"`
	Respawn    float64 `yaml:"respawn"`
	// DespawnWith names the objective whose first spawn ends this one's availability.
	DespawnWith string `yaml:"despawn_with,omitempty"`
}

// Schedule is the set of tracked objectives.
type Schedule struct {
	Objectives []Spec `yaml:"objectives"`
}

// DefaultSchedule returns the Summoner's Rift timings.
func DefaultSchedule() Schedule {
	return Schedule{Objectives: []Spec{
		{Name: Dragon, KillEvent: domain.EventDragonKill, FirstSpawn: 300, Respawn: 300},
		{Name: Herald, KillEvent: domain.EventHeraldKill, FirstSpawn: 480, Respawn: 360, DespawnWith: Baron},
		{Name: Baron, KillEvent: domain.EventBaronKill, FirstSpawn: 1200, Respawn: 360},
	}}
}

// Names lists the tracked objective names in schedule order.
func (s Schedule) Names() []string {
	names := make([]string, 0, len(s.Objectives))
	for _, spec := range s.Objectives {
		names = append(names, spec.Name)
	}
	return names
}

// Has reports whether the schedule tracks the named objective.
func (s Schedule) Has(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

func (s Schedule) lookup(name string) (Spec, bool) {
	for _, spec := range s.Objectives {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

type killRecord struct {
	at    float64
	count int
}

// Compute returns the timer of every scheduled objective at game time now.
// The event log is scanned once; the last kill of each type wins.
func Compute(now float64, events []domain.Event, schedule Schedule) map[string]domain.ObjectiveTimer {
	byEvent := make(map[string]string, len(schedule.Objectives))
	for _, spec := range schedule.Objectives {
		if spec.KillEvent != "" {
			byEvent[spec.KillEvent] = spec.Name
		}
	}

	kills := make(map[string]killRecord, len(schedule.Objectives))
	for _, evt := range events {
		name, ok := byEvent[evt.EventName]
		if !ok {
			continue
		}
		rec := kills[name]
		rec.at = evt.EventTime
		rec.count++
		kills[name] = rec
	}

	timers := make(map[string]domain.ObjectiveTimer, len(schedule.Objectives))
	for _, spec := range schedule.Objectives {
		rec, killed := kills[spec.Name]
		next := nextSpawn(now, spec, rec, killed)

		timer := domain.ObjectiveTimer{
			Name:      spec.Name,
			KillCount: rec.count,
		}
		if killed {
			at := rec.at
			timer.LastKillTime = &at
		}
		if spec.DespawnWith != "" {
			if deadlineSpec, ok := schedule.lookup(spec.DespawnWith); ok {
				deadline := deadlineSpec.FirstSpawn
				timer.DespawnTime = &deadline
				next = math.Min(next, deadline)
				timer.Despawned = now >= deadline
			}
		}
		timer.NextSpawnTime = next
		timer.TimeToSpawn = domain.FormatClock(next - now)
		timers[spec.Name] = timer
	}
	return timers
}

// nextSpawn: first spawn while it is still ahead, otherwise last kill plus cadence.
// An objective never killed keeps reporting its first spawn.
func nextSpawn(now float64, spec Spec, rec killRecord, killed bool) float64 {
	if now < spec.FirstSpawn {
		return spec.FirstSpawn
	}
	if killed {
		return rec.at + spec.Respawn
	}
	return spec.FirstSpawn
}
