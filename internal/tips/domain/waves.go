package domain

import "math"

// WaveSchedule describes the periodic cannon waves.
type WaveSchedule struct {
	FirstSpawn float64 `yaml:"first_spawn"`
	Interval   float64 `yaml:"interval"`
	Cutoff     float64 `yaml:"cutoff"`
	Lookahead  int     `yaml:"lookahead"`
}

// DefaultWaveSchedule returns the Summoner's Rift cannon wave timings.
func DefaultWaveSchedule() WaveSchedule {
	return WaveSchedule{FirstSpawn: 125, Interval: 90, Cutoff: 900, Lookahead: 3}
}

// Wave is one concrete wave occurrence.
type Wave struct {
	Index int
	At    float64
}

// Upcoming returns at most Lookahead waves strictly after now and before Cutoff.
func (w WaveSchedule) Upcoming(now float64) []Wave {
	if w.Interval <= 0 || w.Lookahead <= 0 {
		return nil
	}
	index := 0
	if now >= w.FirstSpawn {
		index = int(math.Floor((now-w.FirstSpawn)/w.Interval)) + 1
	}
	waves := make([]Wave, 0, w.Lookahead)
	for ; len(waves) < w.Lookahead; index++ {
		at := w.FirstSpawn + float64(index)*w.Interval
		if at >= w.Cutoff {
			break
		}
		if at <= now {
			continue
		}
		waves = append(waves, Wave{Index: index, At: at})
	}
	return waves
}
