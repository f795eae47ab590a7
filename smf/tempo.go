package smf

import (
	"sort"
	"time"
)

// DefaultMicrosPerQuarter is assumed when a file carries no tempo event
// (120 BPM).
const DefaultMicrosPerQuarter = 500000

// Change is one tempo-map entry: from Tick onward a quarter note lasts
// Micros microseconds.
type Change struct {
	Tick   int64
	Micros uint32
}

// TempoMap is a piecewise-constant tempo function over absolute ticks.
// Entries are non-decreasing in tick and always include tick 0.
type TempoMap []Change

// buildTempoMap merges the tempo events of all tracks into one global
// timeline. Ties are broken by track index, then in-track order.
func buildTempoMap(tracks [][]Event) TempoMap {
	var m TempoMap
	for _, track := range tracks {
		for _, ev := range track {
			if ev.Kind == Tempo {
				m = append(m, Change{Tick: ev.Tick, Micros: ev.Micros})
			}
		}
	}
	// Tracks were appended in index order, so a stable sort on tick
	// alone preserves the track and in-track tie-breaks.
	sort.SliceStable(m, func(i, j int) bool { return m[i].Tick < m[j].Tick })

	if len(m) == 0 || m[0].Tick > 0 {
		m = append(TempoMap{{Tick: 0, Micros: DefaultMicrosPerQuarter}}, m...)
	}
	return m
}

// Duration converts an absolute tick position to elapsed wall-clock time
// by summing over tempo segments. A tempo change at tick T affects only
// ticks at or after T.
func (m TempoMap) Duration(tick int64, ticksPerQuarter uint16) time.Duration {
	if tick <= 0 || len(m) == 0 || ticksPerQuarter == 0 {
		return 0
	}
	var micros int64
	for i, c := range m {
		segStart := c.Tick
		if segStart >= tick {
			break
		}
		segEnd := tick
		if i+1 < len(m) && m[i+1].Tick < segEnd {
			segEnd = m[i+1].Tick
		}
		if segEnd > segStart {
			micros += (segEnd - segStart) * int64(c.Micros) / int64(ticksPerQuarter)
		}
	}
	return time.Duration(micros) * time.Microsecond
}

// TotalDuration is the wall-clock length of the file.
func (f *File) TotalDuration() time.Duration {
	return f.Tempo.Duration(f.TotalTicks, f.TicksPerQuarter)
}
