package smf

import (
	"testing"
	"time"
)

func TestDurationSingleTempo(t *testing.T) {
	m := TempoMap{{Tick: 0, Micros: 500000}}

	// 480 ticks at 480 ticks/quarter and 500000us/quarter is exactly
	// one quarter note.
	if d := m.Duration(480, 480); d != 500*time.Millisecond {
		t.Errorf("Duration(480) = %v, want 500ms", d)
	}
	if d := m.Duration(240, 480); d != 250*time.Millisecond {
		t.Errorf("Duration(240) = %v, want 250ms", d)
	}
	if d := m.Duration(0, 480); d != 0 {
		t.Errorf("Duration(0) = %v, want 0", d)
	}
}

func TestDurationPiecewise(t *testing.T) {
	// 5000us/tick until tick 100, then 2500us/tick.
	m := TempoMap{
		{Tick: 0, Micros: 500000},
		{Tick: 100, Micros: 250000},
	}
	const tpq = 100

	// Events before the change are unaffected by it.
	single := TempoMap{{Tick: 0, Micros: 500000}}
	for _, tick := range []int64{1, 50, 99, 100} {
		if got, want := m.Duration(tick, tpq), single.Duration(tick, tpq); got != want {
			t.Errorf("Duration(%d) = %v, want %v (same as single-tempo)", tick, got, want)
		}
	}

	// Events after the change accumulate across both segments.
	if d := m.Duration(200, tpq); d != 750*time.Millisecond {
		t.Errorf("Duration(200) = %v, want 750ms", d)
	}
	if d := m.Duration(150, tpq); d != 625*time.Millisecond {
		t.Errorf("Duration(150) = %v, want 625ms", d)
	}
}

func TestTempoMapDefault(t *testing.T) {
	// A file with no tempo event runs at 120 BPM.
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6,
		0, 0,
		0, 1,
		0, 96,
		'M', 'T', 'r', 'k', 0, 0, 0, 8,
		0, 0x90, 60, 100,
		0, 0xff, 0x2f, 0,
	}
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Tempo) != 1 || f.Tempo[0].Micros != DefaultMicrosPerQuarter {
		t.Errorf("tempo map = %+v, want default 500000 at tick 0", f.Tempo)
	}
}

func TestTempoMapLateFirstChange(t *testing.T) {
	// First explicit tempo after tick 0: the default fills the gap.
	m := buildTempoMap([][]Event{{
		{Track: 0, Tick: 96, Kind: Tempo, Micros: 250000},
	}})
	if len(m) != 2 {
		t.Fatalf("tempo map has %d entries, want 2", len(m))
	}
	if m[0] != (Change{Tick: 0, Micros: DefaultMicrosPerQuarter}) {
		t.Errorf("first entry = %+v, want default at tick 0", m[0])
	}
	if m[1] != (Change{Tick: 96, Micros: 250000}) {
		t.Errorf("second entry = %+v", m[1])
	}
}

func TestTempoMapMergeOrder(t *testing.T) {
	// Ties at the same tick keep track order so the later track wins.
	m := buildTempoMap([][]Event{
		{{Track: 0, Tick: 0, Kind: Tempo, Micros: 500000}},
		{{Track: 1, Tick: 0, Kind: Tempo, Micros: 400000}},
	})
	if len(m) != 2 {
		t.Fatalf("tempo map has %d entries, want 2", len(m))
	}
	if m[0].Micros != 500000 || m[1].Micros != 400000 {
		t.Errorf("merge order wrong: %+v", m)
	}
	// The zero-length first segment contributes nothing; the later
	// entry governs.
	if d := m.Duration(96, 96); d != 400*time.Millisecond {
		t.Errorf("Duration(96) = %v, want 400ms", d)
	}
}

func TestTotalDuration(t *testing.T) {
	f := &File{
		TicksPerQuarter: 96,
		TotalTicks:      192,
		Tempo:           TempoMap{{Tick: 0, Micros: 500000}},
	}
	if d := f.TotalDuration(); d != time.Second {
		t.Errorf("TotalDuration = %v, want 1s", d)
	}
}
