// Package player drives real-time playback of a parsed MIDI file:
// it merges all tracks into one chronological cursor, converts ticks to
// wall-clock time through the tempo map, remaps each track's channel and
// fans the events out to the open output ports.
package player

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/tatosgames/midifileplayer/chanmap"
	"github.com/tatosgames/midifileplayer/debug"
	"github.com/tatosgames/midifileplayer/smf"
)

// ErrBusy is returned when a load or start is requested while another
// session is playing or paused. Policy: the caller cancels the old
// session explicitly; nothing is ever cancelled implicitly.
var ErrBusy = errors.New("player: session already active")

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// State of the engine. Stopped is re-loadable; Error is terminal.
type State int

const (
	Idle State = iota
	Loaded
	Playing
	Paused
	Stopped
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "error"
}

// Sink receives the emitted events. midiout.Multiplexer implements it.
type Sink interface {
	Send(msg gomidi.Message)
	CloseAll()
}

type scheduled struct {
	ev  smf.Event
	due time.Duration
}

type session struct {
	events []scheduled
	total  time.Duration
	snap   chanmap.Snapshot

	epoch    time.Time // playback start, shifted forward on resume
	pausedAt time.Time
	pos      time.Duration // progress high-water mark

	stop  chan struct{}
	pause chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	endOnce  sync.Once

	// wire channels that saw a note-on; silenced on every exit path
	noteChans [16]bool
}

// Player runs at most one playback session at a time.
type Player struct {
	sink Sink

	mu      sync.Mutex
	state   State
	session *session
}

func New(sink Sink) *Player {
	return &Player{sink: sink}
}

// Load builds a session for the parsed file: one merged cursor across
// all tracks (stable by tick, ties by track index) with each event's
// wall-clock due time precomputed through the tempo map, and a by-value
// snapshot of the channel map so later edits don't touch this session.
func (p *Player) Load(file *smf.File, snap chanmap.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing || p.state == Paused {
		return ErrBusy
	}

	n := 0
	for _, t := range file.Tracks {
		n += len(t)
	}
	merged := make([]smf.Event, 0, n)
	for _, t := range file.Tracks {
		merged = append(merged, t...)
	}
	// Tracks were appended in index order, so a stable sort on tick
	// alone keeps the track and in-track tie ordering.
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Tick < merged[j].Tick })

	events := make([]scheduled, len(merged))
	for i, ev := range merged {
		events[i] = scheduled{ev: ev, due: file.Tempo.Duration(ev.Tick, file.TicksPerQuarter)}
	}

	p.session = &session{
		events: events,
		total:  file.TotalDuration(),
		snap:   snap,
		stop:   make(chan struct{}),
		pause:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	p.state = Loaded
	return nil
}

// Start begins emitting events in a background goroutine.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Playing, Paused:
		return ErrBusy
	case Loaded:
	default:
		return fmt.Errorf("player: nothing loaded (state %s)", p.state)
	}
	s := p.session
	s.epoch = time.Now()
	p.state = Playing
	go p.run(s)
	return nil
}

func (p *Player) run(s *session) {
	defer func() {
		if r := recover(); r != nil {
			debug.L().Error("playback panic", zap.Any("panic", r))
			p.sink.CloseAll()
			p.mu.Lock()
			p.state = Error
			p.mu.Unlock()
			s.endOnce.Do(func() { close(s.done) })
		}
	}()

	canceled := false
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

loop:
	for i := range s.events {
		ev := s.events[i].ev
		due := s.events[i].due

		p.mu.Lock()
		deadline := s.epoch.Add(due)
		p.mu.Unlock()
		timer.Reset(time.Until(deadline))

	wait:
		for {
			select {
			case <-timer.C:
				break wait
			case <-s.stop:
				canceled = true
				break loop
			case <-s.pause:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				// Wake-ups on s.pause can be stale, so the state
				// decides; Resume has already shifted the epoch by
				// the time it flips the state back.
				for {
					p.mu.Lock()
					paused := p.state == Paused
					deadline = s.epoch.Add(due)
					p.mu.Unlock()
					if !paused {
						timer.Reset(time.Until(deadline))
						continue wait
					}
					select {
					case <-s.stop:
						canceled = true
						break loop
					case <-s.pause:
					}
				}
			}
		}

		p.emit(s, ev)
		p.mu.Lock()
		if due > s.pos {
			s.pos = due
		}
		p.mu.Unlock()
	}
	p.finish(s, canceled)
}

// emit remaps one due event and forwards it. Tempo and other meta
// events are consumed for timing only.
func (p *Player) emit(s *session, ev smf.Event) {
	if !ev.Kind.IsChannel() {
		return
	}
	slot := ev.Track%chanmap.NumSlots + 1
	wire := uint8(s.snap.Get(slot) - 1)

	var msg gomidi.Message
	switch ev.Kind {
	case smf.NoteOn:
		if ev.Data2 == 0 {
			msg = gomidi.NoteOffVelocity(wire, ev.Data1, 0)
		} else {
			s.noteChans[wire] = true
			msg = gomidi.NoteOn(wire, ev.Data1, ev.Data2)
		}
	case smf.NoteOff:
		msg = gomidi.NoteOffVelocity(wire, ev.Data1, ev.Data2)
	case smf.PolyAftertouch:
		msg = gomidi.PolyAfterTouch(wire, ev.Data1, ev.Data2)
	case smf.ControlChange:
		msg = gomidi.ControlChange(wire, ev.Data1, ev.Data2)
	case smf.ProgramChange:
		msg = gomidi.ProgramChange(wire, ev.Data1)
	case smf.Aftertouch:
		msg = gomidi.AfterTouch(wire, ev.Data1)
	case smf.PitchBend:
		raw := int16(ev.Data2)<<7 | int16(ev.Data1)
		msg = gomidi.Pitchbend(wire, raw-8192)
	default:
		return
	}
	p.sink.Send(msg)
}

// finish silences every channel that sounded a note, releases the
// output ports and settles the terminal state. Runs on cancellation and
// on normal end-of-events alike.
func (p *Player) finish(s *session, canceled bool) {
	for ch := 0; ch < 16; ch++ {
		if s.noteChans[ch] {
			p.sink.Send(gomidi.ControlChange(uint8(ch), ccAllNotesOff, 0))
			p.sink.Send(gomidi.ControlChange(uint8(ch), ccAllSoundOff, 0))
		}
	}
	p.sink.CloseAll()

	p.mu.Lock()
	p.state = Stopped
	if !canceled {
		s.pos = s.total
	}
	p.mu.Unlock()

	debug.L().Info("playback finished", zap.Bool("canceled", canceled))
	s.endOnce.Do(func() { close(s.done) })
}

// Pause freezes the wall-clock reference; Resume continues from the
// same tick position without skipping the paused duration.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing {
		return
	}
	s := p.session
	s.pausedAt = time.Now()
	if e := s.pausedAt.Sub(s.epoch); e > s.pos && e <= s.total {
		s.pos = e
	}
	p.state = Paused
	select {
	case s.pause <- struct{}{}:
	default:
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Paused {
		return
	}
	s := p.session
	s.epoch = s.epoch.Add(time.Since(s.pausedAt))
	p.state = Playing
	select {
	case s.pause <- struct{}{}:
	default:
	}
}

// Cancel is callable from any non-terminal state. A running loop stops
// at its next wake-up and emits nothing further except the channel
// cleanup in finish.
func (p *Player) Cancel() {
	p.mu.Lock()
	s := p.session
	state := p.state
	switch state {
	case Playing, Paused:
		p.mu.Unlock()
		s.stopOnce.Do(func() { close(s.stop) })
		return
	case Idle, Loaded:
		p.state = Stopped
		p.mu.Unlock()
		p.sink.CloseAll()
		if s != nil {
			s.endOnce.Do(func() { close(s.done) })
		}
		return
	}
	p.mu.Unlock()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed when the current session ends on any path. Returns a
// closed channel when no session was ever loaded.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.session.done
}

// Progress reports elapsed and total wall-clock time for the session,
// plus the completion fraction. Non-decreasing while playing.
func (p *Player) Progress() (elapsed, total time.Duration, frac float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.session
	if s == nil {
		return 0, 0, 0
	}
	elapsed = s.pos
	if p.state == Playing {
		if e := time.Since(s.epoch); e > elapsed {
			elapsed = e
		}
	}
	if elapsed > s.total {
		elapsed = s.total
	}
	total = s.total
	switch {
	case total > 0:
		frac = float64(elapsed) / float64(total)
	case p.state == Stopped:
		frac = 1
	}
	return elapsed, total, frac
}
