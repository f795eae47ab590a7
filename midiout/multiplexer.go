// Package midiout fans playback events out to every attached MIDI
// output port. Ports come and go (hot-plug); failures are isolated per
// port and never abort a playback session.
package midiout

import (
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"

	"github.com/tatosgames/midifileplayer/debug"
)

// Port is one live MIDI output endpoint.
type Port interface {
	String() string
	Send(msg gomidi.Message) error
	Close() error
}

// Opener enumerates and opens the currently attached output ports.
// Ports that fail to open are expected to be skipped, not reported.
type Opener func() []Port

// SystemOpener opens every system MIDI output port whose name does not
// match the exclude prefix. The ALSA "Midi Through" loopback is excluded
// by the caller so playback doesn't feed back into the machine.
func SystemOpener(exclude string) Opener {
	return func() []Port {
		var ports []Port
		for _, out := range gomidi.GetOutPorts() {
			if exclude != "" && strings.HasPrefix(out.String(), exclude) {
				continue
			}
			p, err := openSystemPort(out)
			if err != nil {
				debug.L().Warn("skipping MIDI port",
					zap.String("port", out.String()), zap.Error(err))
				continue
			}
			ports = append(ports, p)
		}
		return ports
	}
}

type systemPort struct {
	out  drivers.Out
	send func(msg gomidi.Message) error
}

func openSystemPort(out drivers.Out) (Port, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, err
	}
	return &systemPort{out: out, send: send}, nil
}

func (p *systemPort) String() string                { return p.out.String() }
func (p *systemPort) Send(msg gomidi.Message) error { return p.send(msg) }
func (p *systemPort) Close() error                  { return p.out.Close() }

// Multiplexer owns the open port set for the lifetime of the process.
// Sends may interleave with OpenAll/CloseAll from other goroutines.
type Multiplexer struct {
	open Opener

	mu    sync.Mutex
	ports []Port
}

func New(open Opener) *Multiplexer {
	return &Multiplexer{open: open}
}

// Enumerate returns the names of the currently open ports.
func (m *Multiplexer) Enumerate() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.ports))
	for i, p := range m.ports {
		names[i] = p.String()
	}
	return names
}

// OpenAll replaces the open port set with a fresh enumeration and
// returns how many ports are open. Zero open ports is not an error;
// playback timing still runs, there is just nothing to hear.
func (m *Multiplexer) OpenAll() int {
	ports := m.open()
	m.mu.Lock()
	old := m.ports
	m.ports = ports
	m.mu.Unlock()

	for _, p := range old {
		p.Close()
	}
	for _, p := range ports {
		debug.L().Info("MIDI output open", zap.String("port", p.String()))
	}
	return len(ports)
}

// Send forwards one message to every open port. A port that fails
// (typically unplugged mid-send) is closed and dropped; the remaining
// ports still receive the message.
func (m *Multiplexer) Send(msg gomidi.Message) {
	m.mu.Lock()
	ports := m.ports
	m.mu.Unlock()

	var dead []Port
	for _, p := range ports {
		if err := p.Send(msg); err != nil {
			debug.L().Warn("dropping MIDI port after send failure",
				zap.String("port", p.String()), zap.Error(err))
			dead = append(dead, p)
		}
	}
	if len(dead) == 0 {
		return
	}

	m.mu.Lock()
	kept := m.ports[:0]
	for _, p := range m.ports {
		failed := false
		for _, d := range dead {
			if p == d {
				failed = true
				break
			}
		}
		if !failed {
			kept = append(kept, p)
		}
	}
	m.ports = kept
	m.mu.Unlock()

	for _, p := range dead {
		p.Close()
	}
}

// CloseAll releases every open port. Called on every session exit path;
// safe to call repeatedly.
func (m *Multiplexer) CloseAll() {
	m.mu.Lock()
	ports := m.ports
	m.ports = nil
	m.mu.Unlock()

	for _, p := range ports {
		p.Close()
	}
}
