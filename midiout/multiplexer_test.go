package midiout

import (
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type fakePort struct {
	name   string
	fail   bool
	msgs   []gomidi.Message
	closed bool
}

func (p *fakePort) String() string { return p.name }

func (p *fakePort) Send(msg gomidi.Message) error {
	if p.fail {
		return errors.New("device unplugged")
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func fixedOpener(ports ...Port) Opener {
	return func() []Port { return ports }
}

func TestSendFansOut(t *testing.T) {
	a := &fakePort{name: "a"}
	b := &fakePort{name: "b"}
	m := New(fixedOpener(a, b))
	if n := m.OpenAll(); n != 2 {
		t.Fatalf("OpenAll = %d, want 2", n)
	}

	m.Send(gomidi.NoteOn(0, 60, 100))
	if len(a.msgs) != 1 || len(b.msgs) != 1 {
		t.Errorf("ports got %d and %d messages, want 1 and 1", len(a.msgs), len(b.msgs))
	}
}

func TestSendFailureIsolated(t *testing.T) {
	bad := &fakePort{name: "bad", fail: true}
	good := &fakePort{name: "good"}
	m := New(fixedOpener(bad, good))
	m.OpenAll()

	// The failing port is dropped and closed; the good one keeps
	// receiving.
	m.Send(gomidi.NoteOn(0, 60, 100))
	m.Send(gomidi.NoteOff(0, 60))

	if len(good.msgs) != 2 {
		t.Errorf("surviving port got %d messages, want 2", len(good.msgs))
	}
	if !bad.closed {
		t.Error("failed port was not closed")
	}
	if names := m.Enumerate(); len(names) != 1 || names[0] != "good" {
		t.Errorf("Enumerate = %v, want [good]", names)
	}
}

func TestCloseAll(t *testing.T) {
	a := &fakePort{name: "a"}
	b := &fakePort{name: "b"}
	m := New(fixedOpener(a, b))
	m.OpenAll()

	m.CloseAll()
	if !a.closed || !b.closed {
		t.Error("CloseAll left ports open")
	}
	if len(m.Enumerate()) != 0 {
		t.Error("ports still enumerated after CloseAll")
	}

	// Idempotent, and sending with no ports is a no-op.
	m.CloseAll()
	m.Send(gomidi.NoteOn(0, 60, 100))
}

func TestOpenAllReplacesPorts(t *testing.T) {
	old := &fakePort{name: "old"}
	m := New(fixedOpener(old))
	m.OpenAll()

	m.open = fixedOpener(&fakePort{name: "new"})
	m.OpenAll()

	if !old.closed {
		t.Error("stale port not closed on re-open")
	}
	if names := m.Enumerate(); len(names) != 1 || names[0] != "new" {
		t.Errorf("Enumerate = %v, want [new]", names)
	}
}
