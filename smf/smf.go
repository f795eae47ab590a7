// Package smf reads standard MIDI files into per-track event timelines
// plus a merged tempo map. Parsing is all-or-nothing: a malformed file
// yields ErrFormat and no partial result.
package smf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("smf: bad format")

// EventKind identifies what an Event carries.
type EventKind uint8

const (
	NoteOff EventKind = iota
	NoteOn
	PolyAftertouch
	ControlChange
	ProgramChange
	Aftertouch
	PitchBend
	Tempo
	EndOfTrack
	Meta // any other meta or sysex payload, consumed for timing only
)

// IsChannel reports whether the kind addresses a MIDI channel and is
// therefore subject to remapping and forwarding.
func (k EventKind) IsChannel() bool {
	return k <= PitchBend
}

func (k EventKind) String() string {
	switch k {
	case NoteOff:
		return "note-off"
	case NoteOn:
		return "note-on"
	case PolyAftertouch:
		return "poly-aftertouch"
	case ControlChange:
		return "control-change"
	case ProgramChange:
		return "program-change"
	case Aftertouch:
		return "aftertouch"
	case PitchBend:
		return "pitch-bend"
	case Tempo:
		return "tempo"
	case EndOfTrack:
		return "end-of-track"
	}
	return "meta"
}

// Event is a single timestamped instruction within a track. Tick is
// absolute (delta times are accumulated during parsing).
type Event struct {
	Track   int
	Tick    int64
	Kind    EventKind
	Channel uint8 // 0-based wire channel, valid for channel kinds
	Data1   uint8 // note / controller / program
	Data2   uint8 // velocity / value
	Micros  uint32 // microseconds per quarter, valid for Tempo
}

// File is a fully parsed MIDI file.
type File struct {
	TicksPerQuarter uint16
	Tracks          [][]Event
	Tempo           TempoMap
	TotalTicks      int64
}

// Parse decodes raw SMF bytes. SMPTE time divisions and format-2 files
// are unsupported and fail with ErrFormat.
func Parse(data []byte) (*File, error) {
	if len(data) < 14 || string(data[0:4]) != "MThd" {
		return nil, fmt.Errorf("%w: missing MThd header", ErrFormat)
	}
	if binary.BigEndian.Uint32(data[4:8]) != 6 {
		return nil, fmt.Errorf("%w: bad header chunk size", ErrFormat)
	}
	format := binary.BigEndian.Uint16(data[8:10])
	if format > 1 {
		return nil, fmt.Errorf("%w: unsupported file format %d", ErrFormat, format)
	}
	trackCount := int(binary.BigEndian.Uint16(data[10:12]))
	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 != 0 {
		return nil, fmt.Errorf("%w: SMPTE time division unsupported", ErrFormat)
	}
	if division == 0 {
		return nil, fmt.Errorf("%w: zero ticks per quarter note", ErrFormat)
	}

	f := &File{
		TicksPerQuarter: division,
		Tracks:          make([][]Event, 0, trackCount),
	}
	offset := 14
	for i := 0; i < trackCount; i++ {
		track, next, err := parseTrack(data, offset, i)
		if err != nil {
			return nil, err
		}
		f.Tracks = append(f.Tracks, track)
		offset = next
	}

	f.Tempo = buildTempoMap(f.Tracks)
	for _, track := range f.Tracks {
		for _, ev := range track {
			if ev.Tick > f.TotalTicks {
				f.TotalTicks = ev.Tick
			}
		}
	}
	return f, nil
}

func parseTrack(data []byte, offset, index int) ([]Event, int, error) {
	if offset+8 > len(data) || string(data[offset:offset+4]) != "MTrk" {
		return nil, 0, fmt.Errorf("%w: track %d: missing MTrk chunk", ErrFormat, index)
	}
	length := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
	start := offset + 8
	end := start + length
	if end > len(data) {
		return nil, 0, fmt.Errorf("%w: track %d: chunk exceeds file", ErrFormat, index)
	}
	chunk := data[start:end]

	// Roughly 3 bytes per event in typical files.
	events := make([]Event, 0, length/3)
	var tick int64
	var running byte
	pos := 0
	for pos < len(chunk) {
		delta, n, err := readVarLen(chunk[pos:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: track %d: %v", ErrFormat, index, err)
		}
		pos += n
		tick += int64(delta)

		if pos >= len(chunk) {
			return nil, 0, fmt.Errorf("%w: track %d: truncated event", ErrFormat, index)
		}
		status := chunk[pos]
		if status < 0x80 {
			if running == 0 {
				return nil, 0, fmt.Errorf("%w: track %d: data byte without running status", ErrFormat, index)
			}
			status = running
		} else {
			pos++
		}

		switch {
		case status == 0xFF:
			running = 0
			ev, n, err := parseMeta(chunk[pos:], index, tick)
			if err != nil {
				return nil, 0, err
			}
			pos += n
			events = append(events, ev)
			if ev.Kind == EndOfTrack {
				return events, end, nil
			}
		case status == 0xF0 || status == 0xF7:
			running = 0
			length, n, err := readVarLen(chunk[pos:])
			if err != nil || pos+n+int(length) > len(chunk) {
				return nil, 0, fmt.Errorf("%w: track %d: truncated sysex", ErrFormat, index)
			}
			pos += n + int(length)
			events = append(events, Event{Track: index, Tick: tick, Kind: Meta})
		default:
			running = status
			ev, n, err := parseChannelEvent(status, chunk[pos:], index, tick)
			if err != nil {
				return nil, 0, err
			}
			pos += n
			events = append(events, ev)
		}
	}
	return events, end, nil
}

func parseMeta(chunk []byte, index int, tick int64) (Event, int, error) {
	if len(chunk) < 1 {
		return Event{}, 0, fmt.Errorf("%w: track %d: truncated meta event", ErrFormat, index)
	}
	metaType := chunk[0]
	length, n, err := readVarLen(chunk[1:])
	if err != nil || 1+n+int(length) > len(chunk) {
		return Event{}, 0, fmt.Errorf("%w: track %d: truncated meta event", ErrFormat, index)
	}
	payload := chunk[1+n : 1+n+int(length)]
	consumed := 1 + n + int(length)

	ev := Event{Track: index, Tick: tick, Kind: Meta}
	switch metaType {
	case 0x51:
		if length != 3 {
			return Event{}, 0, fmt.Errorf("%w: track %d: bad tempo event length %d", ErrFormat, index, length)
		}
		ev.Kind = Tempo
		ev.Micros = uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
	case 0x2F:
		ev.Kind = EndOfTrack
	}
	return ev, consumed, nil
}

func parseChannelEvent(status byte, chunk []byte, index int, tick int64) (Event, int, error) {
	ev := Event{Track: index, Tick: tick, Channel: status & 0x0F}
	dataLen := 2
	switch status & 0xF0 {
	case 0x80:
		ev.Kind = NoteOff
	case 0x90:
		ev.Kind = NoteOn
	case 0xA0:
		ev.Kind = PolyAftertouch
	case 0xB0:
		ev.Kind = ControlChange
	case 0xC0:
		ev.Kind = ProgramChange
		dataLen = 1
	case 0xD0:
		ev.Kind = Aftertouch
		dataLen = 1
	case 0xE0:
		ev.Kind = PitchBend
	default:
		return Event{}, 0, fmt.Errorf("%w: track %d: unexpected status byte 0x%02x", ErrFormat, index, status)
	}
	if dataLen > len(chunk) {
		return Event{}, 0, fmt.Errorf("%w: track %d: truncated channel event", ErrFormat, index)
	}
	ev.Data1 = chunk[0]
	if dataLen == 2 {
		ev.Data2 = chunk[1]
	}
	return ev, dataLen, nil
}

// readVarLen decodes a variable-length quantity (at most 4 bytes).
func readVarLen(data []byte) (uint32, int, error) {
	var value uint32
	for i := 0; i < len(data) && i < 4; i++ {
		value = value<<7 | uint32(data[i]&0x7F)
		if data[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.New("truncated variable-length quantity")
}
