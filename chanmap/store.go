// Package chanmap persists the 16-slot track-to-channel mapping edited
// from the setup screen and read by the playback engine.
package chanmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/tatosgames/midifileplayer/debug"
)

// NumSlots is the number of logical track slots and output channels.
const NumSlots = 16

// ErrStore is wrapped by persistence failures. Load never returns it;
// a missing or corrupt file falls back to the identity mapping.
var ErrStore = errors.New("chanmap: store error")

// Snapshot is a by-value copy of the mapping, indexed by slot-1.
// The engine holds one per session so live edits never affect playback.
type Snapshot [NumSlots]int

// Get returns the output channel (1-16) for a logical track slot (1-16).
// Out-of-range slots fold onto the 16 slots the way the appliance always
// has: track 17 shares slot 1.
func (s Snapshot) Get(track int) int {
	return s[slotIndex(track)]
}

func slotIndex(track int) int {
	idx := (track - 1) % NumSlots
	if idx < 0 {
		idx += NumSlots
	}
	return idx
}

func identity() Snapshot {
	var s Snapshot
	for i := range s {
		s[i] = i + 1
	}
	return s
}

// Store is the live, persisted mapping.
type Store struct {
	mu   sync.Mutex
	path string
	m    Snapshot
}

// NewStore creates a store persisting at path, initialized to identity.
func NewStore(path string) *Store {
	return &Store{path: path, m: identity()}
}

// Load replaces the in-memory map with the persisted one. A missing or
// unparseable file is not fatal: the identity mapping is used instead.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = identity()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			debug.L().Warn("channel map unreadable, using identity",
				zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		debug.L().Warn("channel map corrupt, using identity",
			zap.String("path", s.path), zap.Error(err))
		return
	}
	for k, v := range raw {
		track, err := strconv.Atoi(k)
		if err != nil || track < 1 || track > NumSlots || v < 1 || v > NumSlots {
			continue
		}
		s.m[track-1] = v
	}
}

// Set updates one slot in memory without persisting.
func (s *Store) Set(track, channel int) error {
	if track < 1 || track > NumSlots {
		return fmt.Errorf("track %d out of range 1-%d", track, NumSlots)
	}
	if channel < 1 || channel > NumSlots {
		return fmt.Errorf("channel %d out of range 1-%d", channel, NumSlots)
	}
	s.mu.Lock()
	s.m[track-1] = channel
	s.mu.Unlock()
	return nil
}

// Get returns the mapped channel for a track; never fails.
func (s *Store) Get(track int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Get(track)
}

// Snapshot returns a by-value copy for an engine session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

// Save writes the map to disk via a temp file and rename, so a crash
// mid-write cannot corrupt the previous persisted state.
func (s *Store) Save() error {
	s.mu.Lock()
	m := s.m
	s.mu.Unlock()

	raw := make(map[string]int, NumSlots)
	for i, ch := range m {
		raw[strconv.Itoa(i+1)] = ch
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
