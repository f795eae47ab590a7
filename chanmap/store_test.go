package chanmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIdentity(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "map.json"))
	for track := 1; track <= NumSlots; track++ {
		if got := s.Get(track); got != track {
			t.Errorf("Get(%d) = %d, want identity", track, got)
		}
	}
}

func TestSetGet(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "map.json"))
	for track := 1; track <= NumSlots; track++ {
		for channel := 1; channel <= NumSlots; channel++ {
			if err := s.Set(track, channel); err != nil {
				t.Fatalf("Set(%d, %d): %v", track, channel, err)
			}
			if got := s.Get(track); got != channel {
				t.Fatalf("Get(%d) = %d after Set(%d, %d)", track, got, track, channel)
			}
		}
	}
}

func TestSetValidates(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "map.json"))
	for _, c := range [][2]int{{0, 1}, {17, 1}, {1, 0}, {1, 17}, {-3, 5}} {
		if err := s.Set(c[0], c[1]); err == nil {
			t.Errorf("Set(%d, %d) accepted out-of-range value", c[0], c[1])
		}
	}
	// Failed sets must not disturb the mapping.
	if got := s.Get(1); got != 1 {
		t.Errorf("Get(1) = %d after rejected sets, want 1", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	s := NewStore(path)
	s.Set(3, 7)
	s.Set(16, 1)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// No stray temp file after a successful save.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}

	fresh := NewStore(path)
	fresh.Load()
	if got := fresh.Get(3); got != 7 {
		t.Errorf("Get(3) = %d after reload, want 7", got)
	}
	if got := fresh.Get(16); got != 1 {
		t.Errorf("Get(16) = %d after reload, want 1", got)
	}
	if got := fresh.Get(4); got != 4 {
		t.Errorf("Get(4) = %d after reload, want identity", got)
	}
}

func TestLoadCorruptFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	s.Load()
	for track := 1; track <= NumSlots; track++ {
		if got := s.Get(track); got != track {
			t.Errorf("Get(%d) = %d after corrupt load, want identity", track, got)
		}
	}
}

func TestLoadIgnoresOutOfRangeEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	os.WriteFile(path, []byte(`{"1": 5, "20": 3, "2": 99, "x": 1}`), 0644)
	s := NewStore(path)
	s.Load()
	if got := s.Get(1); got != 5 {
		t.Errorf("Get(1) = %d, want 5", got)
	}
	if got := s.Get(2); got != 2 {
		t.Errorf("Get(2) = %d, want identity for out-of-range entry", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "map.json"))
	s.Set(5, 9)
	snap := s.Snapshot()

	// Later edits must not leak into the snapshot.
	s.Set(5, 2)
	if got := snap.Get(5); got != 9 {
		t.Errorf("snapshot Get(5) = %d, want 9", got)
	}
	if got := s.Get(5); got != 2 {
		t.Errorf("store Get(5) = %d, want 2", got)
	}
}

func TestSnapshotFoldsTracks(t *testing.T) {
	var snap Snapshot
	for i := range snap {
		snap[i] = i + 1
	}
	// Track 17 shares slot 1.
	if got := snap.Get(17); got != 1 {
		t.Errorf("Get(17) = %d, want 1", got)
	}
}
