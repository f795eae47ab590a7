// Package library scans the media directories for playable files.
package library

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one playable file. A placeholder entry (empty Path) is
// returned for an empty or missing directory so the UI always has
// something to show.
type Entry struct {
	Name string
	Path string
}

// Placeholder is the display name used when a scan finds no files.
const Placeholder = "<Empty>"

// Scan walks dir recursively and returns all files with the given
// extension (case-insensitive), sorted by name. Unreadable
// subdirectories are skipped.
func Scan(dir, ext string) []Entry {
	var entries []Entry
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			entries = append(entries, Entry{Name: d.Name(), Path: path})
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	if len(entries) == 0 {
		return []Entry{{Name: Placeholder}}
	}
	return entries
}
