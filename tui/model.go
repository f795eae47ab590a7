// Package tui is the menu, browser and setup interface: a bubbletea
// translation of the original four-button/display appliance UI.
package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatosgames/midifileplayer/audio"
	"github.com/tatosgames/midifileplayer/chanmap"
	"github.com/tatosgames/midifileplayer/config"
	"github.com/tatosgames/midifileplayer/library"
	"github.com/tatosgames/midifileplayer/midiout"
	"github.com/tatosgames/midifileplayer/player"
	"github.com/tatosgames/midifileplayer/smf"
	"github.com/tatosgames/midifileplayer/theme"
)

type mode int

const (
	modeMenu mode = iota
	modeMIDI
	modeAudio
	modeSetup
)

var menuItems = []string{"MIDI FILE", "AUDIO FILE", "SETUP"}

type tickMsg time.Time

type Model struct {
	Cfg    *config.Config
	Store  *chanmap.Store
	Engine *player.Player
	Mux    *midiout.Multiplexer
	MP3    *audio.Player
	Theme  *theme.Theme

	mode    mode
	cursor  int
	editing bool // setup: channel value being edited

	midiFiles  []library.Entry
	audioFiles []library.Entry

	errMsg string

	width  int
	height int

	quitting bool
}

func NewModel(cfg *config.Config, store *chanmap.Store, engine *player.Player,
	mux *midiout.Multiplexer, mp3 *audio.Player, th *theme.Theme) Model {
	return Model{
		Cfg:    cfg,
		Store:  store,
		Engine: engine,
		Mux:    mux,
		MP3:    mp3,
		Theme:  th,
		width:  60,
		height: 20,
	}
}

// The original hardware refreshed its display every 50ms; 100ms is
// plenty for a progress bar.
func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "q" || key == "ctrl+c" {
		m.quitting = true
		m.stopAll()
		m.Store.Save()
		return m, tea.Quit
	}

	switch m.mode {
	case modeMenu:
		m.handleMenuKey(key)
	case modeMIDI, modeAudio:
		m.handleListKey(key)
	case modeSetup:
		m.handleSetupKey(key)
	}
	return m, nil
}

func (m *Model) handleMenuKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.errMsg = ""
		switch menuItems[m.cursor] {
		case "MIDI FILE":
			m.midiFiles = library.Scan(m.Cfg.MIDIDir, ".mid")
			m.mode = modeMIDI
		case "AUDIO FILE":
			m.audioFiles = library.Scan(m.Cfg.AudioDir, ".mp3")
			m.mode = modeAudio
		case "SETUP":
			m.mode = modeSetup
		}
		m.cursor = 0
	}
}

func (m *Model) handleListKey(key string) {
	files := m.files()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(files)-1 {
			m.cursor++
		}
	case "enter":
		entry := files[m.cursor]
		if entry.Path == "" {
			return
		}
		if m.mode == modeMIDI {
			m.playMIDI(entry.Path)
		} else {
			m.playAudio(entry.Path)
		}
	case " ":
		switch m.Engine.State() {
		case player.Playing:
			m.Engine.Pause()
		case player.Paused:
			m.Engine.Resume()
		}
	case "esc":
		m.stopAll()
		m.mode = modeMenu
		m.cursor = 0
		m.errMsg = ""
	}
}

func (m *Model) handleSetupKey(key string) {
	if m.editing {
		track := m.cursor + 1
		switch key {
		case "up", "k":
			if ch := m.Store.Get(track); ch > 1 {
				m.Store.Set(track, ch-1)
			}
		case "down", "j":
			if ch := m.Store.Get(track); ch < chanmap.NumSlots {
				m.Store.Set(track, ch+1)
			}
		case "enter", " ", "esc":
			m.editing = false
			if err := m.Store.Save(); err != nil {
				m.errMsg = "map not saved"
			}
		}
		return
	}
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < chanmap.NumSlots-1 {
			m.cursor++
		}
	case "enter", " ":
		m.editing = true
	case "esc":
		m.mode = modeMenu
		m.cursor = 0
	}
}

func (m *Model) files() []library.Entry {
	if m.mode == modeMIDI {
		return m.midiFiles
	}
	return m.audioFiles
}

// playMIDI cancels whatever is sounding, parses the file and starts a
// fresh session. The engine rejects a load while a session is active,
// so the old one is cancelled and waited out first.
func (m *Model) playMIDI(path string) {
	m.MP3.Stop()
	if st := m.Engine.State(); st == player.Playing || st == player.Paused {
		m.Engine.Cancel()
		<-m.Engine.Done()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.errMsg = "cannot read file"
		return
	}
	file, err := smf.Parse(data)
	if err != nil {
		if errors.Is(err, smf.ErrFormat) {
			m.errMsg = "unsupported MIDI file"
		} else {
			m.errMsg = "cannot play file"
		}
		return
	}

	m.Mux.OpenAll()
	if err := m.Engine.Load(file, m.Store.Snapshot()); err != nil {
		m.errMsg = "player busy"
		return
	}
	if err := m.Engine.Start(); err != nil {
		m.errMsg = "player busy"
		return
	}
	m.errMsg = ""
}

func (m *Model) playAudio(path string) {
	m.stopAll()
	if err := m.MP3.Play(path); err != nil {
		m.errMsg = "mpg123 not available"
		return
	}
	m.errMsg = ""
}

func (m *Model) stopAll() {
	m.Engine.Cancel()
	m.MP3.Stop()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Peak())

	var out strings.Builder
	out.WriteString(headerStyle.Render(m.title()))
	out.WriteString("\n\n")

	switch m.mode {
	case modeMenu:
		out.WriteString(m.renderList(menuItems))
	case modeMIDI, modeAudio:
		names := make([]string, len(m.files()))
		for i, e := range m.files() {
			names[i] = e.Name
		}
		out.WriteString(m.renderList(names))
	case modeSetup:
		out.WriteString(m.renderSetup())
	}

	if m.errMsg != "" {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.errMsg))
	}

	if bar := m.renderProgress(); bar != "" {
		out.WriteString("\n\n")
		out.WriteString(bar)
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(m.help()))
	return out.String()
}

func (m Model) title() string {
	switch m.mode {
	case modeMIDI:
		return "MIDI FILE"
	case modeAudio:
		return "AUDIO FILE"
	case modeSetup:
		return "SETUP"
	}
	return "midifileplayer"
}

func (m Model) help() string {
	switch m.mode {
	case modeMenu:
		return "j/k:move  enter:select  q:quit"
	case modeSetup:
		if m.editing {
			return "j/k:change channel  enter:save"
		}
		return "j/k:move  enter:edit  esc:back  q:quit"
	}
	return "j/k:move  enter:play  space:pause  esc:stop+back  q:quit"
}

// renderList windows the items around the cursor the way the original
// scrolled its display rows.
func (m Model) renderList(items []string) string {
	selStyle := lipgloss.NewStyle().Foreground(m.Theme.BG()).Background(m.Theme.FG())
	style := lipgloss.NewStyle().Foreground(m.Theme.FG())

	maxRows := m.height - 8
	if maxRows < 3 {
		maxRows = 3
	}
	off := 0
	if len(items) > maxRows && m.cursor >= maxRows {
		off = m.cursor - maxRows + 1
	}

	var out strings.Builder
	for i := off; i < len(items) && i < off+maxRows; i++ {
		line := " " + items[i] + " "
		if i == m.cursor {
			out.WriteString(selStyle.Render(line))
		} else {
			out.WriteString(style.Render(line))
		}
		out.WriteString("\n")
	}
	return out.String()
}

func (m Model) renderSetup() string {
	items := make([]string, chanmap.NumSlots)
	for i := range items {
		marker := ""
		if m.editing && i == m.cursor {
			marker = " <"
		}
		items[i] = fmt.Sprintf("TRK %2d -> OUT %2d%s", i+1, m.Store.Get(i+1), marker)
	}
	return m.renderList(items)
}

func (m Model) renderProgress() string {
	st := m.Engine.State()
	if st != player.Playing && st != player.Paused {
		return ""
	}
	elapsed, total, frac := m.Engine.Progress()

	width := m.width - 2
	if width < 10 {
		width = 10
	}
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}

	barStyle := lipgloss.NewStyle().Foreground(m.Theme.Color(frac))
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	bar := barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))

	label := fmt.Sprintf("%s %s / %s",
		strings.ToUpper(st.String()),
		elapsed.Round(time.Second), total.Round(time.Second))
	return dimStyle.Render(label) + "\n" + bar
}
