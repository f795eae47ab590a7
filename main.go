package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/tatosgames/midifileplayer/audio"
	"github.com/tatosgames/midifileplayer/chanmap"
	"github.com/tatosgames/midifileplayer/config"
	"github.com/tatosgames/midifileplayer/debug"
	"github.com/tatosgames/midifileplayer/midiout"
	"github.com/tatosgames/midifileplayer/player"
	"github.com/tatosgames/midifileplayer/theme"
	"github.com/tatosgames/midifileplayer/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := debug.Enable(cfg.LogFile); err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer debug.Disable()
	defer gomidi.CloseDriver()

	store := chanmap.NewStore(cfg.MapFile)
	store.Load()

	mux := midiout.New(midiout.SystemOpener(cfg.ExcludePort))
	engine := player.New(mux)
	mp3 := audio.New()
	th := theme.New(theme.Appliance())

	m := tui.NewModel(cfg, store, engine, mux, mp3, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
