// Command miditest exercises the MIDI output path without the TUI:
// list ports, watch for hot-plug, sound a test note, or play a file
// headless. Handy over ssh when the synth rack isn't responding.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/tatosgames/midifileplayer/chanmap"
	"github.com/tatosgames/midifileplayer/midiout"
	"github.com/tatosgames/midifileplayer/player"
	"github.com/tatosgames/midifileplayer/smf"
)

func main() {
	defer midi.CloseDriver()

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "poll":
		pollDevices()
	case "note":
		testNote()
	case "play":
		if len(os.Args) < 3 {
			usage()
			return
		}
		playFile(os.Args[2])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI output test")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI output ports")
	fmt.Println("  poll         - Poll for device changes")
	fmt.Println("  note         - Sound a test note on every port")
	fmt.Println("  play <file>  - Play a MIDI file to every port")
}

func listPorts() {
	fmt.Println("=== MIDI Output Ports ===")
	for i, p := range midi.GetOutPorts() {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds. Ctrl+C to exit.")

	last := ""
	for {
		var names []string
		for _, p := range midi.GetOutPorts() {
			names = append(names, p.String())
		}
		current := strings.Join(names, ",")
		if current != last {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Outputs: %v\n", names)
			last = current
		}
		time.Sleep(2 * time.Second)
	}
}

func testNote() {
	mux := midiout.New(midiout.SystemOpener("Midi Through"))
	n := mux.OpenAll()
	defer mux.CloseAll()
	if n == 0 {
		fmt.Println("No output ports found")
		return
	}
	fmt.Printf("Sounding middle C on %d port(s)...\n", n)

	mux.Send(midi.NoteOn(0, 60, 100))
	time.Sleep(500 * time.Millisecond)
	mux.Send(midi.NoteOff(0, 60))
	fmt.Println("Done!")
}

func playFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		return
	}
	file, err := smf.Parse(data)
	if err != nil {
		fmt.Printf("Error parsing %s: %v\n", path, err)
		return
	}
	fmt.Printf("%s: %d track(s), %d ticks/quarter, %s\n",
		path, len(file.Tracks), file.TicksPerQuarter, file.TotalDuration().Round(time.Second))

	mux := midiout.New(midiout.SystemOpener("Midi Through"))
	fmt.Printf("Playing to %d port(s). Ctrl+C to stop.\n", mux.OpenAll())

	store := chanmap.NewStore("")
	engine := player.New(mux)
	if err := engine.Load(file, store.Snapshot()); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := engine.Start(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	<-engine.Done()
	fmt.Println("Done!")
}
