// Package audio plays MP3 files by handing them to mpg123, which
// decodes straight to the DAC. No timing reconstruction happens here.
package audio

import (
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/tatosgames/midifileplayer/debug"
)

// Player runs at most one decoder process at a time.
type Player struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

func New() *Player {
	return &Player{}
}

// Play stops any current playback and starts decoding path.
func (p *Player) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	cmd := exec.Command("mpg123", "-q", path)
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd
	debug.L().Info("mp3 playback started", zap.String("path", path))

	// Reap the process when it finishes on its own.
	go func() {
		cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
	}()
	return nil
}

// Stop terminates the decoder process if one is running.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cmd == nil {
		return
	}
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
}

// Playing reports whether a decoder process is active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}
