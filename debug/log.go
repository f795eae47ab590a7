// Package debug provides file-backed logging for the player. Stdout and
// stderr belong to the TUI, so everything goes to a log file under the
// config directory.
package debug

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop()
	closer func()
)

// Enable starts logging to the given file, truncating any previous log.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(f), zap.DebugLevel)

	if closer != nil {
		closer()
	}
	l := zap.New(core)
	logger = l
	closer = func() {
		l.Sync()
		f.Close()
	}
	logger.Info("logging started")
	return nil
}

// Disable flushes and closes the log file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		closer()
		closer = nil
	}
	logger = zap.NewNop()
}

// L returns the current logger. Safe to call before Enable; logs are
// dropped until a file is configured.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}
