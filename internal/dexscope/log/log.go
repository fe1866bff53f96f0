// Package log installs the process-wide slog logger and recovers panics
// into it.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log"

	"dexscope/internal/config"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup routes slog through a charmbracelet/log handler on stderr, at debug
// level with caller info when cfg.Debug is set. Only the first call has any
// effect.
func Setup(cfg config.Config) {
	initOnce.Do(func() {
		level := charmlog.InfoLevel
		if cfg.Debug {
			level = charmlog.DebugLevel
		}
		handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           level,
			ReportCaller:    cfg.Debug,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          "dexscope",
		})
		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic logs a panic with its stack and runs cleanup. Use it
// deferred at the top of a goroutine.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	stack := string(debug.Stack())
	if Initialized() {
		slog.Error("Panic in "+name, "panic", r, "stack", stack)
	} else {
		fmt.Fprintf(os.Stderr, "panic in %s: %v\n%s", name, r, stack)
	}
	if cleanup != nil {
		cleanup()
	}
}
