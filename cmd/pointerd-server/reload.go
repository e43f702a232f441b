package main

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/infra/confloader"
	"github.com/yndnr/pointerd/internal/server/config"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
)

// reloader re-reads the configuration and applies the settings that can
// change at runtime: session.sensitivity and log.level. Other changes
// are logged and take effect on restart.
type reloader struct {
	mu          sync.Mutex
	loader      *confloader.Loader
	current     *config.ServerConfig
	sensitivity *pointer.Sensitivity
	log         *slog.Logger
}

func (r *reloader) reload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := loadConfig(r.loader)
	if err != nil {
		r.log.Error("configuration reload rejected", "error", err)
		return
	}

	if next.Session.Sensitivity != r.current.Session.Sensitivity {
		r.sensitivity.Store(next.Session.Sensitivity)
		r.log.Info("sensitivity updated",
			"from", r.current.Session.Sensitivity,
			"to", next.Session.Sensitivity)
	}
	if next.Log.Level != r.current.Log.Level {
		from := logger.Level()
		logger.SetLevel(next.Log.Level)
		r.log.Info("log level updated", "from", from, "to", logger.Level())
	}
	if restartRequired(r.current, next) {
		r.log.Warn("configuration changes outside session.sensitivity and log.level need a restart")
	}

	r.current = next
}

// restartRequired reports whether next differs from cur in a setting
// that is only read at startup.
func restartRequired(cur, next *config.ServerConfig) bool {
	a, b := *cur, *next
	a.Session.Sensitivity, b.Session.Sensitivity = 0, 0
	a.Log.Level, b.Log.Level = "", ""
	return !reflect.DeepEqual(a, b)
}
