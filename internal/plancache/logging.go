package plancache

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex

	// pkgLogger is a no-op until SetLogger is called, so library use of the
	// package stays silent unless the application opts in.
	pkgLogger = zerolog.Nop()
)

// SetLogger installs the package-level logger. Call once during startup.
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	pkgLogger = l.With().Str("component", "plancache").Logger()
}

func logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return pkgLogger
}
