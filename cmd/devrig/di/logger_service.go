package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/logging"
	"github.com/devrig/devrig/internal/plancache"
	"github.com/devrig/devrig/internal/substituter"
)

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// NewLogger creates the zerolog logger from the manifest's logging section
// and hands it to the packages that log through a package-level logger.
func NewLogger(i do.Injector) (*LoggerService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)

	logger, err := logging.NewLogger(manifestSvc.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	plancache.SetLogger(&logger)
	substituter.SetLogger(&logger)

	return &LoggerService{Logger: &logger}, nil
}
