package di

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/health"
	"github.com/devrig/devrig/internal/substituter"
)

// HealthTrackerService wraps the per-endpoint circuit breaker tracker.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// NewHealthTracker creates the tracker and registers one circuit per
// configured substituter endpoint, using each endpoint's breaker tuning.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	tracker := health.NewTracker(health.BreakerSettings{
		FailureThreshold: substituter.DefaultFailureThreshold,
		OpenDuration:     substituter.DefaultOpenSeconds * time.Second,
	}, loggerSvc.Logger)

	for _, endpoint := range manifestSvc.Get().Substituters {
		tracker.Register(endpoint.Name, health.BreakerSettings{
			FailureThreshold: endpoint.Breaker.GetFailureThreshold(),
			OpenDuration:     endpoint.Breaker.GetOpenDuration(),
		})
	}

	return &HealthTrackerService{Tracker: tracker}, nil
}

// ProberService wraps the background endpoint prober. It only probes
// endpoints whose circuit is open, so healthy endpoints see no synthetic
// traffic.
type ProberService struct {
	Prober *health.Prober
}

// NewProber creates the prober with one probe per endpoint: an HTTP probe
// against the cache info document for http endpoints, a no-op for s3
// (the AWS SDK surfaces failures on the next real request).
func NewProber(i do.Injector) (*ProberService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	prober := health.NewProber(trackerSvc.Tracker, health.ProbeConfig{}, loggerSvc.Logger)
	for _, endpoint := range manifestSvc.Get().Substituters {
		if endpoint.GetKind() == substituter.KindHTTP {
			prober.RegisterEndpoint(health.NewHTTPProbe(endpoint.Name, endpoint.URL+"/nix-cache-info", nil))
		} else {
			prober.RegisterEndpoint(health.NewNoOpProbe(endpoint.Name))
		}
	}

	return &ProberService{Prober: prober}, nil
}

// Shutdown implements do.Shutdowner, stopping the probe loop.
func (s *ProberService) Shutdown() error {
	s.Prober.Stop()
	return nil
}
