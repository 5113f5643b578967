package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe defaults.
const (
	DefaultProbeIntervalMS = 10000
	DefaultProbeEnabled    = true
)

// ProbeConfig defines endpoint probing behavior for long-running commands.
type ProbeConfig struct {
	Enabled    *bool `toml:"enabled" yaml:"enabled"`
	IntervalMS int   `toml:"interval_ms" yaml:"interval_ms"`
}

// GetInterval returns the probe interval as time.Duration.
// Returns default 10s if not set or negative.
func (c *ProbeConfig) GetInterval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Duration(DefaultProbeIntervalMS) * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// IsEnabled returns whether probing is enabled. Defaults to true.
func (c *ProbeConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return DefaultProbeEnabled
	}
	return *c.Enabled
}

// EndpointProbe defines how to check if a binary cache endpoint has
// recovered. Implementations should be lightweight (a metadata fetch,
// not a full artifact download).
type EndpointProbe interface {
	// Check probes the endpoint. Returns nil if healthy.
	Check(ctx context.Context) error

	// EndpointName returns the name of the endpoint being probed.
	EndpointName() string
}

// HTTPProbe checks an http cache by fetching its cache-info document.
type HTTPProbe struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPProbe creates an HTTP probe against the given URL.
func NewHTTPProbe(name, url string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProbe{name: name, url: url, client: client}
}

// Check performs the HTTP probe.
func (h *HTTPProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// EndpointName returns the name of the endpoint being probed.
func (h *HTTPProbe) EndpointName() string {
	return h.name
}

// NoOpProbe always reports healthy. Used for endpoints with no probeable
// surface, such as s3 buckets reached through the AWS SDK.
type NoOpProbe struct {
	name string
}

// NewNoOpProbe creates a probe that always succeeds.
func NewNoOpProbe(name string) *NoOpProbe {
	return &NoOpProbe{name: name}
}

// Check always returns nil.
func (n *NoOpProbe) Check(_ context.Context) error {
	return nil
}

// EndpointName returns the name of the endpoint.
func (n *NoOpProbe) EndpointName() string {
	return n.name
}

// Prober monitors endpoints with OPEN circuits and records successes when
// they recover, so the watch command notices a cache coming back faster
// than the breaker's full cooldown.
type Prober struct {
	ctx     context.Context
	tracker *Tracker
	probes  map[string]EndpointProbe
	logger  *zerolog.Logger
	cancel  context.CancelFunc
	config  ProbeConfig
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// NewProber creates a Prober wired to the given tracker.
func NewProber(tracker *Tracker, cfg ProbeConfig, logger *zerolog.Logger) *Prober {
	ctx, cancel := context.WithCancel(context.Background())
	return &Prober{
		tracker: tracker,
		config:  cfg,
		probes:  make(map[string]EndpointProbe),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterEndpoint adds a probe for an endpoint.
func (p *Prober) RegisterEndpoint(probe EndpointProbe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[probe.EndpointName()] = probe
}

// Start begins periodic probing for all registered endpoints.
// Should be called once after all endpoints are registered.
func (p *Prober) Start() {
	if !p.config.IsEnabled() {
		if p.logger != nil {
			p.logger.Info().Msg("endpoint prober disabled")
		}
		return
	}

	interval := p.config.GetInterval()
	// Jitter (0-2s) so multiple devrig processes don't probe in lockstep.
	jitter := cryptoRandDuration(2 * time.Second)
	ticker := time.NewTicker(interval + jitter)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()

		if p.logger != nil {
			p.logger.Info().
				Dur("interval", interval).
				Dur("jitter", jitter).
				Msg("endpoint prober started")
		}

		for {
			select {
			case <-p.ctx.Done():
				if p.logger != nil {
					p.logger.Info().Msg("endpoint prober stopped")
				}
				return
			case <-ticker.C:
				p.probeOpenCircuits()
			}
		}
	}()
}

// Stop stops the prober and waits for the goroutine to finish.
func (p *Prober) Stop() {
	p.cancel()
	p.wg.Wait()
}

// probeOpenCircuits runs probes for all endpoints with OPEN circuits.
func (p *Prober) probeOpenCircuits() {
	p.mu.RLock()
	probes := make([]EndpointProbe, 0, len(p.probes))
	for _, probe := range p.probes {
		probes = append(probes, probe)
	}
	p.mu.RUnlock()

	for _, probe := range probes {
		name := probe.EndpointName()
		if p.tracker.GetState(name) != StateOpen {
			continue
		}

		ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
		err := probe.Check(ctx)
		cancel()

		if err != nil {
			if p.logger != nil {
				p.logger.Debug().
					Str("endpoint", name).
					Err(err).
					Msg("probe failed")
			}
			continue
		}

		if p.logger != nil {
			p.logger.Info().
				Str("endpoint", name).
				Msg("probe succeeded, recording success")
		}
		p.tracker.RecordSuccess(name)
	}
}

// cryptoRandDuration returns a random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // G115: maxDur is positive, safe conversion
	return time.Duration(n % uint64(maxDur))
}
