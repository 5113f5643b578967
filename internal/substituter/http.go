package substituter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/devrig/devrig/internal/health"
	"github.com/devrig/devrig/internal/ratelimit"
)

const lookupTimeout = 30 * time.Second

// HTTPClient queries an http binary cache such as cache.nixos.org.
//
// Requests go through the endpoint's rate limiter and circuit breaker.
// Private caches authenticate with either a static bearer token from the
// environment or OAuth2 client credentials.
type HTTPClient struct {
	name    string
	baseURL string
	client  *http.Client
	limiter ratelimit.RateLimiter
	tracker *health.Tracker
}

// NewHTTPClient creates a client for an http endpoint.
func NewHTTPClient(cfg EndpointConfig, tracker *health.Tracker) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	// HTTP/2 multiplexes the many small narinfo lookups over one connection.
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("substituter: configure http2: %w", err)
	}

	client := &http.Client{
		Transport: buildAuthTransport(cfg.Auth, transport),
		Timeout:   lookupTimeout,
	}

	if tracker != nil {
		tracker.Register(cfg.Name, health.BreakerSettings{
			FailureThreshold: cfg.Breaker.GetFailureThreshold(),
			OpenDuration:     cfg.Breaker.GetOpenDuration(),
		})
	}

	return &HTTPClient{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  client,
		limiter: ratelimit.NewTokenBucketLimiter(cfg.RPSLimit, cfg.BPSLimit),
		tracker: tracker,
	}, nil
}

// buildAuthTransport wraps the base transport with the configured auth
// scheme. Anonymous access returns the base transport unchanged.
func buildAuthTransport(auth AuthConfig, base http.RoundTripper) http.RoundTripper {
	switch {
	case auth.ClientID != "":
		cc := clientcredentials.Config{
			ClientID:     auth.ClientID,
			ClientSecret: os.Getenv(auth.ClientSecretEnv),
			TokenURL:     auth.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: base})
		return &oauth2.Transport{
			Source: cc.TokenSource(ctx),
			Base:   base,
		}
	case auth.TokenEnv != "":
		return &bearerTransport{tokenEnv: auth.TokenEnv, base: base}
	default:
		return base
	}
}

// bearerTransport adds a static bearer token read from the environment on
// every request. The token is re-read each time so rotation does not need
// a restart.
type bearerTransport struct {
	tokenEnv string
	base     http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := os.Getenv(t.tokenEnv); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(req)
}

// Name returns the endpoint name.
func (c *HTTPClient) Name() string {
	return c.name
}

// Lookup fetches <baseURL>/<storeHash>.narinfo.
func (c *HTTPClient) Lookup(ctx context.Context, storeHash string) (*NarInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	done, err := c.allow()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s.narinfo", c.baseURL, storeHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("substituter: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.record(done, 0, err)
		return nil, fmt.Errorf("substituter: %s: lookup: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.record(done, resp.StatusCode, nil)

	switch {
	case resp.StatusCode == http.StatusOK:
		info, parseErr := ParseNarInfo(resp.Body)
		if parseErr != nil {
			return nil, fmt.Errorf("substituter: %s: %w", c.name, parseErr)
		}
		return info, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("substituter: %s: lookup returned status %d", c.name, resp.StatusCode)
	}
}

// FetchNar streams the artifact named by a narinfo URL (relative to the
// cache root).
func (c *HTTPClient) FetchNar(ctx context.Context, narURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	done, err := c.allow()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(narURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("substituter: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.record(done, 0, err)
		return nil, fmt.Errorf("substituter: %s: fetch: %w", c.name, err)
	}

	c.record(done, resp.StatusCode, nil)

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("substituter: %s: fetch returned status %d", c.name, resp.StatusCode)
	}

	if resp.ContentLength > 0 {
		if err := c.limiter.ConsumeBytes(ctx, int(resp.ContentLength)); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
	}
	return resp.Body, nil
}

// allow passes the request through the circuit breaker. With no tracker
// configured, requests always pass and the done callback is a no-op.
func (c *HTTPClient) allow() (func(err error), error) {
	if c.tracker == nil {
		return func(error) {}, nil
	}
	return c.tracker.GetOrCreateCircuit(c.name).Allow()
}

// record settles the breaker callback based on the response.
func (c *HTTPClient) record(done func(err error), statusCode int, err error) {
	if health.ShouldCountAsFailure(statusCode, err) {
		if err == nil {
			err = fmt.Errorf("substituter: %s: status %d", c.name, statusCode)
		}
		done(err)
		return
	}
	done(nil)
}
