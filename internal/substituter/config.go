// Package substituter implements binary cache clients. Before building or
// fetching a package from source, devrig asks the configured substituters
// whether a pre-built artifact exists.
package substituter

import (
	"errors"
	"fmt"
	"time"
)

// Endpoint kinds.
const (
	KindHTTP = "http"
	KindS3   = "s3"
)

var validKinds = map[string]bool{
	"":       true, // Empty defaults to http.
	KindHTTP: true,
	KindS3:   true,
}

// Configuration errors.
var (
	ErrEndpointNameRequired = errors.New("substituter: endpoint name is required")
)

// UnknownKindError is returned when an endpoint kind is not recognized.
type UnknownKindError struct {
	Kind string
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("substituter: unknown endpoint kind %q (valid: http, s3)", e.Kind)
}

// EndpointConfig describes one binary cache, read from a manifest
// [[substituters]] entry. Endpoints are tried in declaration order.
type EndpointConfig struct {
	// Name identifies the endpoint in logs and status output.
	Name string `toml:"name" yaml:"name"`

	// Kind selects the client: "http" (default) or "s3".
	Kind string `toml:"kind" yaml:"kind"`

	// URL is the cache root for http endpoints
	// (e.g. "https://cache.nixos.org").
	URL string `toml:"url" yaml:"url"`

	// Bucket and Region identify an s3 endpoint.
	Bucket string `toml:"bucket" yaml:"bucket"`
	Region string `toml:"region" yaml:"region"`

	// Auth configures access to private caches.
	Auth AuthConfig `toml:"auth" yaml:"auth"`

	// RPSLimit bounds lookup requests per second against this endpoint.
	// Zero means unlimited.
	RPSLimit int `toml:"rps_limit" yaml:"rps_limit"`

	// BPSLimit bounds download bytes per second against this endpoint.
	// Zero means unlimited.
	BPSLimit int `toml:"bps_limit" yaml:"bps_limit"`

	// Breaker tunes the per-endpoint circuit breaker.
	Breaker BreakerConfig `toml:"breaker" yaml:"breaker"`
}

// AuthConfig selects one of two auth schemes for private http caches:
// a static bearer token from the environment, or OAuth2 client credentials.
// Both empty means anonymous access. S3 endpoints use the AWS credential
// chain instead.
type AuthConfig struct {
	// TokenEnv names an environment variable holding a bearer token.
	TokenEnv string `toml:"token_env" yaml:"token_env"`

	// ClientID, ClientSecretEnv, and TokenURL configure OAuth2 client
	// credentials. The secret is read from the named environment variable,
	// never from the manifest itself.
	ClientID        string `toml:"client_id" yaml:"client_id"`
	ClientSecretEnv string `toml:"client_secret_env" yaml:"client_secret_env"`
	TokenURL        string `toml:"token_url" yaml:"token_url"`
}

// IsEnabled reports whether any auth scheme is configured.
func (a *AuthConfig) IsEnabled() bool {
	return a.TokenEnv != "" || a.ClientID != ""
}

// BreakerConfig tunes the circuit breaker guarding an endpoint.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Zero means DefaultFailureThreshold.
	FailureThreshold int `toml:"failure_threshold" yaml:"failure_threshold"`

	// OpenSeconds is how long the breaker stays open before probing.
	// Zero means DefaultOpenSeconds.
	OpenSeconds int `toml:"open_seconds" yaml:"open_seconds"`
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultOpenSeconds      = 30
)

// GetFailureThreshold returns the threshold with default fallback.
func (b *BreakerConfig) GetFailureThreshold() int {
	if b.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return b.FailureThreshold
}

// GetOpenDuration returns the open interval with default fallback.
func (b *BreakerConfig) GetOpenDuration() time.Duration {
	if b.OpenSeconds <= 0 {
		return DefaultOpenSeconds * time.Second
	}
	return time.Duration(b.OpenSeconds) * time.Second
}

// GetKind returns the endpoint kind with default fallback.
func (e *EndpointConfig) GetKind() string {
	if e.Kind == "" {
		return KindHTTP
	}
	return e.Kind
}

// Validate checks a single endpoint configuration.
func (e *EndpointConfig) Validate() error {
	if e.Name == "" {
		return ErrEndpointNameRequired
	}
	if !validKinds[e.Kind] {
		return UnknownKindError{Kind: e.Kind}
	}
	switch e.GetKind() {
	case KindHTTP:
		if e.URL == "" {
			return fmt.Errorf("substituter: endpoint %q: url is required for http endpoints", e.Name)
		}
	case KindS3:
		if e.Bucket == "" {
			return fmt.Errorf("substituter: endpoint %q: bucket is required for s3 endpoints", e.Name)
		}
		if e.Region == "" {
			return fmt.Errorf("substituter: endpoint %q: region is required for s3 endpoints", e.Name)
		}
	}
	if e.RPSLimit < 0 {
		return fmt.Errorf("substituter: endpoint %q: rps_limit must be >= 0", e.Name)
	}
	if e.BPSLimit < 0 {
		return fmt.Errorf("substituter: endpoint %q: bps_limit must be >= 0", e.Name)
	}
	if e.Auth.ClientID != "" && e.Auth.TokenURL == "" {
		return fmt.Errorf("substituter: endpoint %q: auth.token_url required with auth.client_id", e.Name)
	}
	return nil
}
