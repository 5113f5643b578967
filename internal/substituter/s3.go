package substituter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/devrig/devrig/internal/health"
	"github.com/devrig/devrig/internal/ratelimit"
)

// s3Service is the AWS service name for signing.
const s3Service = "s3"

// S3CredentialsProvider abstracts AWS credential retrieval for testing.
type S3CredentialsProvider interface {
	Retrieve(ctx context.Context) (aws.Credentials, error)
}

// S3Client queries a private binary cache stored in an S3 bucket.
// Requests are signed with AWS SigV4 using the SDK's default credential
// chain; there is no bucket-level auth config in the manifest.
type S3Client struct {
	name        string
	baseURL     string
	region      string
	credentials S3CredentialsProvider
	signer      *v4.Signer
	client      *http.Client
	limiter     ratelimit.RateLimiter
	tracker     *health.Tracker
}

// NewS3Client creates a client for an s3 endpoint.
// Uses the AWS SDK default credential chain for authentication.
func NewS3Client(ctx context.Context, cfg EndpointConfig, tracker *health.Tracker) (*S3Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("substituter: %s: load AWS config: %w", cfg.Name, err)
	}

	return newS3Client(cfg, awsCfg.Credentials, tracker), nil
}

// NewS3ClientWithCredentials creates an s3 client with explicit credentials.
// Useful for testing or non-default credential providers.
func NewS3ClientWithCredentials(cfg EndpointConfig, credentials S3CredentialsProvider, tracker *health.Tracker) *S3Client {
	return newS3Client(cfg, credentials, tracker)
}

func newS3Client(cfg EndpointConfig, credentials S3CredentialsProvider, tracker *health.Tracker) *S3Client {
	// Virtual-hosted style: https://{bucket}.s3.{region}.amazonaws.com
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)

	if tracker != nil {
		tracker.Register(cfg.Name, health.BreakerSettings{
			FailureThreshold: cfg.Breaker.GetFailureThreshold(),
			OpenDuration:     cfg.Breaker.GetOpenDuration(),
		})
	}

	return &S3Client{
		name:        cfg.Name,
		baseURL:     baseURL,
		region:      cfg.Region,
		credentials: credentials,
		signer:      v4.NewSigner(),
		client:      &http.Client{Timeout: lookupTimeout},
		limiter:     ratelimit.NewTokenBucketLimiter(cfg.RPSLimit, cfg.BPSLimit),
		tracker:     tracker,
	}
}

// Name returns the endpoint name.
func (c *S3Client) Name() string {
	return c.name
}

// sign adds SigV4 authentication to a GET request. GET requests have no
// body, so the payload hash is the hash of the empty string.
func (c *S3Client) sign(ctx context.Context, req *http.Request) error {
	if c.credentials == nil {
		return fmt.Errorf("substituter: %s: no credentials provider configured", c.name)
	}

	creds, err := c.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("substituter: %s: retrieve credentials: %w", c.name, err)
	}

	hash := sha256.Sum256([]byte{})
	payloadHash := hex.EncodeToString(hash[:])

	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, s3Service, c.region, time.Now()); err != nil {
		return fmt.Errorf("substituter: %s: sign request: %w", c.name, err)
	}
	return nil
}

// Lookup fetches <bucket>/<storeHash>.narinfo with a signed GET.
func (c *S3Client) Lookup(ctx context.Context, storeHash string) (*NarInfo, error) {
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
	if err := c.sign(ctx, req); err != nil {
		done(err)
		return nil, err
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
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		// S3 returns 403 instead of 404 without s3:ListBucket permission.
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("substituter: %s: lookup returned status %d", c.name, resp.StatusCode)
	}
}

// FetchNar streams the artifact with a signed GET.
func (c *S3Client) FetchNar(ctx context.Context, narURL string) (io.ReadCloser, error) {
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
	if err := c.sign(ctx, req); err != nil {
		done(err)
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.record(done, 0, err)
		return nil, fmt.Errorf("substituter: %s: fetch: %w", c.name, err)
	}

	c.record(done, resp.StatusCode, nil)

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
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

func (c *S3Client) allow() (func(err error), error) {
	if c.tracker == nil {
		return func(error) {}, nil
	}
	return c.tracker.GetOrCreateCircuit(c.name).Allow()
}

func (c *S3Client) record(done func(err error), statusCode int, err error) {
	if health.ShouldCountAsFailure(statusCode, err) {
		if err == nil {
			err = fmt.Errorf("substituter: %s: status %d", c.name, statusCode)
		}
		done(err)
		return
	}
	done(nil)
}
