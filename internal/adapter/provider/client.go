package provider

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// DefaultUserAgent identifies the crawler to well-behaved sources.
const DefaultUserAgent = "BreachRadar/1.0 (+https://github.com/halcyon-security/breachradar)"

// FallbackUserAgent is a browser string used when a source rejects the
// crawler identification outright.
const FallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ClientConfig holds configuration for the fetch client.
type ClientConfig struct {
	UserAgent string

	// Retry settings
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Circuit breaker settings
	EnableCircuitBreaker bool
	MaxFailures          uint32
	BreakerTimeout       time.Duration

	// AllowInsecureRetry permits a second attempt with certificate
	// verification disabled when the direct attempt hits a trust failure.
	// Some small state breach portals run expired or self-signed certs.
	AllowInsecureRetry bool
}

// DefaultClientConfig returns default configuration values.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		UserAgent:            DefaultUserAgent,
		MaxRetries:           getEnvInt("FETCH_RETRY_MAX_ATTEMPTS", 2),
		InitialInterval:      time.Duration(getEnvInt("FETCH_RETRY_INITIAL_INTERVAL_MS", 500)) * time.Millisecond,
		MaxInterval:          time.Duration(getEnvInt("FETCH_RETRY_MAX_INTERVAL_MS", 5000)) * time.Millisecond,
		EnableCircuitBreaker: getEnvBool("FETCH_CIRCUIT_BREAKER_ENABLED", false),
		MaxFailures:          uint32(getEnvInt("FETCH_CIRCUIT_BREAKER_MAX_FAILURES", 5)),
		BreakerTimeout:       time.Duration(getEnvInt("FETCH_CIRCUIT_BREAKER_TIMEOUT_SECONDS", 60)) * time.Second,
		AllowInsecureRetry:   getEnvBool("FETCH_ALLOW_INSECURE_RETRY", true),
	}
}

// Client fetches raw source content with transport-level fallback:
// identification header first, alternate user-agent on rejection, and an
// unverified-TLS retry on certificate trust failures. Every provider owns
// its own Client, so the circuit breaker is per source.
type Client struct {
	direct   *http.Client
	insecure *http.Client
	breaker  *gobreaker.CircuitBreaker
	config   ClientConfig
}

// NewClient builds a fetch client for one source. The overall attempt is
// bounded by the caller's context, not a client timeout.
func NewClient(name string, config ClientConfig) *Client {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	var breaker *gobreaker.CircuitBreaker
	if config.EnableCircuitBreaker {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "fetch-" + name,
			MaxRequests: 1,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= config.MaxFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("⚡ Circuit breaker '%s' changed from %s to %s", name, from, to)
			},
		})
	}

	return &Client{
		direct: &http.Client{},
		insecure: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		breaker: breaker,
		config:  config,
	}
}

// Get fetches the URL and returns the response body. Fallback strategies
// are attempted in order until one yields content or all are exhausted.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.breaker == nil {
		return c.getWithFallback(ctx, url)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getWithFallback(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, fmt.Errorf("circuit breaker is open: %w", err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

func (c *Client) getWithFallback(ctx context.Context, url string) ([]byte, error) {
	body, err := c.doWithRetry(ctx, c.direct, url, c.config.UserAgent)
	if err == nil {
		return body, nil
	}

	// Some sources block non-browser user agents with 403.
	if isForbidden(err) {
		log.Printf("🔁 %s rejected crawler UA, retrying with browser UA", url)
		if body, retryErr := c.doWithRetry(ctx, c.direct, url, FallbackUserAgent); retryErr == nil {
			return body, nil
		}
	}

	// Certificate trust failure: retry once without verification and hand
	// the raw bytes back to the structured parser.
	if c.config.AllowInsecureRetry && isCertError(err) {
		log.Printf("🔁 %s failed TLS verification, retrying without verification", url)
		if body, retryErr := c.doWithRetry(ctx, c.insecure, url, c.config.UserAgent); retryErr == nil {
			return body, nil
		}
	}

	return nil, err
}

func (c *Client) doWithRetry(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.config.InitialInterval
	expBackoff.MaxInterval = c.config.MaxInterval
	expBackoff.Multiplier = 2.0
	expBackoff.MaxElapsedTime = 0 // bounded by max retries and the context

	retryBackoff := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.config.MaxRetries)), ctx)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/html, */*")

		resp, err := client.Do(req)
		if err != nil {
			if shouldRetry(err, nil) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if shouldRetry(nil, resp) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}

	if err := backoff.Retry(operation, retryBackoff); err != nil {
		return nil, err
	}

	return body, nil
}

// shouldRetry determines if an error or response should trigger a retry.
func shouldRetry(err error, resp *http.Response) bool {
	if err != nil {
		if isCertError(err) {
			return false // handled by the insecure fallback, not by retrying
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false
		}
		return strings.Contains(err.Error(), "connection refused") ||
			strings.Contains(err.Error(), "connection reset") ||
			strings.Contains(err.Error(), "EOF")
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// isCertError reports whether the error is a TLS certificate trust failure.
func isCertError(err error) bool {
	if err == nil {
		return false
	}

	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) || errors.As(err, &invalidCert) {
		return true
	}

	return strings.Contains(err.Error(), "certificate")
}

func isForbidden(err error) bool {
	return err != nil && strings.Contains(err.Error(), "HTTP 403")
}

// getEnvInt reads an integer from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool reads a boolean from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
