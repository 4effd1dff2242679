// Package client provides the GraphQL client for the Rick and Morty API with
// rate limiting, query caching, retries and error classification.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/cache"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/ratelimit"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultEndpoint is the public Rick and Morty GraphQL endpoint.
const DefaultEndpoint = "https://rickandmortyapi.com/graphql"

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rm_requests_total",
		Help: "Total API requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rm_request_duration_seconds",
		Help:    "API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rm_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client is the Rick and Morty GraphQL client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retryPolicy RetryPolicy
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// Redis enables the query cache and shared rate limit state. Optional.
	Redis *redis.Client

	// CacheTTL is how long query results are cached. Zero disables caching.
	CacheTTL time.Duration

	// MaxRetries is the number of attempts per request, including the first.
	// Zero uses the per-class defaults.
	MaxRetries int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Endpoint:   DefaultEndpoint,
		UserAgent:  userAgent,
		Timeout:    15 * time.Second,
		Redis:      redis,
		CacheTTL:   5 * time.Minute,
		MaxRetries: 3,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute http(s) URL (got %q)", cfg.Endpoint)
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}

	maxRetries := cfg.MaxRetries
	c.retryPolicy = func(class ErrorClass) RetryConfig {
		rc := RetryConfigForErrorClass(class)
		if maxRetries > 0 {
			rc.MaxAttempts = maxRetries
		}
		return rc
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logging.NewLogger(logging.ComponentRateLimit))
		if cfg.CacheTTL > 0 {
			c.cache = cache.NewManager(cfg.Redis)
		}
	}

	return c, nil
}

// Request is a GraphQL request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   jsoniter.RawMessage `json:"data"`
	Errors []GraphQLError      `json:"errors"`
}

// Do executes a GraphQL request and decodes its data into out.
// The pipeline is: cache lookup, rate limit gate, POST with retries, decode,
// cache store. Responses carrying GraphQL errors are never cached.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	operation := req.OperationName
	if operation == "" {
		operation = "anonymous"
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.CacheKey{Operation: operation, Variables: req.Variables}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Str("operation", operation).
				Str("key", cacheKey.String()).
				Dur("age", entry.Age()).
				Msg("Cache hit")
			requestsTotal.WithLabelValues(operation, "cached").Inc()
			return c.decode(http.StatusOK, entry.Data, out)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("operation", operation).Msg("Cache get error")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Interface("variables", req.Variables).
		Msg("Executing API request")

	var (
		respBody []byte
		status   int
	)
	retryErr := retryWithBackoff(ctx, c.retryPolicy, func() error {
		var attemptErr error
		status, respBody, attemptErr = c.attempt(ctx, operation, body)
		return attemptErr
	})
	if retryErr != nil {
		return retryErr
	}

	if err := c.decode(status, respBody, out); err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, cache.NewEntry(respBody, c.config.CacheTTL)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return nil
}

// attempt sends one HTTP request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, operation string, body []byte) (int, []byte, error) {
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			requestsTotal.WithLabelValues(operation, "rate_limited").Inc()
			errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return 0, nil, &APIError{
				ErrorClass: ErrorClassRateLimit,
				Message:    "cool-down active",
				Err:        ErrRateLimited,
			}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// The caller gave up; retrying cannot help.
			return 0, nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}
		c.logger.Warn().Err(err).Str("operation", operation).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(operation, "network_error").Inc()
		return 0, nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return resp.StatusCode, nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
	}

	requestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
		// GraphQL servers often explain 4xx answers in the body.
		var env response
		if json.Unmarshal(respBody, &env) == nil && len(env.Errors) > 0 {
			apiErr.GraphQLErrors = env.Errors
		}
		return resp.StatusCode, nil, apiErr
	}

	return resp.StatusCode, respBody, nil
}

// decode unpacks a GraphQL response envelope into out.
func (c *Client) decode(status int, body []byte, out any) error {
	var env response
	if err := json.Unmarshal(body, &env); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{StatusCode: status, ErrorClass: ErrorClassDecode, Message: "decode response", Err: err}
	}

	if len(env.Errors) > 0 {
		errorsTotal.WithLabelValues(string(ErrorClassGraphQL)).Inc()
		return newGraphQLError(status, env.Errors)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{StatusCode: status, ErrorClass: ErrorClassDecode, Message: "decode data", Err: err}
	}
	return nil
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// Close releases idle connections. The Redis client belongs to the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetRetryPolicy replaces the per-class retry schedule.
func (c *Client) SetRetryPolicy(policy RetryPolicy) {
	c.retryPolicy = policy
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
