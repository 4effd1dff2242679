package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Prometheus metrics for rate limit tracking.
var (
	requestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rm_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_rate_limit_blocks_total",
		Help: "Total number of requests blocked during a 429 cool-down",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the window was nearly used up",
	})
)

// Tracker monitors API throttling and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: time.Second,
	}
}

// GetState retrieves the current state from Redis, or DefaultState when
// nothing has been recorded.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	data, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if errors.Is(err, redis.Nil) {
		state := DefaultState()
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	return &state, nil
}

// UpdateFromResponse records the throttling information of a response.
// Responses without rate limit headers and without a 429 are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	state, ok := ParseResponse(status, headers, time.Now())
	if !ok {
		return nil
	}

	// A plain response must not cancel a cool-down another client recorded.
	if state.BlockedUntil.IsZero() {
		if prev, err := t.GetState(ctx); err == nil && prev.IsBlocked() {
			state.BlockedUntil = prev.BlockedUntil
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}
	if err := t.redis.Set(ctx, RedisKeyState, data, state.expiry()).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	if state.Remaining != RemainingUnknown {
		requestsRemaining.Set(float64(state.Remaining))
	}

	switch {
	case state.IsBlocked():
		t.logger.Error().
			Time("blocked_until", state.BlockedUntil).
			Msg("API rate limit hit - requests paused")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("API rate limit nearly used up - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. It returns
// false during a cool-down and delays the caller when throttling applies.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsBlocked() {
		t.logger.Error().
			Dur("wait_duration", state.TimeUntilUnblocked()).
			Msg("API cool-down active - blocking request")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("API rate limit warning - throttling request")
		rateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
