// Package ratelimit tracks API throttling and gates requests while the API
// asks clients to back off. State is kept in Redis so every client sharing a
// Redis instance (and therefore an egress IP) honours the same cool-down.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RedisKeyState holds the JSON-encoded State.
const RedisKeyState = "rm:rate_limit:state"

const (
	// RemainingThresholdWarning throttles requests when fewer than this many
	// requests remain in the current window.
	RemainingThresholdWarning = 5

	// DefaultCooldown applies when a 429 arrives without a usable Retry-After.
	DefaultCooldown = 10 * time.Second

	// RemainingUnknown marks a State built without rate limit headers.
	RemainingUnknown = -1
)

// Rate limit headers understood by ParseResponse.
const (
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// State is the throttling state last reported by the API.
type State struct {
	// Remaining is the number of requests left in the window, or RemainingUnknown.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets. Zero when unknown.
	ResetAt time.Time `json:"reset_at"`

	// BlockedUntil is set after a 429; no request is sent before it.
	BlockedUntil time.Time `json:"blocked_until"`

	LastUpdate time.Time `json:"last_update"`
}

// DefaultState is the state assumed before the API has said anything.
func DefaultState() State {
	return State{Remaining: RemainingUnknown, LastUpdate: time.Now()}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked reports whether the API asked us to stop until BlockedUntil.
func (s *State) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// NeedsThrottling reports whether the window is nearly used up.
func (s *State) NeedsThrottling() bool {
	return s.Remaining != RemainingUnknown &&
		s.Remaining < RemainingThresholdWarning &&
		!s.IsBlocked()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	return positive(time.Until(s.ResetAt))
}

// TimeUntilUnblocked returns the remaining cool-down, or 0.
func (s *State) TimeUntilUnblocked() time.Duration {
	return positive(time.Until(s.BlockedUntil))
}

// expiry is how long the state is worth keeping.
func (s *State) expiry() time.Duration {
	d := max(s.TimeUntilReset(), s.TimeUntilUnblocked())
	return max(d, time.Minute)
}

// ParseResponse builds a State from a response status and headers.
// ok is false when the response carries nothing worth recording.
func ParseResponse(status int, headers http.Header, now time.Time) (state State, ok bool) {
	state = State{Remaining: RemainingUnknown, LastUpdate: now}

	if v := strings.TrimSpace(headers.Get(HeaderRemaining)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			state.Remaining = n
			ok = true
		}
	}

	if v := strings.TrimSpace(headers.Get(HeaderReset)); v != "" {
		if reset, err := parseReset(v, now); err == nil {
			state.ResetAt = reset
			ok = true
		}
	}

	if status == http.StatusTooManyRequests {
		state.BlockedUntil = now.Add(retryAfter(headers.Get(HeaderRetryAfter), now))
		ok = true
	}

	return state, ok
}

// parseReset accepts either seconds until reset or a Unix timestamp.
func parseReset(v string, now time.Time) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	// Anything past a day in seconds is treated as an epoch timestamp.
	if n > 86400 {
		return time.Unix(n, 0), nil
	}
	return now.Add(time.Duration(n) * time.Second), nil
}

// retryAfter reads a Retry-After value in seconds or HTTP-date form.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultCooldown
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return DefaultCooldown
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
