// Package ratelimit implements the per-phone multi-window admission policy
// that protects paid message and LLM quota from a single sender. The limiter
// owns only the policy (ceilings, windows, cooldown); the counter storage is
// an injected CounterStore whose increment is atomic at the store level, so
// concurrent increments from different processes never undercount.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Window names a counting window. The same values are used as store key
// components and as the rejection gate reported to callers.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"

	// GateCooldown is not a counting window; it is reported as the gate when
	// the escalated cooldown marker blocks the sender.
	GateCooldown Window = "cooldown"
)

// ErrStoreUnavailable wraps counter-store failures. It is distinct from a
// limit rejection so callers never conflate an infrastructure outage with
// customer abuse; the policy here is fail-closed, the caller rejects the
// request with an explicit degraded status rather than admitting it.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// CounterStore is the atomic increment-and-read contract the limiter needs.
// Implementations must treat each call as a network round trip with its own
// timeout, honoring ctx.
type CounterStore interface {
	// Increment atomically bumps the (phone, window) counter, resetting it
	// when its previous expiry has passed, and returns the post-increment
	// count. ttl is the window's natural expiry applied on reset.
	Increment(ctx context.Context, phone string, window Window, ttl time.Duration) (int64, error)

	// SetCooldown places (or refreshes) the escalated cooldown marker.
	SetCooldown(ctx context.Context, phone string, ttl time.Duration) error

	// CooldownRemaining returns the time left on a non-expired cooldown
	// marker, or zero when no marker is active.
	CooldownRemaining(ctx context.Context, phone string) (time.Duration, error)
}

// Config carries the tunable policy. Operators set these from configuration;
// the zero value is completed by sensible defaults in New.
type Config struct {
	MinuteLimit  int64
	HourLimit    int64
	DayLimit     int64
	MinuteWindow time.Duration
	HourWindow   time.Duration
	DayWindow    time.Duration
	Cooldown     time.Duration
}

// Decision is the outcome of one admission check. When Allowed is false, Gate
// names which check rejected the sender and RetryAfter carries the wait the
// caller can surface to the customer.
type Decision struct {
	Allowed    bool
	Gate       Window
	Minute     int64
	Hour       int64
	Day        int64
	RetryAfter time.Duration
}

// Limiter applies the multi-window policy over a CounterStore.
type Limiter struct {
	store CounterStore
	cfg   Config
}

// New constructs a Limiter, filling zero Config fields with defaults
// (60/min, 300/h, 1000/day, natural window lengths, 30m cooldown).
func New(store CounterStore, cfg Config) *Limiter {
	if cfg.MinuteLimit <= 0 {
		cfg.MinuteLimit = 60
	}
	if cfg.HourLimit <= 0 {
		cfg.HourLimit = 300
	}
	if cfg.DayLimit <= 0 {
		cfg.DayLimit = 1000
	}
	if cfg.MinuteWindow <= 0 {
		cfg.MinuteWindow = time.Minute
	}
	if cfg.HourWindow <= 0 {
		cfg.HourWindow = time.Hour
	}
	if cfg.DayWindow <= 0 {
		cfg.DayWindow = 24 * time.Hour
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Minute
	}
	return &Limiter{store: store, cfg: cfg}
}

// Allow increments all three window counters for phone and returns the
// admission decision.
//
// Ordering is deliberate: every window is incremented before any rejection is
// decided, so a rejected message still counts toward abuse history and a
// probing sender gets no free retries. Evaluation order is cooldown → minute
// → hour → day; an hour-ceiling breach additionally sets the cooldown marker.
//
// Phone numbers that are empty after stripping non-digits cannot be
// meaningfully keyed and are unconditionally admitted; the process-local edge
// limiter still covers that traffic by client IP.
//
// A store failure returns ErrStoreUnavailable (wrapped); it never silently
// admits unlimited traffic.
func (l *Limiter) Allow(ctx context.Context, phone string) (Decision, error) {
	key := NormalizePhone(phone)
	if key == "" {
		return Decision{Allowed: true}, nil
	}

	d := Decision{}
	var err error
	if d.Minute, err = l.store.Increment(ctx, key, WindowMinute, l.cfg.MinuteWindow); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if d.Hour, err = l.store.Increment(ctx, key, WindowHour, l.cfg.HourWindow); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if d.Day, err = l.store.Increment(ctx, key, WindowDay, l.cfg.DayWindow); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining, err := l.store.CooldownRemaining(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if remaining > 0 {
		d.Gate = GateCooldown
		d.RetryAfter = remaining
		return d, nil
	}

	switch {
	case d.Minute > l.cfg.MinuteLimit:
		d.Gate = WindowMinute
		d.RetryAfter = l.cfg.MinuteWindow
	case d.Hour > l.cfg.HourLimit:
		// Escalate: the marker outlives the hour window's natural expiry.
		if err := l.store.SetCooldown(ctx, key, l.cfg.Cooldown); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		d.Gate = WindowHour
		d.RetryAfter = l.cfg.Cooldown
	case d.Day > l.cfg.DayLimit:
		d.Gate = WindowDay
		d.RetryAfter = l.cfg.DayWindow
	default:
		d.Allowed = true
	}
	return d, nil
}

// NormalizePhone strips every non-digit rune. The empty result marks an
// identifier that cannot be rate limited.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
