package notify

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Mode selects the secondary-channel policy.
type Mode string

const (
	// ModeFallback attempts the secondary channel only when the primary
	// attempt failed. This is the default.
	ModeFallback Mode = "fallback"
	// ModeAlways attempts the secondary channel unconditionally after the
	// primary, regardless of the primary's outcome.
	ModeAlways Mode = "always"
)

// ParseMode maps a configuration string onto a Mode, defaulting to fallback.
func ParseMode(s string) Mode {
	if Mode(s) == ModeAlways {
		return ModeAlways
	}
	return ModeFallback
}

// Channel is the outbound delivery port. Implementations classify their
// provider's failures into ChannelError kinds; Send never panics.
type Channel interface {
	// Name identifies the channel in logs, metrics, and outcomes.
	Name() string
	// Send delivers text to recipient, honoring ctx for the attempt timeout.
	Send(ctx context.Context, recipient, text string) error
}

// Outcome reports which channels delivered within one dispatch call. It is
// computed once, returned to the caller, and never stored here.
type Outcome struct {
	PrimaryDelivered   bool `json:"primary_delivered"`
	SecondaryDelivered bool `json:"secondary_delivered"`
	Mode               Mode `json:"mode"`
}

// Delivered reports whether at least one channel succeeded.
func (o Outcome) Delivered() bool { return o.PrimaryDelivered || o.SecondaryDelivered }

var (
	// notifyAttempts counts channel attempts by channel name and result.
	notifyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_attempts_total",
			Help: "Total notification channel attempts.",
		},
		[]string{"channel", "result"},
	)

	// notifyFailuresByKind breaks failures down by classified error kind so
	// operators can tell a provider outage from a timeout storm.
	notifyFailuresByKind = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Notification channel failures by classified kind.",
		},
		[]string{"channel", "kind"},
	)
)

func init() {
	prometheus.MustRegister(notifyAttempts, notifyFailuresByKind)
}

// Dispatcher sends a message over the primary channel and conditionally over
// the secondary channel. A channel failure never raises to the caller; it
// degrades to a false delivered flag and is observable via logs and metrics.
type Dispatcher struct {
	Primary   Channel
	Secondary Channel

	// SecondaryEnabled is the global switch; when false the secondary channel
	// is never attempted regardless of Mode.
	SecondaryEnabled bool
	Mode             Mode
}

// Dispatch attempts delivery to recipient. Within one call the primary is
// always attempted before the secondary, there are no retries, and each
// attempt's failure is independent of the other's.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient, text string) Outcome {
	out := Outcome{Mode: d.Mode}
	if d.Mode == "" {
		out.Mode = ModeFallback
	}

	out.PrimaryDelivered = d.attempt(ctx, d.Primary, recipient, text)

	if !d.SecondaryEnabled || d.Secondary == nil {
		return out
	}
	switch out.Mode {
	case ModeAlways:
		out.SecondaryDelivered = d.attempt(ctx, d.Secondary, recipient, text)
	default: // fallback
		if !out.PrimaryDelivered {
			out.SecondaryDelivered = d.attempt(ctx, d.Secondary, recipient, text)
		}
	}
	return out
}

// attempt runs one channel send, recording metrics and logging failures. A
// nil channel counts as a failed attempt.
func (d *Dispatcher) attempt(ctx context.Context, ch Channel, recipient, text string) bool {
	if ch == nil {
		return false
	}
	err := ch.Send(ctx, recipient, text)
	if err == nil {
		notifyAttempts.WithLabelValues(ch.Name(), "ok").Inc()
		return true
	}

	notifyAttempts.WithLabelValues(ch.Name(), "error").Inc()
	kind := KindUnknown
	var cerr *ChannelError
	if errors.As(err, &cerr) {
		kind = cerr.Kind
	}
	notifyFailuresByKind.WithLabelValues(ch.Name(), kind.String()).Inc()

	log.Warn().
		Str("channel", ch.Name()).
		Str("kind", kind.String()).
		Err(err).
		Msg("notification send failed")
	return false
}
