// Package notify delivers customer-facing messages over a primary WhatsApp
// channel with an optional SMS fallback. Provider-specific failure shapes are
// mapped into a small closed error-kind set at the channel boundary, so the
// dispatcher never branches on provider fields.
package notify

import "fmt"

// ErrKind classifies a channel failure. The set is closed on purpose; new
// provider behaviors map onto the nearest existing kind at the adapter edge.
type ErrKind int

const (
	// KindUnknown covers failures that fit no other kind.
	KindUnknown ErrKind = iota
	// KindTimeout means the provider did not answer within the send timeout.
	KindTimeout
	// KindRejected means the provider answered and refused the message
	// (bad recipient, quota, auth).
	KindRejected
	// KindNetwork means the request never reached the provider.
	KindNetwork
)

// String returns a stable lowercase name for logs and metrics labels.
func (k ErrKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ChannelError is the only error type channels return. It keeps the channel
// name and classified kind together for logging.
type ChannelError struct {
	Channel string
	Kind    ErrKind
	cause   error
}

// Error implements the error interface.
func (e *ChannelError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s send failed (%s): %v", e.Channel, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s send failed (%s)", e.Channel, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ChannelError) Unwrap() error { return e.cause }

// newChannelError builds a classified channel error.
func newChannelError(channel string, kind ErrKind, cause error) *ChannelError {
	return &ChannelError{Channel: channel, Kind: kind, cause: cause}
}
