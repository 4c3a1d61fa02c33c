// Package services defines the business logic for inbound message handling
// and no-show escalation. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when an inbound message contains no text
	// after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrCustomerBlocked indicates the sender is blocked for this tenant and
	// the message must not be processed further.
	ErrCustomerBlocked = errors.New("customer is blocked")

	// ErrNoAppointment indicates the customer has no upcoming confirmed
	// appointment the intent could apply to.
	ErrNoAppointment = errors.New("no upcoming appointment")
)
