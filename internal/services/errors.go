// Package services defines the business logic for assistants, knowledge
// entries, conversations, and the answer-routing pipeline. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrAssistantNotFound indicates that the requested assistant does not
	// exist or is not accessible to the current user.
	ErrAssistantNotFound = errors.New("assistant not found")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEntryNotFound indicates that the requested knowledge entry does not
	// exist under the given assistant.
	ErrEntryNotFound = errors.New("knowledge entry not found")

	// ErrInvalidInput wraps validation failures on caller-supplied fields
	// (blank titles, unknown source kinds). Check with errors.Is; the wrapped
	// message names the offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyMessage is returned when a chat request carries a blank message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a message exceeds the maximum configured
	// length limit.
	ErrTooLong = errors.New("message too long")

	// ErrRateLimited is returned when the per-assistant sliding window has
	// been exhausted for the calling client.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBackendUnavailable is returned when the generative backend cannot be
	// reached or fails before producing any output.
	ErrBackendUnavailable = errors.New("generative backend unavailable")

	// ErrDemoProtected is returned on attempts to delete the seeded demo
	// assistant.
	ErrDemoProtected = errors.New("demo assistant cannot be deleted")
)
