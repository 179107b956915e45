package chat

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorUnauthenticatedSender ErrorCode = "UNAUTHENTICATED_SENDER"
	ErrorRecipientNotFound     ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrorSelfMessage           ErrorCode = "SELF_MESSAGE_REJECTED"
	ErrorBodyInvalid           ErrorCode = "BODY_INVALID"
	ErrorStorage               ErrorCode = "STORAGE_FAILURE"
	ErrorCommandInvalid        ErrorCode = "COMMAND_INVALID"
	ErrorRateLimited           ErrorCode = "RATE_LIMITED"

	// ErrorDispatchUnreachable never reaches a caller. It labels logs for
	// events that could not be handed to a live connection.
	ErrorDispatchUnreachable ErrorCode = "DISPATCH_UNREACHABLE"
)

// Reasons are user-facing; they travel in sendError events.
const (
	reasonNotLoggedIn  = "You must be logged in to send messages."
	reasonUserNotFound = "User not found."
	reasonSelfMessage  = "You cannot send a message to yourself."
	reasonEmptyBody    = "Message cannot be empty."
	reasonStorage      = "Failed to send message. Please try again."
	reasonBadCommand   = "Message could not be understood."
	reasonRateLimited  = "You are sending messages too quickly. Slow down."
)

var reasonBodyTooLong = fmt.Sprintf("Message cannot exceed %d characters.", maxBodyLength)

// Error is what every rejected send returns. Reason is safe to show the
// sender; Err carries the underlying cause for logs.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("chat: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("chat: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// InvalidCommand wraps a frame that DecodeCommand rejected.
func InvalidCommand(err error) *Error {
	return newError(ErrorCommandInvalid, reasonBadCommand, err)
}

// RateLimited is returned to a sender that exceeded its send budget.
func RateLimited() *Error {
	return newError(ErrorRateLimited, reasonRateLimited, nil)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a chat
// error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// ReasonOf returns the sender-facing reason for err. Errors that did not
// come from this package get the generic storage reason so internals never
// reach a client.
func ReasonOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return reasonStorage
}
