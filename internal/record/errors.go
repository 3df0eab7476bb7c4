package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a mutation targets an id that is not in the
// local collection.
var ErrNotFound = errors.New("record not found")

// ConnectionError reports a transport failure talking to the remote store:
// the network was unreachable, the response was not 2xx, or the payload
// could not be decoded.
type ConnectionError struct {
	Op  string // remote action, e.g. "getOrders"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ApplicationError is a failure reported by the remote store itself
// (a response with success=false). Message is passed through unchanged.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by remote store", e.Op)
	}
	return fmt.Sprintf("%s rejected by remote store: %s", e.Op, e.Message)
}

// ValidationError is detected before any network call and blocks submission.
type ValidationError struct {
	Missing []string // required fields that were absent or blank
	Reason  string   // other validation failure, e.g. an oversized photo
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(parts) == 0 {
		return "invalid record"
	}
	return strings.Join(parts, "; ")
}

// IsConnection reports whether err is or wraps a *ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsApplication reports whether err is or wraps an *ApplicationError.
func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
