package llm

import (
	"errors"
	"fmt"
)

// Kind categorizes generation-service failures.
type Kind string

const (
	// KindTransport covers unreachable services and non-2xx replies.
	KindTransport Kind = "TRANSPORT"

	// KindMalformedResponse means a 2xx reply did not have the expected shape.
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
)

// Error is returned by Client.Complete for every failure.
type Error struct {
	Kind Kind

	// StatusCode is the HTTP status for transport errors that got a reply,
	// zero otherwise.
	StatusCode int

	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is, or wraps, a transport error.
func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

// IsMalformedResponse reports whether err is, or wraps, a malformed-response error.
func IsMalformedResponse(err error) bool {
	return hasKind(err, KindMalformedResponse)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newMalformed(message string) *Error {
	return &Error{Kind: KindMalformedResponse, Message: message}
}
