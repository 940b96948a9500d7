package models

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies failures of an interaction.
type ErrorKind int

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown ErrorKind = iota
	// KindConfiguration means a required setting, usually a credential, is missing. It is
	// raised before any network call.
	KindConfiguration
	// KindTimeout means an external call exceeded its deadline.
	KindTimeout
	// KindTransport means a network failure or a non-2xx response.
	KindTransport
	// KindFormat means a response was received but matched no recognized shape.
	KindFormat
	// KindValidation means the user input was rejected before any call.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Msg is already presentable to the user; Err keeps the cause for
// logging and errors.Is checks.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigurationError returns a KindConfiguration error with a formatted message.
func ConfigurationError(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError returns a KindValidation error with a formatted message.
func ValidationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// FormatError returns a KindFormat error. The cause may be nil.
func FormatError(err error, format string, args ...any) error {
	return &Error{Kind: KindFormat, Msg: fmt.Sprintf(format, args...), Err: err}
}

// TransportError returns a KindTransport error wrapping err. If err is itself a timeout, a
// KindTimeout error is returned instead so a deadline hit inside an HTTP client is not mistaken
// for a network failure.
func TransportError(err error, format string, args ...any) error {
	kind := KindTransport
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies any error chain. Context deadlines and network timeouts are KindTimeout even
// when they were never wrapped in an Error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
