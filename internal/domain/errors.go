package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a probe step failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	ConnectionError
	UnexpectedStatus
	MissingHeader
	BodyMismatch
	TransportException
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionError:
		return "connection_error"
	case UnexpectedStatus:
		return "unexpected_status"
	case MissingHeader:
		return "missing_header"
	case BodyMismatch:
		return "body_mismatch"
	case TransportException:
		return "transport_exception"
	default:
		return "unknown"
	}
}

// ProbeError is the single error type produced by connection building and
// probing. Op names the step, e.g. "dial" or "propfind /calendars/jane/".
type ProbeError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int    // set for UnexpectedStatus
	Detail     string // header name, expected substring or status text
	Err        error
}

func (e *ProbeError) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	switch {
	case e.Kind == UnexpectedStatus:
		msg += fmt.Sprintf(" %d (want %s)", e.StatusCode, e.Detail)
	case e.Detail != "":
		msg += " " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first ProbeError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
