package translink

import (
	"context"
	"errors"
	"net"
)

// Kind classifies why a request to TransLink failed.
type Kind int

const (
	Unknown Kind = iota
	Unreachable
	Timeout
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Client. Its message is meant for
// display; Detail carries the underlying cause for logs and tests.
type Error struct {
	Kind   Kind
	Op     string // "stop", "estimates", "buses"
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case Unreachable:
		return "Data not available: check network connection"
	case Timeout:
		return "Unable to connect to Translink at this time"
	default:
		return "Failed to get data from Translink service"
	}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classify picks the kind for a transport or read failure.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return Unknown
}
