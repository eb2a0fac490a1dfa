package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure.
type Kind int

const (
	// GenericRequestFailure is any non-2xx outcome not otherwise classified.
	GenericRequestFailure Kind = iota
	// Unauthorized means the server rejected the credentials.
	Unauthorized
	// NetworkUnavailable means no response reached the client.
	NetworkUnavailable
	// Timeout means the client aborted the request.
	Timeout
	// SessionInitError means session restoration failed.
	SessionInitError
	// RenewalFailure means silent renewal failed.
	RenewalFailure
	// RouteDataLoadFailure means the menu/authorization data fetch failed.
	RouteDataLoadFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case NetworkUnavailable:
		return "networkUnavailable"
	case Timeout:
		return "timeout"
	case SessionInitError:
		return "sessionInitError"
	case RenewalFailure:
		return "renewalFailure"
	case RouteDataLoadFailure:
		return "routeDataLoadFailure"
	}
	return "requestFailure"
}

// Failure is a typed request failure carrying the server-provided message
// when one was present.
type Failure struct {
	Kind    Kind
	Status  int
	URL     string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%v: %v", f.Kind, f.Message)
	}
	if f.Err != nil {
		return fmt.Sprintf("%v: %v", f.Kind, f.Err)
	}
	return f.Kind.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure creates a classified failure.
func NewFailure(kind Kind, url string, status int, message string, err error) *Failure {
	return &Failure{Kind: kind, URL: url, Status: status, Message: message, Err: err}
}

// KindOf extracts the failure kind; ok is false for foreign errors.
func KindOf(err error) (Kind, bool) {
	failure := &Failure{}
	if errors.As(err, &failure) {
		return failure.Kind, true
	}
	return GenericRequestFailure, false
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	actual, ok := KindOf(err)
	return ok && actual == kind
}
