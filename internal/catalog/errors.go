package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a catalog failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindBadRequest: the caller's input is invalid; no request was sent.
	KindBadRequest
	// KindServiceNotConfigured: no API key is available.
	KindServiceNotConfigured
	// KindMisconfiguredService: TMDB rejected the API key (401).
	KindMisconfiguredService
	// KindNotFound: TMDB answered 404.
	KindNotFound
	// KindUpstream: any other non-2xx answer; Status carries the upstream code.
	KindUpstream
	// KindTransientNetwork: no response was received.
	KindTransientNetwork
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrServiceNotConfigured = errors.New("service not configured")
	ErrMisconfiguredService = errors.New("misconfigured service")
	ErrNotFound             = errors.New("not found")
	ErrUpstream             = errors.New("upstream error")
	ErrTransientNetwork     = errors.New("transient network error")
)

// User-facing messages.
const (
	MsgInvalidMovieID   = "Invalid movie ID"
	MsgQueryRequired    = "Search query is required"
	MsgInvalidPage      = "Invalid page number"
	MsgNotConfigured    = "Movie service is not configured. Please contact support."
	MsgInvalidAPIConfig = "Invalid API configuration"
	MsgMovieNotFound    = "Movie not found"
	MsgDetailsFailed    = "Failed to fetch movie details. Please try again."
	MsgSearchFailed     = "Failed to search movies. Please try again."
	MsgNetwork          = "Network error. Please check your connection and try again."
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindServiceNotConfigured:
		return "service_not_configured"
	case KindMisconfiguredService:
		return "misconfigured_service"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindTransientNetwork:
		return "transient_network_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindBadRequest:
		return ErrBadRequest
	case KindServiceNotConfigured:
		return ErrServiceNotConfigured
	case KindMisconfiguredService:
		return ErrMisconfiguredService
	case KindNotFound:
		return ErrNotFound
	case KindUpstream:
		return ErrUpstream
	case KindTransientNetwork:
		return ErrTransientNetwork
	default:
		return nil
	}
}

// Error is a classified catalog failure. Message is safe to show to users;
// Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

// KindOf returns the Kind of a catalog error anywhere in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
