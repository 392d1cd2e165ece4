package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInternal            = errors.New("internal error")
)

// Error is a terminal pipeline failure. Kind is one of the sentinels above
// and is what errors.Is matches against.
type Error struct {
	Kind    error
	Stage   Stage
	Message string
	Details string
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func badRequest(message string) *Error {
	return &Error{Kind: ErrBadRequest, Stage: StageValidating, Message: message}
}

func upstreamUnavailable(message string) *Error {
	return &Error{Kind: ErrUpstreamUnavailable, Stage: StageGenerating, Message: message}
}

func internal(stage Stage, message string, err error) *Error {
	e := &Error{Kind: ErrInternal, Stage: stage, Message: message}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Outcome labels a query result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	}
	return "internal_error"
}
