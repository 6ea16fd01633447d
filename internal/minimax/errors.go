package minimax

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("minimax: api key is required")

// APIError is a rejection by the remote API: either a non-2xx HTTP status or
// a non-zero status code embedded in the response envelope. Rejections are
// never retried.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != 0 && e.Message != "":
		return fmt.Sprintf("minimax: api error %d: %s", e.Code, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("minimax: api error %d", e.Code)
	case e.Message != "":
		return fmt.Sprintf("minimax: status %d: %s", e.HTTPStatus, e.Message)
	default:
		return fmt.Sprintf("minimax: status %d", e.HTTPStatus)
	}
}

// Rejected reports whether the API itself rejected the work, as opposed to a
// transport-level failure that produced an HTTP error status.
func (e *APIError) Rejected() bool {
	return e.Code != 0
}

// PollTimeoutError is raised when a task never reached a terminal status
// within its wait budget. It is deliberately distinct from APIError so
// callers can tell "the API rejected the work" apart from "the API never
// answered".
type PollTimeoutError struct {
	TaskID  string
	Kind    TaskKind
	Elapsed time.Duration
	Budget  time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("minimax: %s task %s not finished after %s (budget %s)",
		e.Kind, e.TaskID, e.Elapsed.Round(time.Second), e.Budget)
}
