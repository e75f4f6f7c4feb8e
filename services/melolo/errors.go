package melolo

import (
	"errors"
	"fmt"
)

// ErrEpisodeNotFound is returned by Episode when the drama has no episode at
// the requested index. It is an expected outcome, not an upstream failure.
var ErrEpisodeNotFound = errors.New("episode not found")

// UpstreamError covers every way an upstream call can fail: transport errors,
// timeouts, non-2xx statuses and unreadable bodies. Upstream error payloads
// are undocumented, so callers should not branch on StatusCode.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
	RawBody    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "melolo api error"
	}
	msg := e.Message
	if e.RawBody != "" {
		msg = e.RawBody
	}
	return fmt.Sprintf("melolo api error: %s", msg)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
