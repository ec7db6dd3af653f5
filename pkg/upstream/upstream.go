// Package upstream carries provider failures in a provider-neutral form so callers
// can classify them without parsing messages.
package upstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRefusal marks a reply the model declined to produce or a provider filter blocked.
	ErrRefusal = errors.New("model refused to answer")
	// ErrEmptyResponse marks a transport-level reply without any choice or candidate.
	ErrEmptyResponse = errors.New("provider returned no choices")
)

// Error is a non-2xx reply from a model provider.
type Error struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: upstream status %d", e.Provider, e.Status)
	if m := strings.TrimSpace(e.Message); m != "" {
		if len(m) > 200 {
			m = m[:200]
		}
		msg += ": " + m
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) UpstreamStatus() int {
	return e.Status
}

// Transient reports 429 and 5xx: the provider is overloaded or briefly unavailable.
func (e *Error) Transient() bool {
	return IsTransientStatus(e.Status)
}

func IsTransientStatus(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Status
	}
	return 0
}
