package openrouter

import (
	"io"
	"net/http"

	"github.com/rishi-noob/soulsyncmain/pkg/upstream"
)

const maxErrorBody = 4 << 10

// StatusTransport adds static headers and turns 429/5xx replies into *upstream.Error
// so the status survives whatever client library sits on top.
type StatusTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func NewStatusTransport(base http.RoundTripper, headers map[string]string) *StatusTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &StatusTransport{base: base, headers: headers}
}

func (t *StatusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !upstream.IsTransientStatus(resp.StatusCode) {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	return nil, &upstream.Error{
		Provider: "openrouter",
		Status:   resp.StatusCode,
		Message:  string(body),
	}
}
