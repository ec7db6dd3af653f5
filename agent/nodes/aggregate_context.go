package flownode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	aggregatex "github.com/rishi-noob/soulsyncmain/agent/aggregate"
	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

var ErrInvalidRequest = errors.New("request id is empty")

func AggregateContext(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		return nil, ErrInvalidRequest
	}

	input, err := aggregatex.For(in.UseCase, in.Payload)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", in.UseCase, err)
	}

	return &GraphState{
		Request: contractx.Request{
			ID:      requestID,
			UseCase: in.UseCase,
			Input:   input,
		},
		StartedAt: nowFn(),
	}, nil
}
