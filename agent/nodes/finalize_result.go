package flownode

import (
	"fmt"
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

func FinalizeResult(in *GraphState, nowFn func() time.Time) (GraphOutput, error) {
	if in == nil || in.Accepted == nil {
		return GraphOutput{}, fmt.Errorf("%w: no accepted output", contractx.ErrValidation)
	}

	return GraphOutput{
		RequestID: in.Request.ID,
		UseCase:   in.Request.UseCase,
		Output:    in.Accepted,
		Attempts:  in.Retry.Attempts,
		Elapsed:   nowFn().Sub(in.StartedAt),
	}, nil
}
