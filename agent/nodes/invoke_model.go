package flownode

import (
	"context"
	"fmt"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	retryx "github.com/rishi-noob/soulsyncmain/agent/retry"
)

// InvokeModel calls the invoker once, or through the retry controller when ctrl is
// non-nil. Use cases that must not be retried pass a nil controller.
func InvokeModel(
	ctx context.Context,
	in *GraphState,
	invoker contractx.Invoker,
	ctrl *retryx.Controller,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if ctrl == nil {
		out, err := invoker.Invoke(ctx, in.Request)
		in.Retry = retryx.State{Attempts: 1}
		if err != nil {
			return nil, err
		}
		in.Raw = out
		return in, nil
	}

	out, state, err := retryx.Do(ctx, ctrl, func(ctx context.Context) (contractx.Output, error) {
		return invoker.Invoke(ctx, in.Request)
	})
	in.Retry = state
	if err != nil {
		return nil, err
	}
	in.Raw = out
	return in, nil
}
