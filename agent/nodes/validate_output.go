package flownode

import (
	"fmt"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	validatex "github.com/rishi-noob/soulsyncmain/agent/validate"
)

func ValidateOutput(in *GraphState, v *validatex.Validator) (*GraphState, error) {
	if in == nil || in.Raw == nil {
		return nil, fmt.Errorf("%w: nothing to validate", contractx.ErrValidation)
	}

	accepted, err := v.Validate(in.Request.Input, in.Raw)
	if err != nil {
		return nil, err
	}
	in.Accepted = accepted
	return in, nil
}
