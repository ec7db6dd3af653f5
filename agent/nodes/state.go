package flownode

import (
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	retryx "github.com/rishi-noob/soulsyncmain/agent/retry"
)

type GraphInput struct {
	RequestID string
	UseCase   contractx.UseCase
	// Payload is one of the contract request types, e.g. contract.ChatAdviceRequest.
	Payload any
}

type GraphOutput struct {
	RequestID string
	UseCase   contractx.UseCase
	Output    contractx.Output
	Attempts  int
	Elapsed   time.Duration
}

// GraphState travels through aggregate_context -> invoke_model -> validate_output ->
// finalize_result. It belongs to a single call.
type GraphState struct {
	Request   contractx.Request
	StartedAt time.Time

	Raw      contractx.Output
	Retry    retryx.State
	Accepted contractx.Output
}
