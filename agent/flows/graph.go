package flows

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	nodex "github.com/rishi-noob/soulsyncmain/agent/nodes"
	retryx "github.com/rishi-noob/soulsyncmain/agent/retry"
	validatex "github.com/rishi-noob/soulsyncmain/agent/validate"
)

// flow is the compiled pipeline of one use case.
type flow struct {
	contract  contractx.Contract
	invoker   contractx.Invoker
	retry     *retryx.Controller
	validator *validatex.Validator
	runner    compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

func (s *Service) compileFlow(ctx context.Context, f *flow) error {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("aggregate_context",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.AggregateContext(in, s.now)
		}),
	); err != nil {
		return fmt.Errorf("add node aggregate_context: %w", err)
	}

	if err := graph.AddLambdaNode("invoke_model",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InvokeModel(ctx, in, f.invoker, f.retry)
		}),
	); err != nil {
		return fmt.Errorf("add node invoke_model: %w", err)
	}

	if err := graph.AddLambdaNode("validate_output",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateOutput(in, f.validator)
		}),
	); err != nil {
		return fmt.Errorf("add node validate_output: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_result",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in, s.now)
		}),
	); err != nil {
		return fmt.Errorf("add node finalize_result: %w", err)
	}

	edges := [][2]string{
		{compose.START, "aggregate_context"},
		{"aggregate_context", "invoke_model"},
		{"invoke_model", "validate_output"},
		{"validate_output", "finalize_result"},
		{"finalize_result", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("flows."+string(f.contract.UseCase)))
	if err != nil {
		return fmt.Errorf("compile %s flow: %w", f.contract.UseCase, err)
	}
	f.runner = runner
	return nil
}
