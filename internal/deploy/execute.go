// Where: cli/internal/deploy/execute.go
// What: Sequential plan executor.
// Why: Each step requires the previous step settled on the remote side.
package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fnship/fnship/internal/lambdasvc"
)

// PartialSuccessError reports a failure after at least one mutation already
// landed. Remote state is no longer at the old baseline and nothing is
// rolled back; the next invocation reconciles from whatever remains.
type PartialSuccessError struct {
	Function  string
	Completed []OpKind
	Failed    OpKind
	Err       error
}

func (e *PartialSuccessError) Error() string {
	done := make([]string, 0, len(e.Completed))
	for _, kind := range e.Completed {
		done = append(done, string(kind))
	}
	return fmt.Sprintf("%s failed for %s after [%s] already applied: %v",
		e.Failed, e.Function, strings.Join(done, ", "), e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }

// Executor applies a plan in order against the function service. A dry-run
// plan (all operations simulated) issues no mutating calls at all.
type Executor struct {
	Service      lambdasvc.Service
	WaitTimeout  time.Duration
	initialState *lambdasvc.RemoteState
}

// NewExecutor wires an executor with the stock readiness bound.
func NewExecutor(service lambdasvc.Service) *Executor {
	return &Executor{Service: service, WaitTimeout: 5 * time.Minute}
}

// WithInitialState records the state-read snapshot so the executor knows
// the starting ARN and whether the function needs settling before the
// first mutation.
func (e *Executor) WithInitialState(remote *lambdasvc.RemoteState) *Executor {
	e.initialState = remote
	return e
}

// Execute runs the plan. On the first failure the remaining operations are
// abandoned; if a mutation already landed the error is a
// PartialSuccessError naming the completed prefix.
func (e *Executor) Execute(ctx context.Context, id lambdasvc.Identity, plan Plan) (Result, error) {
	if e.Service == nil {
		return Result{}, fmt.Errorf("function service not configured")
	}

	result := Result{NoOp: plan.IsNoOp()}
	if e.initialState != nil {
		result.FunctionARN = e.initialState.ARN
	}

	// A function observed mid-update (or in Failed state from a previous
	// run) is not yet safe to mutate; settle it first, exactly like a
	// fresh creation.
	settled := e.initialState == nil || e.initialState.Ready()

	for _, op := range plan.Operations() {
		if op.Kind == OpNoOp {
			if op.Simulated {
				result.DryRun = true
			}
			result.Applied = append(result.Applied, op.Kind)
			continue
		}
		if op.Simulated {
			result.DryRun = true
			result.Applied = append(result.Applied, op.Kind)
			continue
		}

		if !settled {
			if err := e.Service.WaitReady(ctx, id, e.waitTimeout()); err != nil {
				return result, e.wrapStepError(id, result.Applied, op.Kind, err)
			}
			settled = true
		}

		if err := e.apply(ctx, id, op, &result); err != nil {
			return result, e.wrapStepError(id, result.Applied, op.Kind, err)
		}
		result.Applied = append(result.Applied, op.Kind)

		// Every mutation puts the function back into an in-progress
		// update; the next step must wait it out.
		settled = false
	}

	return result, nil
}

func (e *Executor) apply(ctx context.Context, id lambdasvc.Identity, op Operation, result *Result) error {
	switch op.Kind {
	case OpCreateFunction:
		out, err := e.Service.CreateFunction(ctx, id, op.Config, op.Code)
		if err != nil {
			return err
		}
		result.FunctionARN = out.ARN
		return nil

	case OpUpdateCode:
		_, err := e.Service.UpdateFunctionCode(ctx, id, op.Code, op.RevisionID)
		return err

	case OpUpdateConfiguration:
		_, err := e.Service.UpdateFunctionConfiguration(ctx, id, op.Config, op.RevisionID)
		return err

	case OpPublishVersion:
		out, err := e.Service.PublishVersion(ctx, id)
		if err != nil {
			return err
		}
		result.PublishedVersion = aws.String(out.Version)
		if result.FunctionARN == "" {
			result.FunctionARN = strings.TrimSuffix(out.VersionARN, ":"+out.Version)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation %q", op.Kind)
	}
}

// wrapStepError distinguishes a clean failure (nothing mutated yet) from a
// partial success that must name the applied prefix.
func (e *Executor) wrapStepError(id lambdasvc.Identity, applied []OpKind, failed OpKind, err error) error {
	mutated := false
	for _, kind := range applied {
		if kind != OpNoOp {
			mutated = true
			break
		}
	}
	if !mutated {
		return err
	}
	return &PartialSuccessError{
		Function:  id.Name,
		Completed: applied,
		Failed:    failed,
		Err:       err,
	}
}

func (e *Executor) waitTimeout() time.Duration {
	if e.WaitTimeout <= 0 {
		return 5 * time.Minute
	}
	return e.WaitTimeout
}
