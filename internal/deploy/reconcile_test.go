// Where: cli/internal/deploy/reconcile_test.go
// What: Tests for the reconciliation plan builder.
// Why: The plan shape and order are the contract of the whole deployer.
package deploy

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/lambdasvc"
)

func desiredWithRole() lambdasvc.FunctionConfig {
	return lambdasvc.FunctionConfig{
		Handler: aws.String("index.handler"),
		Runtime: aws.String("nodejs20.x"),
		Role:    aws.String("arn:aws:iam::123456789012:role/x"),
	}
}

func remoteState() *lambdasvc.RemoteState {
	return &lambdasvc.RemoteState{
		Config: lambdasvc.FunctionConfig{
			Handler:    aws.String("index.handler"),
			Runtime:    aws.String("nodejs20.x"),
			Role:       aws.String("arn:aws:iam::123456789012:role/x"),
			Timeout:    aws.Int32(3),
			MemorySize: aws.Int32(128),
		},
		CodeSHA256:       "digest-a",
		RevisionID:       "rev-1",
		ARN:              "arn:aws:lambda:us-east-1:123456789012:function:f1",
		State:            lambdasvc.StateActive,
		LastUpdateStatus: lambdasvc.UpdateSuccessful,
	}
}

func kindsOf(plan Plan) []OpKind {
	return plan.Kinds()
}

func assertKinds(t *testing.T, plan Plan, want ...OpKind) {
	t.Helper()
	got := kindsOf(plan)
	if len(got) != len(want) {
		t.Fatalf("plan kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plan kinds = %v, want %v", got, want)
		}
	}
}

func TestBuildPlanCreateWithPublish(t *testing.T) {
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-a"}

	plan, err := BuildPlan(nil, desiredWithRole(), code, PlanOptions{Publish: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpCreateFunction, OpPublishVersion)

	create := plan.Operations()[0]
	if create.Code == nil {
		t.Fatalf("create operation missing code source")
	}
	if create.Config.Role == nil {
		t.Fatalf("create operation missing configuration")
	}
}

func TestBuildPlanCreateWithoutPublish(t *testing.T) {
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-a"}

	plan, err := BuildPlan(nil, desiredWithRole(), code, PlanOptions{Publish: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpCreateFunction)
}

func TestBuildPlanCreateRejectsRevisionToken(t *testing.T) {
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-a"}

	_, err := BuildPlan(nil, desiredWithRole(), code, PlanOptions{RevisionID: "rev-9"})
	var conflict *ConcurrencyConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
}

func TestBuildPlanNoOpWhenNothingChanged(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: remote.CodeSHA256}

	plan, err := BuildPlan(remote, lambdasvc.FunctionConfig{}, code, PlanOptions{Publish: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpNoOp)
	if !plan.IsNoOp() {
		t.Fatalf("expected no-op plan")
	}
}

func TestBuildPlanPartialUpdateCarriesOnlyChangedField(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: remote.CodeSHA256}
	desired := lambdasvc.FunctionConfig{Timeout: aws.Int32(30)}

	plan, err := BuildPlan(remote, desired, code, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpUpdateConfiguration)

	patch := plan.Operations()[0].Config
	if patch.Timeout == nil || *patch.Timeout != 30 {
		t.Fatalf("patch timeout = %v, want 30", patch.Timeout)
	}
	if patch.Handler != nil || patch.Runtime != nil || patch.Role != nil ||
		patch.MemorySize != nil || patch.Environment != nil || patch.Tags != nil {
		t.Fatalf("patch carries fields beyond timeout: %+v", patch)
	}
}

func TestBuildPlanEnvironmentClearVersusUnset(t *testing.T) {
	remote := remoteState()
	remote.Config.Environment = map[string]string{"A": "1"}
	code := artifact.Inline{Data: []byte("zip"), Hash: remote.CodeSHA256}

	// Explicit empty map clears all entries.
	plan, err := BuildPlan(remote, lambdasvc.FunctionConfig{Environment: map[string]string{}}, code, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpUpdateConfiguration)
	patch := plan.Operations()[0].Config
	if patch.Environment == nil || len(patch.Environment) != 0 {
		t.Fatalf("expected empty environment in patch, got %v", patch.Environment)
	}

	// Unset leaves the remote value untouched.
	plan, err = BuildPlan(remote, lambdasvc.FunctionConfig{}, code, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpNoOp)
}

func TestBuildPlanCodeBeforeConfiguration(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-b"}
	desired := lambdasvc.FunctionConfig{MemorySize: aws.Int32(512)}

	plan, err := BuildPlan(remote, desired, code, PlanOptions{Publish: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpUpdateCode, OpUpdateConfiguration, OpPublishVersion)
}

func TestBuildPlanUnknownDigestForcesCodePush(t *testing.T) {
	remote := remoteState()
	code := artifact.ObjectStoreRef{Bucket: "b", Key: "k"}

	plan, err := BuildPlan(remote, lambdasvc.FunctionConfig{}, code, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpUpdateCode)
}

func TestBuildPlanStaleRevisionToken(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-b"}

	_, err := BuildPlan(remote, lambdasvc.FunctionConfig{}, code, PlanOptions{RevisionID: "rev-0"})
	var conflict *ConcurrencyConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
	if conflict.Remote != "rev-1" {
		t.Fatalf("conflict remote revision = %q, want rev-1", conflict.Remote)
	}
}

func TestBuildPlanTokenRidesFirstMutationOnly(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-b"}
	desired := lambdasvc.FunctionConfig{MemorySize: aws.Int32(512)}

	plan, err := BuildPlan(remote, desired, code, PlanOptions{Publish: true, RevisionID: "rev-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ops := plan.Operations()
	if ops[0].RevisionID != "rev-1" {
		t.Fatalf("first operation missing revision token")
	}
	for _, op := range ops[1:] {
		if op.RevisionID != "" {
			t.Fatalf("token leaked onto %s", op.Kind)
		}
	}
}

func TestBuildPlanDryRunMarksOperationsSimulated(t *testing.T) {
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-a"}

	plan, err := BuildPlan(nil, desiredWithRole(), code, PlanOptions{Publish: true, DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, op := range plan.Operations() {
		if !op.Simulated {
			t.Fatalf("operation %s not simulated in dry run", op.Kind)
		}
		if op.Mutating() {
			t.Fatalf("simulated operation %s reports as mutating", op.Kind)
		}
	}
}

func TestBuildPlanNoOpDryRunIsSimulated(t *testing.T) {
	remote := remoteState()
	code := artifact.Inline{Data: []byte("zip"), Hash: remote.CodeSHA256}

	plan, err := BuildPlan(remote, lambdasvc.FunctionConfig{}, code, PlanOptions{Publish: true, DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpNoOp)
	if !plan.Operations()[0].Simulated {
		t.Fatalf("no-op under dry run must carry the simulated mark")
	}
}

func TestCreateOnlyConflicts(t *testing.T) {
	current := lambdasvc.FunctionConfig{Architecture: aws.String("x86_64")}
	desired := lambdasvc.FunctionConfig{
		Architecture:         aws.String("arm64"),
		CodeSigningConfigARN: aws.String("arn:aws:lambda:us-east-1:123456789012:code-signing-config:csc-1"),
	}

	conflicts := CreateOnlyConflicts(desired, current)
	if len(conflicts) != 2 {
		t.Fatalf("conflicts = %v", conflicts)
	}

	// Matching or unset values raise nothing.
	if got := CreateOnlyConflicts(lambdasvc.FunctionConfig{Architecture: aws.String("x86_64")}, current); got != nil {
		t.Fatalf("matching architecture flagged: %v", got)
	}
	if got := CreateOnlyConflicts(lambdasvc.FunctionConfig{}, current); got != nil {
		t.Fatalf("unset fields flagged: %v", got)
	}
}

func TestBuildPlanSnapStartRequiresPublish(t *testing.T) {
	code := artifact.Inline{Data: []byte("zip"), Hash: "digest-a"}
	desired := desiredWithRole()
	desired.SnapStart = aws.String("PublishedVersions")

	_, err := BuildPlan(nil, desired, code, PlanOptions{Publish: false})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// With publish on, or SnapStart disabled, the same desired state plans.
	if _, err := BuildPlan(nil, desired, code, PlanOptions{Publish: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	desired.SnapStart = aws.String("None")
	if _, err := BuildPlan(nil, desired, code, PlanOptions{Publish: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildPlanLayersOrderMatters(t *testing.T) {
	remote := remoteState()
	remote.Config.Layers = []string{"arn:layer/a", "arn:layer/b"}
	code := artifact.Inline{Data: []byte("zip"), Hash: remote.CodeSHA256}

	desired := lambdasvc.FunctionConfig{Layers: []string{"arn:layer/b", "arn:layer/a"}}
	plan, err := BuildPlan(remote, desired, code, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, plan, OpUpdateConfiguration)
}
