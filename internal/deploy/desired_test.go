// Where: cli/internal/deploy/desired_test.go
// What: Tests for desired-state normalization and validation.
// Why: Defaulting must depend on the create-vs-update branch, nothing else.
package deploy

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fnship/fnship/internal/lambdasvc"
)

func TestBuildDesiredCreateRequiresRole(t *testing.T) {
	_, err := BuildDesired(lambdasvc.FunctionConfig{}, false)

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validation.Violations) != 1 || !strings.Contains(validation.Violations[0], "role") {
		t.Fatalf("unexpected violations: %v", validation.Violations)
	}
}

func TestBuildDesiredCreateAppliesDefaults(t *testing.T) {
	input := lambdasvc.FunctionConfig{Role: aws.String("arn:aws:iam::1:role/x")}

	out, err := BuildDesired(input, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(out.Handler); got != DefaultHandler {
		t.Fatalf("handler = %q, want %q", got, DefaultHandler)
	}
	if got := aws.ToString(out.Runtime); got != DefaultRuntime {
		t.Fatalf("runtime = %q, want %q", got, DefaultRuntime)
	}
	if got := aws.ToInt32(out.Timeout); got != DefaultTimeoutSeconds {
		t.Fatalf("timeout = %d, want %d", got, DefaultTimeoutSeconds)
	}
	if got := aws.ToInt32(out.EphemeralStorageMB); got != DefaultEphemeralStorageMB {
		t.Fatalf("ephemeral storage = %d, want %d", got, DefaultEphemeralStorageMB)
	}
}

func TestBuildDesiredCreateKeepsExplicitValues(t *testing.T) {
	input := lambdasvc.FunctionConfig{
		Role:    aws.String("arn:aws:iam::1:role/x"),
		Handler: aws.String("app.main"),
		Runtime: aws.String("python3.12"),
	}

	out, err := BuildDesired(input, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(out.Handler) != "app.main" || aws.ToString(out.Runtime) != "python3.12" {
		t.Fatalf("explicit values overridden: %+v", out)
	}
}

func TestBuildDesiredUpdateInjectsNoDefaults(t *testing.T) {
	out, err := BuildDesired(lambdasvc.FunctionConfig{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Handler != nil || out.Runtime != nil || out.Timeout != nil ||
		out.MemorySize != nil || out.Role != nil || out.Architecture != nil {
		t.Fatalf("update branch injected defaults: %+v", out)
	}
}

func TestBuildDesiredImageConfigExclusions(t *testing.T) {
	input := lambdasvc.FunctionConfig{
		Role:        aws.String("arn:aws:iam::1:role/x"),
		Handler:     aws.String("index.handler"),
		Runtime:     aws.String("nodejs20.x"),
		Layers:      []string{"arn:layer/a"},
		ImageConfig: &lambdasvc.ImageConfig{Command: []string{"app.main"}},
	}

	_, err := BuildDesired(input, false)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validation.Violations) != 3 {
		t.Fatalf("expected handler, runtime, and layers violations, got %v", validation.Violations)
	}
}

func TestBuildDesiredImageConfigSkipsHandlerDefaults(t *testing.T) {
	input := lambdasvc.FunctionConfig{
		Role:        aws.String("arn:aws:iam::1:role/x"),
		ImageConfig: &lambdasvc.ImageConfig{Command: []string{"app.main"}},
	}

	out, err := BuildDesired(input, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Handler != nil || out.Runtime != nil {
		t.Fatalf("image deploy must not default handler/runtime: %+v", out)
	}
}

func TestBuildDesiredCollectsEveryViolation(t *testing.T) {
	input := lambdasvc.FunctionConfig{
		Timeout:      aws.Int32(10000),
		MemorySize:   aws.Int32(1),
		Architecture: aws.String("sparc"),
		TracingMode:  aws.String("Everything"),
	}

	_, err := BuildDesired(input, false)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// role + timeout + memory + architecture + tracing
	if len(validation.Violations) != 5 {
		t.Fatalf("expected 5 violations, got %d: %v", len(validation.Violations), validation.Violations)
	}
}

func TestBuildDesiredBoundsOnUpdateBranch(t *testing.T) {
	input := lambdasvc.FunctionConfig{Timeout: aws.Int32(0)}

	_, err := BuildDesired(input, true)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
