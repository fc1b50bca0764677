// Where: cli/internal/deploy/report_test.go
// What: Tests for the final report rendering.
// Why: The published version must never appear for simulated publishes.
package deploy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fnship/fnship/internal/ui"
)

func TestReportDeployedWithVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	Report(ui.New(buf), "f1", Result{
		FunctionARN:      "arn:aws:lambda:us-east-1:1:function:f1",
		PublishedVersion: aws.String("1"),
		Applied:          []OpKind{OpCreateFunction, OpPublishVersion},
	})

	out := buf.String()
	if !strings.Contains(out, "Deployed f1") {
		t.Fatalf("missing success line: %s", out)
	}
	if !strings.Contains(out, "arn:aws:lambda:us-east-1:1:function:f1") {
		t.Fatalf("missing ARN: %s", out)
	}
	if !strings.Contains(out, "Published version") {
		t.Fatalf("missing published version: %s", out)
	}
}

func TestReportDryRunHidesVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	Report(ui.New(buf), "f1", Result{
		DryRun:  true,
		Applied: []OpKind{OpCreateFunction, OpPublishVersion},
	})

	out := buf.String()
	if !strings.Contains(out, "Dry run") {
		t.Fatalf("missing dry-run header: %s", out)
	}
	if !strings.Contains(out, "(simulated)") {
		t.Fatalf("operations not marked simulated: %s", out)
	}
	if strings.Contains(out, "Published version") {
		t.Fatalf("dry run leaked a published version: %s", out)
	}
}

func TestReportNoOp(t *testing.T) {
	buf := &bytes.Buffer{}
	Report(ui.New(buf), "f1", Result{
		NoOp:        true,
		FunctionARN: "arn:aws:lambda:us-east-1:1:function:f1",
		Applied:     []OpKind{OpNoOp},
	})

	if !strings.Contains(buf.String(), "No changes") {
		t.Fatalf("missing no-op line: %s", buf.String())
	}
}

func TestReportDryRunNoOpKeepsDryRunFraming(t *testing.T) {
	buf := &bytes.Buffer{}
	Report(ui.New(buf), "f1", Result{
		DryRun:  true,
		NoOp:    true,
		Applied: []OpKind{OpNoOp},
	})

	out := buf.String()
	if !strings.Contains(out, "Dry run") {
		t.Fatalf("dry-run no-op lost the dry-run framing: %s", out)
	}
}
