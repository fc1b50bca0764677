// Where: cli/internal/deploy/reconcile.go
// What: Reconciliation state machine producing the deployment plan.
// Why: Decide every remote call, its payload, and its order up front.
package deploy

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/lambdasvc"
)

// PlanOptions carries the run-level switches that shape the plan.
type PlanOptions struct {
	Publish    bool
	DryRun     bool
	RevisionID string
}

// ConcurrencyConflictError reports a stale revision token. The run aborts
// before any mutation; the caller must re-read state and re-invoke.
type ConcurrencyConflictError struct {
	Function string
	Token    string
	Remote   string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("revision token %q does not match remote revision %q for function %s",
		e.Token, e.Remote, e.Function)
}

// BuildPlan compares remote and desired state and emits the ordered plan.
//
// Absent remote state yields a single create carrying configuration and
// code together. Existing state yields independent code and configuration
// diffs, code first: configuration is more likely to depend on the new
// artifact, and the service serializes updates per function so submitting
// code first avoids tripping an in-progress rejection. PublishVersion
// follows the last mutating step when requested; no diffs at all yield a
// NoOp plan.
func BuildPlan(remote *lambdasvc.RemoteState, desired lambdasvc.FunctionConfig, code artifact.CodeSource, opts PlanOptions) (Plan, error) {
	// SnapStart only ever fires on published versions, so asking for it
	// while suppressing the publish step can never take effect.
	if desired.SnapStart != nil && *desired.SnapStart == "PublishedVersions" && !opts.Publish {
		return Plan{}, &ValidationError{Violations: []string{
			"snap-start PublishedVersions requires publishing a version (drop --no-publish)",
		}}
	}

	if remote == nil {
		return buildCreatePlan(desired, code, opts)
	}
	return buildUpdatePlan(remote, desired, code, opts)
}

func buildCreatePlan(desired lambdasvc.FunctionConfig, code artifact.CodeSource, opts PlanOptions) (Plan, error) {
	if opts.RevisionID != "" {
		// A token asserts an expected remote revision; with no function
		// behind it the assertion cannot hold.
		return Plan{}, &ConcurrencyConflictError{Token: opts.RevisionID}
	}
	if code == nil {
		return Plan{}, fmt.Errorf("creating a function requires a code source")
	}

	ops := []Operation{{
		Kind:      OpCreateFunction,
		Config:    desired,
		Code:      code,
		Simulated: opts.DryRun,
	}}
	if opts.Publish {
		ops = append(ops, Operation{Kind: OpPublishVersion, Simulated: opts.DryRun})
	}
	return Plan{ops: ops}, nil
}

func buildUpdatePlan(remote *lambdasvc.RemoteState, desired lambdasvc.FunctionConfig, code artifact.CodeSource, opts PlanOptions) (Plan, error) {
	if opts.RevisionID != "" && opts.RevisionID != remote.RevisionID {
		return Plan{}, &ConcurrencyConflictError{
			Token:  opts.RevisionID,
			Remote: remote.RevisionID,
		}
	}

	var ops []Operation

	if codeChanged(remote, code) {
		ops = append(ops, Operation{
			Kind:      OpUpdateCode,
			Code:      code,
			Simulated: opts.DryRun,
		})
	}

	patch, changed := diffConfig(desired, remote.Config)
	if changed {
		ops = append(ops, Operation{
			Kind:      OpUpdateConfiguration,
			Config:    patch,
			Simulated: opts.DryRun,
		})
	}

	if len(ops) == 0 {
		return Plan{ops: []Operation{{Kind: OpNoOp, Simulated: opts.DryRun}}}, nil
	}

	// The token rides on the first mutating call only; once it passes, the
	// run owns the subsequent revisions it creates.
	ops[0].RevisionID = opts.RevisionID

	if opts.Publish {
		ops = append(ops, Operation{Kind: OpPublishVersion, Simulated: opts.DryRun})
	}
	return Plan{ops: ops}, nil
}

// CreateOnlyConflicts lists desired settings that only apply when the
// function is created and differ from the remote value. They never enter
// an update patch, so the caller should surface them instead of letting
// the intent vanish silently.
func CreateOnlyConflicts(desired, current lambdasvc.FunctionConfig) []string {
	var conflicts []string
	if desired.Architecture != nil && !strEqual(desired.Architecture, current.Architecture) {
		conflicts = append(conflicts, fmt.Sprintf(
			"architecture %q applies on create only; the existing function keeps its current architecture", *desired.Architecture))
	}
	if desired.CodeSigningConfigARN != nil && !strEqual(desired.CodeSigningConfigARN, current.CodeSigningConfigARN) {
		conflicts = append(conflicts, fmt.Sprintf(
			"code-signing config %q applies on create only; the existing function keeps its current configuration", *desired.CodeSigningConfigARN))
	}
	return conflicts
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// codeChanged reports whether the code artifact must be re-pushed. When
// either digest is unknown the diff is undecidable and code is pushed.
func codeChanged(remote *lambdasvc.RemoteState, code artifact.CodeSource) bool {
	if code == nil {
		return false
	}
	hash := code.SHA256()
	if hash == "" || remote.CodeSHA256 == "" {
		return true
	}
	return hash != remote.CodeSHA256
}

// diffConfig computes the partial update payload: only fields the caller
// set AND that differ from the remote value appear in the patch. An unset
// field never enters the patch, so the remote service cannot misread it as
// a reset. A set-but-empty map clears all remote entries.
func diffConfig(desired, current lambdasvc.FunctionConfig) (lambdasvc.FunctionConfig, bool) {
	patch := lambdasvc.FunctionConfig{}
	changed := false

	diffString(desired.Handler, current.Handler, &patch.Handler, &changed)
	diffString(desired.Runtime, current.Runtime, &patch.Runtime, &changed)
	diffString(desired.Role, current.Role, &patch.Role, &changed)
	diffString(desired.Description, current.Description, &patch.Description, &changed)
	diffInt32(desired.MemorySize, current.MemorySize, &patch.MemorySize, &changed)
	diffInt32(desired.Timeout, current.Timeout, &patch.Timeout, &changed)
	diffString(desired.DeadLetterARN, current.DeadLetterARN, &patch.DeadLetterARN, &changed)
	diffString(desired.KMSKeyARN, current.KMSKeyARN, &patch.KMSKeyARN, &changed)
	diffString(desired.TracingMode, current.TracingMode, &patch.TracingMode, &changed)
	diffInt32(desired.EphemeralStorageMB, current.EphemeralStorageMB, &patch.EphemeralStorageMB, &changed)
	diffString(desired.SnapStart, current.SnapStart, &patch.SnapStart, &changed)

	if desired.Environment != nil && !maps.Equal(desired.Environment, current.Environment) {
		patch.Environment = desired.Environment
		changed = true
	}
	if desired.Tags != nil && !maps.Equal(desired.Tags, current.Tags) {
		patch.Tags = desired.Tags
		changed = true
	}
	if desired.Layers != nil && !slices.Equal(desired.Layers, current.Layers) {
		patch.Layers = desired.Layers
		changed = true
	}
	if desired.VPC != nil && !vpcEqual(desired.VPC, current.VPC) {
		patch.VPC = desired.VPC
		changed = true
	}
	if desired.FileSystems != nil && !slices.Equal(desired.FileSystems, current.FileSystems) {
		patch.FileSystems = desired.FileSystems
		changed = true
	}
	if desired.Logging != nil && (current.Logging == nil || *desired.Logging != *current.Logging) {
		patch.Logging = desired.Logging
		changed = true
	}
	// The read path does not expose image overrides, so a desired image
	// config is always re-asserted rather than diffed.
	if desired.ImageConfig != nil {
		patch.ImageConfig = desired.ImageConfig
		changed = true
	}

	return patch, changed
}

func diffString(desired, current *string, out **string, changed *bool) {
	if desired == nil {
		return
	}
	if current == nil || *desired != *current {
		*out = desired
		*changed = true
	}
}

func diffInt32(desired, current *int32, out **int32, changed *bool) {
	if desired == nil {
		return
	}
	if current == nil || *desired != *current {
		*out = desired
		*changed = true
	}
}

func vpcEqual(a, b *lambdasvc.VPCConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.SubnetIDs, b.SubnetIDs) &&
		slices.Equal(a.SecurityGroupIDs, b.SecurityGroupIDs)
}
