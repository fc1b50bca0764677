// Where: cli/internal/deploy/plan.go
// What: Deployment plan and operation variants.
// Why: The executor consumes an immutable, ordered operation sequence.
package deploy

import (
	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/lambdasvc"
)

// OpKind names a remote operation the plan can contain.
type OpKind string

const (
	OpCreateFunction      OpKind = "CreateFunction"
	OpUpdateCode          OpKind = "UpdateCode"
	OpUpdateConfiguration OpKind = "UpdateConfiguration"
	OpPublishVersion      OpKind = "PublishVersion"
	OpNoOp                OpKind = "NoOp"
)

// Operation is one planned remote call. Config carries the full desired
// state for a create and only the changed fields for a configuration
// update. RevisionID is the optimistic-concurrency token, attached to the
// first mutating operation only. Simulated operations are never issued.
type Operation struct {
	Kind       OpKind
	Config     lambdasvc.FunctionConfig
	Code       artifact.CodeSource
	RevisionID string
	Simulated  bool
}

// Mutating reports whether executing the operation changes remote state.
func (o Operation) Mutating() bool {
	switch o.Kind {
	case OpCreateFunction, OpUpdateCode, OpUpdateConfiguration, OpPublishVersion:
		return !o.Simulated
	default:
		return false
	}
}

// Plan is the ordered operation sequence for one run. It is computed once
// and read-only afterwards.
type Plan struct {
	ops []Operation
}

// Operations returns a copy of the planned sequence.
func (p Plan) Operations() []Operation {
	out := make([]Operation, len(p.ops))
	copy(out, p.ops)
	return out
}

// Len returns the number of planned operations.
func (p Plan) Len() int { return len(p.ops) }

// IsNoOp reports whether the plan contains no mutating work at all.
func (p Plan) IsNoOp() bool {
	for _, op := range p.ops {
		if op.Kind != OpNoOp {
			return false
		}
	}
	return true
}

// Kinds lists the operation kinds in plan order, mostly for reporting.
func (p Plan) Kinds() []OpKind {
	kinds := make([]OpKind, 0, len(p.ops))
	for _, op := range p.ops {
		kinds = append(kinds, op.Kind)
	}
	return kinds
}

// Result carries the observable outputs of one deployment run.
type Result struct {
	FunctionARN      string
	PublishedVersion *string
	Applied          []OpKind
	DryRun           bool
	NoOp             bool
}
