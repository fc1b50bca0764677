// Where: cli/internal/lambdasvc/service.go
// What: Abstract function-service interface and remote state model.
// Why: Keep the reconciler independent of the AWS SDK surface.
package lambdasvc

import (
	"context"
	"time"

	"github.com/fnship/fnship/internal/artifact"
)

// Identity is the unique key of a remote function. It never changes once a
// deployment run has started.
type Identity struct {
	Name string
}

// FunctionState mirrors the lifecycle state of a remote function.
type FunctionState string

const (
	StatePending  FunctionState = "Pending"
	StateActive   FunctionState = "Active"
	StateInactive FunctionState = "Inactive"
	StateFailed   FunctionState = "Failed"
)

// UpdateStatus reports the outcome of the most recent update on the remote
// function.
type UpdateStatus string

const (
	UpdateInProgress UpdateStatus = "InProgress"
	UpdateSuccessful UpdateStatus = "Successful"
	UpdateFailed     UpdateStatus = "Failed"
)

// VPCConfig describes the network placement of a function.
type VPCConfig struct {
	SubnetIDs        []string `json:"subnetIds" yaml:"subnetIds"`
	SecurityGroupIDs []string `json:"securityGroupIds" yaml:"securityGroupIds"`
}

// FileSystemConfig mounts a shared file system into the function.
type FileSystemConfig struct {
	ARN            string `json:"arn" yaml:"arn"`
	LocalMountPath string `json:"localMountPath" yaml:"localMountPath"`
}

// ImageConfig overrides container-image entrypoint settings.
type ImageConfig struct {
	EntryPoint       []string `json:"entryPoint,omitempty" yaml:"entryPoint,omitempty"`
	Command          []string `json:"command,omitempty" yaml:"command,omitempty"`
	WorkingDirectory string   `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty"`
}

// LoggingConfig selects log format and destination group.
type LoggingConfig struct {
	LogFormat        string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	ApplicationLevel string `json:"applicationLogLevel,omitempty" yaml:"applicationLogLevel,omitempty"`
	SystemLevel      string `json:"systemLogLevel,omitempty" yaml:"systemLogLevel,omitempty"`
	LogGroup         string `json:"logGroup,omitempty" yaml:"logGroup,omitempty"`
}

// FunctionConfig is the canonical function configuration record. It doubles
// as the desired-state record and as a partial update payload: nil pointer
// and nil map fields mean "not specified", which a partial update must leave
// untouched on the remote side. An empty (non-nil) map clears all entries.
type FunctionConfig struct {
	Handler              *string
	Runtime              *string
	Role                 *string
	Description          *string
	MemorySize           *int32
	Timeout              *int32
	Architecture         *string
	Environment          map[string]string
	VPC                  *VPCConfig
	DeadLetterARN        *string
	KMSKeyARN            *string
	TracingMode          *string
	Layers               []string
	FileSystems          []FileSystemConfig
	ImageConfig          *ImageConfig
	EphemeralStorageMB   *int32
	SnapStart            *string
	Logging              *LoggingConfig
	CodeSigningConfigARN *string
	Tags                 map[string]string
}

// RemoteState is a point-in-time snapshot of the deployed function.
type RemoteState struct {
	Config           FunctionConfig
	CodeSHA256       string
	RevisionID       string
	ARN              string
	State            FunctionState
	LastUpdateStatus UpdateStatus
}

// Ready reports whether the function can safely accept a further mutation.
// A pending creation, an in-flight update, and a failed previous update all
// block mutations; a failed update gets the same settle-first handling as a
// fresh creation.
func (s *RemoteState) Ready() bool {
	if s == nil {
		return false
	}
	if s.State == StatePending {
		return false
	}
	return s.LastUpdateStatus != UpdateInProgress && s.LastUpdateStatus != UpdateFailed
}

// CreateOutput is the result of a successful function creation.
type CreateOutput struct {
	ARN        string
	RevisionID string
}

// UpdateOutput is the result of a successful code or configuration update.
type UpdateOutput struct {
	RevisionID string
	CodeSHA256 string
}

// PublishOutput is the result of publishing an immutable version.
type PublishOutput struct {
	Version    string
	VersionARN string
}

// Service is the remote function-execution service the deployer reconciles
// against. GetFunction returns ErrFunctionNotFound for a missing function;
// that outcome drives the create branch and is not a fault. Mutating calls
// accept an optional revision token and fail with a conflict fault when the
// remote revision has moved.
type Service interface {
	GetFunction(ctx context.Context, id Identity) (*RemoteState, error)
	CreateFunction(ctx context.Context, id Identity, cfg FunctionConfig, code artifact.CodeSource) (CreateOutput, error)
	UpdateFunctionCode(ctx context.Context, id Identity, code artifact.CodeSource, revisionID string) (UpdateOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, id Identity, patch FunctionConfig, revisionID string) (UpdateOutput, error)
	PublishVersion(ctx context.Context, id Identity) (PublishOutput, error)
	WaitReady(ctx context.Context, id Identity, maxWait time.Duration) error
}
