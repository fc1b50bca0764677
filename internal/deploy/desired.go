// Where: cli/internal/deploy/desired.go
// What: Desired-state normalization and validation.
// Why: Defaulting depends on whether the function already exists.
package deploy

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fnship/fnship/internal/lambdasvc"
)

// Fallbacks applied on the create branch only. An existing function keeps
// its remote values for anything the caller left unset.
const (
	DefaultHandler            = "index.handler"
	DefaultRuntime            = "nodejs20.x"
	DefaultTimeoutSeconds     = int32(3)
	DefaultMemoryMB           = int32(128)
	DefaultEphemeralStorageMB = int32(512)
	DefaultArchitecture       = "x86_64"
)

const (
	minTimeoutSeconds     = 1
	maxTimeoutSeconds     = 900
	minMemoryMB           = 128
	maxMemoryMB           = 10240
	minEphemeralStorageMB = 512
	maxEphemeralStorageMB = 10240
)

// ValidationError aggregates every violated constraint so a caller sees the
// full list in one pass instead of fixing violations one at a time.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Violations, "\n  - "))
}

// BuildDesired normalizes the caller-supplied configuration into the
// canonical desired state. exists selects the branch: creation requires a
// role and fills in defaults, while an update leaves unset fields alone so
// the remote values survive.
func BuildDesired(input lambdasvc.FunctionConfig, exists bool) (lambdasvc.FunctionConfig, error) {
	var violations []string

	imageDeploy := input.ImageConfig != nil
	if imageDeploy {
		if input.Handler != nil {
			violations = append(violations, "image-config and handler are mutually exclusive")
		}
		if input.Runtime != nil {
			violations = append(violations, "image-config and runtime are mutually exclusive")
		}
		if input.Layers != nil {
			violations = append(violations, "image-config and layers are mutually exclusive")
		}
	}

	if !exists {
		if input.Role == nil || strings.TrimSpace(*input.Role) == "" {
			violations = append(violations, "role is required when creating a function")
		}
		if !imageDeploy {
			if input.Handler == nil {
				input.Handler = aws.String(DefaultHandler)
			}
			if input.Runtime == nil {
				input.Runtime = aws.String(DefaultRuntime)
			}
		}
		if input.Timeout == nil {
			input.Timeout = aws.Int32(DefaultTimeoutSeconds)
		}
		if input.MemorySize == nil {
			input.MemorySize = aws.Int32(DefaultMemoryMB)
		}
		if input.EphemeralStorageMB == nil {
			input.EphemeralStorageMB = aws.Int32(DefaultEphemeralStorageMB)
		}
		if input.Architecture == nil {
			input.Architecture = aws.String(DefaultArchitecture)
		}
	}

	violations = append(violations, validateBounds(input)...)
	violations = append(violations, validateEnums(input)...)

	if len(violations) > 0 {
		return lambdasvc.FunctionConfig{}, &ValidationError{Violations: violations}
	}
	return input, nil
}

func validateBounds(cfg lambdasvc.FunctionConfig) []string {
	var violations []string
	if cfg.Timeout != nil && (*cfg.Timeout < minTimeoutSeconds || *cfg.Timeout > maxTimeoutSeconds) {
		violations = append(violations,
			fmt.Sprintf("timeout must be between %d and %d seconds, got %d", minTimeoutSeconds, maxTimeoutSeconds, *cfg.Timeout))
	}
	if cfg.MemorySize != nil && (*cfg.MemorySize < minMemoryMB || *cfg.MemorySize > maxMemoryMB) {
		violations = append(violations,
			fmt.Sprintf("memory must be between %d and %d MB, got %d", minMemoryMB, maxMemoryMB, *cfg.MemorySize))
	}
	if cfg.EphemeralStorageMB != nil && (*cfg.EphemeralStorageMB < minEphemeralStorageMB || *cfg.EphemeralStorageMB > maxEphemeralStorageMB) {
		violations = append(violations,
			fmt.Sprintf("ephemeral storage must be between %d and %d MB, got %d", minEphemeralStorageMB, maxEphemeralStorageMB, *cfg.EphemeralStorageMB))
	}
	return violations
}

func validateEnums(cfg lambdasvc.FunctionConfig) []string {
	var violations []string
	if cfg.Architecture != nil {
		switch *cfg.Architecture {
		case "x86_64", "arm64":
		default:
			violations = append(violations, fmt.Sprintf("unsupported architecture %q (want x86_64 or arm64)", *cfg.Architecture))
		}
	}
	if cfg.TracingMode != nil {
		switch *cfg.TracingMode {
		case "Active", "PassThrough":
		default:
			violations = append(violations, fmt.Sprintf("unsupported tracing mode %q (want Active or PassThrough)", *cfg.TracingMode))
		}
	}
	if cfg.SnapStart != nil {
		switch *cfg.SnapStart {
		case "PublishedVersions", "None":
		default:
			violations = append(violations, fmt.Sprintf("unsupported snap-start setting %q (want PublishedVersions or None)", *cfg.SnapStart))
		}
	}
	if cfg.Logging != nil && cfg.Logging.LogFormat != "" {
		switch cfg.Logging.LogFormat {
		case "Text", "JSON":
		default:
			violations = append(violations, fmt.Sprintf("unsupported log format %q (want Text or JSON)", cfg.Logging.LogFormat))
		}
	}
	return violations
}
