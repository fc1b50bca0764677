// Where: cli/internal/app/app.go
// What: CLI entrypoint logic.
// Why: Provide a testable command dispatcher.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/lambdasvc"
	"github.com/fnship/fnship/internal/version"
)

// ClientOptions selects the remote endpoints for one run.
type ClientOptions struct {
	Region   string
	Endpoint string
}

// ClientFactory builds the remote collaborators. The factory runs lazily
// so commands that never touch the network (version, parse errors) do not
// pay for client construction.
type ClientFactory interface {
	FunctionService(ctx context.Context, opts ClientOptions) (lambdasvc.Service, error)
	ObjectStore(ctx context.Context, opts ClientOptions) (artifact.ObjectStore, error)
}

// Prompter asks for confirmation before mutating deployments.
type Prompter interface {
	Confirm(title string) (bool, error)
}

// Dependencies holds all injected dependencies required for CLI command
// execution, enabling fakes in tests.
type Dependencies struct {
	Out      io.Writer
	Clients  ClientFactory
	Prompter Prompter
	Now      func() time.Time
}

// CLI defines the command-line interface structure parsed by Kong.
type CLI struct {
	Region   string `help:"AWS region" env:"AWS_REGION"`
	Endpoint string `help:"Override the service endpoint (local stacks)"`

	Deploy  DeployCmd  `cmd:"" help:"Reconcile a function against its desired state"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type VersionCmd struct{}

// DeployCmd carries the declarative configuration surface for one run.
// JSON-valued flags are parsed and validated before they reach the
// desired-state builder.
type DeployCmd struct {
	Name     string `arg:"" help:"Function name"`
	Manifest string `short:"f" help:"Path to a deploy manifest (YAML)"`

	SourceDir string `short:"s" help:"Directory to package as the deployment archive"`

	Handler      string `help:"Function entrypoint"`
	Runtime      string `help:"Runtime identifier"`
	Role         string `help:"Execution role ARN (required on first deploy)"`
	Description  string `help:"Function description"`
	Memory       int32  `help:"Memory size in MB"`
	Timeout      int32  `help:"Timeout in seconds"`
	Architecture string `help:"Instruction set architecture (x86_64 or arm64)"`

	Env     string `name:"env" help:"Environment variables as a JSON object ('{}' clears all)"`
	EnvFile string `name:"env-file" help:"Dotenv file merged into the function environment"`
	Tags    string `help:"Tags as a JSON object ('{}' clears all)"`

	VPCConfig        string   `name:"vpc-config" help:"VPC settings as JSON"`
	DeadLetterARN    string   `name:"dead-letter-arn" help:"Dead-letter queue or topic ARN"`
	KMSKeyARN        string   `name:"kms-key-arn" help:"KMS key ARN for environment encryption"`
	TracingMode      string   `name:"tracing-mode" help:"Tracing mode (Active or PassThrough)"`
	Layers           []string `help:"Layer ARNs in order"`
	FileSystemConfig string   `name:"file-system-config" help:"File system mounts as a JSON array"`
	ImageConfig      string   `name:"image-config" help:"Container image overrides as JSON"`
	EphemeralStorage int32    `name:"ephemeral-storage" help:"Ephemeral storage in MB"`
	SnapStart        string   `name:"snap-start" help:"SnapStart setting (PublishedVersions or None)"`
	LoggingConfig    string   `name:"logging-config" help:"Logging settings as JSON"`
	CodeSigningARN   string   `name:"code-signing-config-arn" help:"Code-signing configuration ARN"`

	S3Bucket     string `name:"s3-bucket" help:"Upload the package to this bucket instead of inline delivery"`
	S3Key        string `name:"s3-key" help:"Object key (generated when omitted; with no source dir, references an existing object)"`
	CreateBucket bool   `name:"create-bucket" help:"Create the bucket when it does not exist"`

	Publish    *bool  `negatable:"" help:"Publish an immutable version after deploying (default true)"`
	DryRun     *bool  `name:"dry-run" negatable:"" help:"Plan and validate without mutating anything (default true)"`
	RevisionID string `name:"revision-id" help:"Expected remote revision (optimistic concurrency guard)"`
	Yes        bool   `short:"y" help:"Skip the confirmation prompt"`
}

// Run is the entry point for CLI command execution. Returns 0 on success
// (including no-op and dry-run outcomes), 1 on any fault.
func Run(args []string, deps Dependencies) int {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	cli := CLI{}
	parser, err := kong.New(&cli)
	if err != nil {
		return exitWithError(out, err)
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return exitWithError(out, err)
	}

	switch ctx.Command() {
	case "deploy <name>":
		return runDeploy(cli, deps, out)
	case "version":
		fmt.Fprintln(out, version.GetVersion())
		return 0
	default:
		fmt.Fprintln(out, "unknown command")
		return 1
	}
}

func exitWithError(out io.Writer, err error) int {
	fmt.Fprintln(out, err)
	return 1
}
