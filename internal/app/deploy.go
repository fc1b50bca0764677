// Where: cli/internal/app/deploy.go
// What: Deploy command orchestration.
// Why: Wire locator, state read, builder, reconciler, and executor.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/sync/errgroup"

	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/deploy"
	"github.com/fnship/fnship/internal/lambdasvc"
	"github.com/fnship/fnship/internal/manifest"
	"github.com/fnship/fnship/internal/ui"
)

// runDeploy executes the 'deploy' command: resolve inputs, locate the
// artifact and read remote state in parallel, build the desired state,
// plan, confirm, execute, and report.
func runDeploy(cli CLI, deps Dependencies, out io.Writer) int {
	console := ui.New(out)
	ctx := context.Background()

	input, err := resolveDeployInput(cli)
	if err != nil {
		return exitWithError(out, err)
	}

	if deps.Clients == nil {
		fmt.Fprintln(out, "deploy: client factory not configured")
		return 1
	}
	opts := ClientOptions{Region: cli.Region, Endpoint: cli.Endpoint}
	service, err := deps.Clients.FunctionService(ctx, opts)
	if err != nil {
		return exitWithError(out, err)
	}

	id := lambdasvc.Identity{Name: input.Name}
	console.Header("🚀", "Deploying "+id.Name)

	// The artifact upload and the state read are independent; everything
	// after them is strictly sequential.
	var (
		code   artifact.CodeSource
		remote *lambdasvc.RemoteState
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		locator, locErr := buildLocator(groupCtx, deps, opts, input)
		if locErr != nil {
			return locErr
		}
		code, locErr = locator.Locate(groupCtx, input.Artifact)
		return locErr
	})
	group.Go(func() error {
		state, readErr := service.GetFunction(groupCtx, id)
		if readErr != nil {
			if lambdasvc.IsNotFound(readErr) {
				return nil
			}
			return readErr
		}
		remote = state
		return nil
	})
	if err := group.Wait(); err != nil {
		return exitWithError(out, err)
	}

	desired, err := deploy.BuildDesired(input.Config, remote != nil)
	if err != nil {
		return exitWithError(out, err)
	}

	if remote != nil {
		for _, conflict := range deploy.CreateOnlyConflicts(desired, remote.Config) {
			console.Warn(conflict)
		}
	}

	plan, err := deploy.BuildPlan(remote, desired, code, input.Plan)
	if err != nil {
		var conflict *deploy.ConcurrencyConflictError
		if errors.As(err, &conflict) {
			conflict.Function = id.Name
			console.Error(conflict.Error())
			return 1
		}
		return exitWithError(out, err)
	}

	if remote == nil {
		console.Info("Function does not exist yet; it will be created")
	}

	if !input.Plan.DryRun && !plan.IsNoOp() && !cli.Deploy.Yes {
		confirmed, promptErr := confirm(deps.Prompter, fmt.Sprintf("Apply %d operation(s) to %s?", plan.Len(), id.Name))
		if promptErr != nil {
			return exitWithError(out, promptErr)
		}
		if !confirmed {
			console.Info("Aborted")
			return 1
		}
	}

	executor := deploy.NewExecutor(service).WithInitialState(remote)
	result, err := executor.Execute(ctx, id, plan)
	if err != nil {
		var partial *deploy.PartialSuccessError
		if errors.As(err, &partial) {
			console.Error(partial.Error())
			console.Warn("Remote state was partially updated; re-run to reconcile the remainder")
			return 1
		}
		return exitWithError(out, err)
	}

	deploy.Report(console, id.Name, result)
	return 0
}

// deployInput is the fully resolved input for one run.
type deployInput struct {
	Name     string
	Config   lambdasvc.FunctionConfig
	Artifact artifact.Request
	Plan     deploy.PlanOptions
}

// resolveDeployInput layers flags over the optional manifest file. A flag
// explicitly set on the command line wins over the manifest value.
func resolveDeployInput(cli CLI) (deployInput, error) {
	cmd := cli.Deploy

	base := manifest.Manifest{}
	if cmd.Manifest != "" {
		loaded, err := manifest.Load(cmd.Manifest)
		if err != nil {
			return deployInput{}, err
		}
		base = loaded
	}
	if base.FunctionName != "" && base.FunctionName != cmd.Name {
		return deployInput{}, fmt.Errorf("manifest is for function %q, not %q", base.FunctionName, cmd.Name)
	}

	cfg := base.Config()
	overlayScalars(&cfg, cmd)
	if err := overlayStructured(&cfg, cmd); err != nil {
		return deployInput{}, err
	}

	planOpts := deploy.PlanOptions{
		Publish:    base.PublishOrDefault(),
		DryRun:     base.DryRunOrDefault(),
		RevisionID: base.RevisionID,
	}
	// A nil flag means the operator did not pass it; an explicit
	// --publish/--no-publish or --dry-run/--no-dry-run always wins over
	// the manifest value.
	if cmd.Publish != nil {
		planOpts.Publish = *cmd.Publish
	}
	if cmd.DryRun != nil {
		planOpts.DryRun = *cmd.DryRun
	}
	if cmd.RevisionID != "" {
		planOpts.RevisionID = cmd.RevisionID
	}

	artifactReq, err := resolveArtifactRequest(cmd, base)
	if err != nil {
		return deployInput{}, err
	}
	// A dry run computes the package digest locally and never writes to
	// the object store.
	artifactReq.DryRun = planOpts.DryRun

	return deployInput{
		Name:     cmd.Name,
		Config:   cfg,
		Artifact: artifactReq,
		Plan:     planOpts,
	}, nil
}

func overlayScalars(cfg *lambdasvc.FunctionConfig, cmd DeployCmd) {
	if cmd.Handler != "" {
		cfg.Handler = aws.String(cmd.Handler)
	}
	if cmd.Runtime != "" {
		cfg.Runtime = aws.String(cmd.Runtime)
	}
	if cmd.Role != "" {
		cfg.Role = aws.String(cmd.Role)
	}
	if cmd.Description != "" {
		cfg.Description = aws.String(cmd.Description)
	}
	if cmd.Memory != 0 {
		cfg.MemorySize = aws.Int32(cmd.Memory)
	}
	if cmd.Timeout != 0 {
		cfg.Timeout = aws.Int32(cmd.Timeout)
	}
	if cmd.Architecture != "" {
		cfg.Architecture = aws.String(cmd.Architecture)
	}
	if cmd.DeadLetterARN != "" {
		cfg.DeadLetterARN = aws.String(cmd.DeadLetterARN)
	}
	if cmd.KMSKeyARN != "" {
		cfg.KMSKeyARN = aws.String(cmd.KMSKeyARN)
	}
	if cmd.TracingMode != "" {
		cfg.TracingMode = aws.String(cmd.TracingMode)
	}
	if cmd.Layers != nil {
		cfg.Layers = cmd.Layers
	}
	if cmd.EphemeralStorage != 0 {
		cfg.EphemeralStorageMB = aws.Int32(cmd.EphemeralStorage)
	}
	if cmd.SnapStart != "" {
		cfg.SnapStart = aws.String(cmd.SnapStart)
	}
	if cmd.CodeSigningARN != "" {
		cfg.CodeSigningConfigARN = aws.String(cmd.CodeSigningARN)
	}
}

func overlayStructured(cfg *lambdasvc.FunctionConfig, cmd DeployCmd) error {
	env, err := manifest.ParseStringMap("env", cmd.Env)
	if err != nil {
		return err
	}
	if env != nil {
		cfg.Environment = env
	}
	if cmd.EnvFile != "" {
		merged, err := manifest.LoadEnvFile(cmd.EnvFile, cfg.Environment)
		if err != nil {
			return err
		}
		cfg.Environment = merged
	}

	tags, err := manifest.ParseStringMap("tags", cmd.Tags)
	if err != nil {
		return err
	}
	if tags != nil {
		cfg.Tags = tags
	}

	vpc, err := manifest.ParseVPCConfig(cmd.VPCConfig)
	if err != nil {
		return err
	}
	if vpc != nil {
		cfg.VPC = vpc
	}

	image, err := manifest.ParseImageConfig(cmd.ImageConfig)
	if err != nil {
		return err
	}
	if image != nil {
		cfg.ImageConfig = image
	}

	logging, err := manifest.ParseLoggingConfig(cmd.LoggingConfig)
	if err != nil {
		return err
	}
	if logging != nil {
		cfg.Logging = logging
	}

	fileSystems, err := manifest.ParseFileSystemConfigs(cmd.FileSystemConfig)
	if err != nil {
		return err
	}
	if fileSystems != nil {
		cfg.FileSystems = fileSystems
	}

	return nil
}

// resolveArtifactRequest picks the delivery mechanism. A bucket selects the
// object-store path; an explicit key combined with a source directory is
// ambiguous (which code would win?) and is rejected outright.
func resolveArtifactRequest(cmd DeployCmd, base manifest.Manifest) (artifact.Request, error) {
	sourceDir := cmd.SourceDir
	if sourceDir == "" {
		sourceDir = base.SourceDir
	}
	bucket := cmd.S3Bucket
	if bucket == "" {
		bucket = base.S3Bucket
	}
	key := cmd.S3Key
	if key == "" {
		key = base.S3Key
	}

	if key != "" && sourceDir != "" {
		return artifact.Request{}, fmt.Errorf(
			"--s3-key references an already uploaded package and cannot be combined with --source-dir")
	}
	if bucket == "" && sourceDir == "" {
		return artifact.Request{}, fmt.Errorf("nothing to deploy: supply --source-dir or --s3-bucket/--s3-key")
	}
	if key != "" && bucket == "" {
		return artifact.Request{}, fmt.Errorf("--s3-key requires --s3-bucket")
	}

	mode := artifact.ModeDirect
	if bucket != "" {
		mode = artifact.ModeObjectStore
	}
	return artifact.Request{
		Function:     cmd.Name,
		SourceDir:    sourceDir,
		Mode:         mode,
		Bucket:       bucket,
		Key:          key,
		CreateBucket: cmd.CreateBucket,
	}, nil
}

// buildLocator wires the locator, creating the object-store client only on
// the object-store path.
func buildLocator(ctx context.Context, deps Dependencies, opts ClientOptions, input deployInput) (*artifact.Locator, error) {
	if input.Artifact.Mode != artifact.ModeObjectStore {
		return artifact.NewLocator(nil), nil
	}
	store, err := deps.Clients.ObjectStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	locator := artifact.NewLocator(store)
	if deps.Now != nil {
		locator.Now = deps.Now
	}
	return locator, nil
}

func confirm(prompter Prompter, title string) (bool, error) {
	if prompter == nil {
		// No prompter wired means non-interactive use; refuse rather than
		// mutate without consent.
		return false, fmt.Errorf("confirmation required: re-run with --yes or attach a terminal")
	}
	return prompter.Confirm(title)
}
