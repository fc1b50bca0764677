// Where: cli/internal/lambdasvc/aws.go
// What: AWS Lambda adapter for the Service interface.
// Why: Map internal deployment types to SDK types and back.
package lambdasvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"

	"github.com/fnship/fnship/internal/artifact"
)

// AWSService implements Service against the Lambda control plane.
type AWSService struct {
	client *lambda.Client
	reads  readRetrier
}

// NewAWSService wraps a Lambda client. Reads retry on throttling with the
// stock bounds; mutations are never retried here.
func NewAWSService(client *lambda.Client) *AWSService {
	return &AWSService{client: client, reads: defaultReadRetrier()}
}

func (s *AWSService) GetFunction(ctx context.Context, id Identity) (*RemoteState, error) {
	if s.client == nil {
		return nil, fmt.Errorf("lambda client is nil")
	}
	var out *lambda.GetFunctionOutput
	err := s.reads.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = s.client.GetFunction(ctx, &lambda.GetFunctionInput{
			FunctionName: aws.String(id.Name),
		})
		return classify("GetFunction", id.Name, callErr)
	})
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, &Fault{Op: "GetFunction", Function: id.Name, Kind: KindNotFound, Err: ErrFunctionNotFound}
		}
		return nil, err
	}
	return fromGetFunction(out), nil
}

func (s *AWSService) CreateFunction(ctx context.Context, id Identity, cfg FunctionConfig, code artifact.CodeSource) (CreateOutput, error) {
	if s.client == nil {
		return CreateOutput{}, fmt.Errorf("lambda client is nil")
	}
	input := &lambda.CreateFunctionInput{
		FunctionName: aws.String(id.Name),
		Code:         toFunctionCode(code),
		Role:         cfg.Role,
		Handler:      cfg.Handler,
		Description:  cfg.Description,
		MemorySize:   cfg.MemorySize,
		Timeout:      cfg.Timeout,
		KMSKeyArn:    cfg.KMSKeyARN,
		Layers:       cfg.Layers,
		Tags:         cfg.Tags,
	}
	if cfg.Runtime != nil {
		input.Runtime = types.Runtime(*cfg.Runtime)
	}
	if cfg.Architecture != nil {
		input.Architectures = []types.Architecture{types.Architecture(*cfg.Architecture)}
	}
	if cfg.Environment != nil {
		input.Environment = &types.Environment{Variables: cfg.Environment}
	}
	if cfg.VPC != nil {
		input.VpcConfig = &types.VpcConfig{
			SubnetIds:        cfg.VPC.SubnetIDs,
			SecurityGroupIds: cfg.VPC.SecurityGroupIDs,
		}
	}
	if cfg.DeadLetterARN != nil {
		input.DeadLetterConfig = &types.DeadLetterConfig{TargetArn: cfg.DeadLetterARN}
	}
	if cfg.TracingMode != nil {
		input.TracingConfig = &types.TracingConfig{Mode: types.TracingMode(*cfg.TracingMode)}
	}
	if len(cfg.FileSystems) > 0 {
		input.FileSystemConfigs = toFileSystemConfigs(cfg.FileSystems)
	}
	if cfg.ImageConfig != nil {
		input.PackageType = types.PackageTypeImage
		input.ImageConfig = toImageConfig(cfg.ImageConfig)
	}
	if cfg.EphemeralStorageMB != nil {
		input.EphemeralStorage = &types.EphemeralStorage{Size: cfg.EphemeralStorageMB}
	}
	if cfg.SnapStart != nil {
		input.SnapStart = &types.SnapStart{ApplyOn: types.SnapStartApplyOn(*cfg.SnapStart)}
	}
	if cfg.Logging != nil {
		input.LoggingConfig = toLoggingConfig(cfg.Logging)
	}
	if cfg.CodeSigningConfigARN != nil {
		input.CodeSigningConfigArn = cfg.CodeSigningConfigARN
	}

	out, err := s.client.CreateFunction(ctx, input)
	if err != nil {
		return CreateOutput{}, classify("CreateFunction", id.Name, err)
	}
	return CreateOutput{
		ARN:        aws.ToString(out.FunctionArn),
		RevisionID: aws.ToString(out.RevisionId),
	}, nil
}

func (s *AWSService) UpdateFunctionCode(ctx context.Context, id Identity, code artifact.CodeSource, revisionID string) (UpdateOutput, error) {
	if s.client == nil {
		return UpdateOutput{}, fmt.Errorf("lambda client is nil")
	}
	input := &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(id.Name),
	}
	switch src := code.(type) {
	case artifact.Inline:
		input.ZipFile = src.Data
	case artifact.ObjectStoreRef:
		input.S3Bucket = aws.String(src.Bucket)
		input.S3Key = aws.String(src.Key)
	default:
		return UpdateOutput{}, fmt.Errorf("unknown code source %T", code)
	}
	if revisionID != "" {
		input.RevisionId = aws.String(revisionID)
	}

	out, err := s.client.UpdateFunctionCode(ctx, input)
	if err != nil {
		return UpdateOutput{}, classify("UpdateFunctionCode", id.Name, err)
	}
	return UpdateOutput{
		RevisionID: aws.ToString(out.RevisionId),
		CodeSHA256: aws.ToString(out.CodeSha256),
	}, nil
}

func (s *AWSService) UpdateFunctionConfiguration(ctx context.Context, id Identity, patch FunctionConfig, revisionID string) (UpdateOutput, error) {
	if s.client == nil {
		return UpdateOutput{}, fmt.Errorf("lambda client is nil")
	}

	input := &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(id.Name),
		Role:         patch.Role,
		Handler:      patch.Handler,
		Description:  patch.Description,
		MemorySize:   patch.MemorySize,
		Timeout:      patch.Timeout,
		KMSKeyArn:    patch.KMSKeyARN,
	}
	if patch.Runtime != nil {
		input.Runtime = types.Runtime(*patch.Runtime)
	}
	if patch.Environment != nil {
		input.Environment = &types.Environment{Variables: patch.Environment}
	}
	if patch.VPC != nil {
		input.VpcConfig = &types.VpcConfig{
			SubnetIds:        patch.VPC.SubnetIDs,
			SecurityGroupIds: patch.VPC.SecurityGroupIDs,
		}
	}
	if patch.DeadLetterARN != nil {
		input.DeadLetterConfig = &types.DeadLetterConfig{TargetArn: patch.DeadLetterARN}
	}
	if patch.TracingMode != nil {
		input.TracingConfig = &types.TracingConfig{Mode: types.TracingMode(*patch.TracingMode)}
	}
	if patch.Layers != nil {
		input.Layers = patch.Layers
	}
	if patch.FileSystems != nil {
		input.FileSystemConfigs = toFileSystemConfigs(patch.FileSystems)
	}
	if patch.ImageConfig != nil {
		input.ImageConfig = toImageConfig(patch.ImageConfig)
	}
	if patch.EphemeralStorageMB != nil {
		input.EphemeralStorage = &types.EphemeralStorage{Size: patch.EphemeralStorageMB}
	}
	if patch.SnapStart != nil {
		input.SnapStart = &types.SnapStart{ApplyOn: types.SnapStartApplyOn(*patch.SnapStart)}
	}
	if patch.Logging != nil {
		input.LoggingConfig = toLoggingConfig(patch.Logging)
	}
	if revisionID != "" {
		input.RevisionId = aws.String(revisionID)
	}

	out, err := s.client.UpdateFunctionConfiguration(ctx, input)
	if err != nil {
		return UpdateOutput{}, classify("UpdateFunctionConfiguration", id.Name, err)
	}

	// Tags live on a separate tagging API, not on the configuration call.
	if patch.Tags != nil {
		if err := s.syncTags(ctx, id, aws.ToString(out.FunctionArn), patch.Tags); err != nil {
			return UpdateOutput{}, err
		}
	}

	return UpdateOutput{RevisionID: aws.ToString(out.RevisionId)}, nil
}

func (s *AWSService) PublishVersion(ctx context.Context, id Identity) (PublishOutput, error) {
	if s.client == nil {
		return PublishOutput{}, fmt.Errorf("lambda client is nil")
	}
	out, err := s.client.PublishVersion(ctx, &lambda.PublishVersionInput{
		FunctionName: aws.String(id.Name),
	})
	if err != nil {
		return PublishOutput{}, classify("PublishVersion", id.Name, err)
	}
	return PublishOutput{
		Version:    aws.ToString(out.Version),
		VersionARN: aws.ToString(out.FunctionArn),
	}, nil
}

// WaitReady blocks until the function is active and no update is in flight,
// using the SDK waiters so readiness semantics track the service.
func (s *AWSService) WaitReady(ctx context.Context, id Identity, maxWait time.Duration) error {
	if s.client == nil {
		return fmt.Errorf("lambda client is nil")
	}
	input := &lambda.GetFunctionInput{FunctionName: aws.String(id.Name)}

	active := lambda.NewFunctionActiveV2Waiter(s.client)
	if err := active.Wait(ctx, input, maxWait); err != nil {
		return &Fault{Op: "WaitReady", Function: id.Name, Kind: KindTimeout, Err: err}
	}
	updated := lambda.NewFunctionUpdatedV2Waiter(s.client)
	if err := updated.Wait(ctx, input, maxWait); err != nil {
		return &Fault{Op: "WaitReady", Function: id.Name, Kind: KindTimeout, Err: err}
	}
	return nil
}

// syncTags reconciles the remote tag set to match the desired map, adding
// and removing through the tagging API.
func (s *AWSService) syncTags(ctx context.Context, id Identity, arn string, desired map[string]string) error {
	if arn == "" {
		return &Fault{Op: "TagResource", Function: id.Name, Kind: KindFault,
			Err: fmt.Errorf("function ARN unavailable for tagging")}
	}

	current, err := s.client.ListTags(ctx, &lambda.ListTagsInput{Resource: aws.String(arn)})
	if err != nil {
		return classify("ListTags", id.Name, err)
	}

	var removals []string
	for key := range current.Tags {
		if _, keep := desired[key]; !keep {
			removals = append(removals, key)
		}
	}
	if len(removals) > 0 {
		_, err = s.client.UntagResource(ctx, &lambda.UntagResourceInput{
			Resource: aws.String(arn),
			TagKeys:  removals,
		})
		if err != nil {
			return classify("UntagResource", id.Name, err)
		}
	}
	if len(desired) > 0 {
		_, err = s.client.TagResource(ctx, &lambda.TagResourceInput{
			Resource: aws.String(arn),
			Tags:     desired,
		})
		if err != nil {
			return classify("TagResource", id.Name, err)
		}
	}
	return nil
}

func toFunctionCode(code artifact.CodeSource) *types.FunctionCode {
	switch src := code.(type) {
	case artifact.Inline:
		return &types.FunctionCode{ZipFile: src.Data}
	case artifact.ObjectStoreRef:
		return &types.FunctionCode{
			S3Bucket: aws.String(src.Bucket),
			S3Key:    aws.String(src.Key),
		}
	default:
		return nil
	}
}

func toFileSystemConfigs(configs []FileSystemConfig) []types.FileSystemConfig {
	out := make([]types.FileSystemConfig, 0, len(configs))
	for _, fs := range configs {
		out = append(out, types.FileSystemConfig{
			Arn:            aws.String(fs.ARN),
			LocalMountPath: aws.String(fs.LocalMountPath),
		})
	}
	return out
}

func toImageConfig(cfg *ImageConfig) *types.ImageConfig {
	out := &types.ImageConfig{
		EntryPoint: cfg.EntryPoint,
		Command:    cfg.Command,
	}
	if cfg.WorkingDirectory != "" {
		out.WorkingDirectory = aws.String(cfg.WorkingDirectory)
	}
	return out
}

func toLoggingConfig(cfg *LoggingConfig) *types.LoggingConfig {
	out := &types.LoggingConfig{}
	if cfg.LogFormat != "" {
		out.LogFormat = types.LogFormat(cfg.LogFormat)
	}
	if cfg.ApplicationLevel != "" {
		out.ApplicationLogLevel = types.ApplicationLogLevel(cfg.ApplicationLevel)
	}
	if cfg.SystemLevel != "" {
		out.SystemLogLevel = types.SystemLogLevel(cfg.SystemLevel)
	}
	if cfg.LogGroup != "" {
		out.LogGroup = aws.String(cfg.LogGroup)
	}
	return out
}

func fromGetFunction(out *lambda.GetFunctionOutput) *RemoteState {
	state := &RemoteState{}
	if out.Tags != nil {
		state.Config.Tags = out.Tags
	}
	conf := out.Configuration
	if conf == nil {
		return state
	}

	state.ARN = aws.ToString(conf.FunctionArn)
	state.RevisionID = aws.ToString(conf.RevisionId)
	state.CodeSHA256 = aws.ToString(conf.CodeSha256)
	state.State = FunctionState(conf.State)
	state.LastUpdateStatus = UpdateStatus(conf.LastUpdateStatus)

	cfg := &state.Config
	cfg.Handler = conf.Handler
	cfg.Role = conf.Role
	cfg.Description = conf.Description
	cfg.MemorySize = conf.MemorySize
	cfg.Timeout = conf.Timeout
	cfg.KMSKeyARN = conf.KMSKeyArn
	if conf.Runtime != "" {
		cfg.Runtime = aws.String(string(conf.Runtime))
	}
	if len(conf.Architectures) > 0 {
		cfg.Architecture = aws.String(string(conf.Architectures[0]))
	}
	if conf.Environment != nil {
		cfg.Environment = conf.Environment.Variables
		if cfg.Environment == nil {
			cfg.Environment = map[string]string{}
		}
	}
	if conf.VpcConfig != nil && (len(conf.VpcConfig.SubnetIds) > 0 || len(conf.VpcConfig.SecurityGroupIds) > 0) {
		cfg.VPC = &VPCConfig{
			SubnetIDs:        conf.VpcConfig.SubnetIds,
			SecurityGroupIDs: conf.VpcConfig.SecurityGroupIds,
		}
	}
	if conf.DeadLetterConfig != nil {
		cfg.DeadLetterARN = conf.DeadLetterConfig.TargetArn
	}
	if conf.TracingConfig != nil {
		cfg.TracingMode = aws.String(string(conf.TracingConfig.Mode))
	}
	if len(conf.Layers) > 0 {
		layers := make([]string, 0, len(conf.Layers))
		for _, layer := range conf.Layers {
			layers = append(layers, aws.ToString(layer.Arn))
		}
		cfg.Layers = layers
	}
	if len(conf.FileSystemConfigs) > 0 {
		fss := make([]FileSystemConfig, 0, len(conf.FileSystemConfigs))
		for _, fs := range conf.FileSystemConfigs {
			fss = append(fss, FileSystemConfig{
				ARN:            aws.ToString(fs.Arn),
				LocalMountPath: aws.ToString(fs.LocalMountPath),
			})
		}
		cfg.FileSystems = fss
	}
	if conf.EphemeralStorage != nil {
		cfg.EphemeralStorageMB = conf.EphemeralStorage.Size
	}
	if conf.SnapStart != nil {
		cfg.SnapStart = aws.String(string(conf.SnapStart.ApplyOn))
	}
	if conf.LoggingConfig != nil {
		cfg.Logging = &LoggingConfig{
			LogFormat:        string(conf.LoggingConfig.LogFormat),
			ApplicationLevel: string(conf.LoggingConfig.ApplicationLogLevel),
			SystemLevel:      string(conf.LoggingConfig.SystemLogLevel),
			LogGroup:         aws.ToString(conf.LoggingConfig.LogGroup),
		}
	}
	return state
}

// classify maps an SDK error into the fault taxonomy. A nil error stays nil.
func classify(op, function string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindFault
	var notFound *types.ResourceNotFoundException
	var conflict *types.ResourceConflictException
	var stale *types.PreconditionFailedException
	var throttled *types.TooManyRequestsException
	var invalid *types.InvalidParameterValueException

	switch {
	case errors.As(err, &notFound):
		kind = KindNotFound
	case errors.As(err, &stale):
		kind = KindConflict
	case errors.As(err, &conflict):
		kind = KindConflict
	case errors.As(err, &throttled):
		kind = KindThrottled
	case errors.As(err, &invalid):
		kind = KindInvalidInput
	default:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ThrottlingException", "TooManyRequestsException":
				kind = KindThrottled
			case "ValidationException":
				kind = KindInvalidInput
			}
		}
	}

	return &Fault{Op: op, Function: function, Kind: kind, Err: err}
}
