// Where: cli/cmd/fnship/cli.go
// What: CLI dependency wiring helpers.
// Why: Centralize construction for testability.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fnship/fnship/internal/app"
	"github.com/fnship/fnship/internal/artifact"
	"github.com/fnship/fnship/internal/lambdasvc"
)

// buildDependencies constructs the runtime dependencies for the CLI.
func buildDependencies() app.Dependencies {
	return app.Dependencies{
		Out:      os.Stdout,
		Clients:  awsClientFactory{},
		Prompter: app.HuhPrompter{},
		Now:      time.Now,
	}
}

// awsClientFactory builds SDK clients per run. A custom endpoint switches
// to static dummy credentials and path-style addressing so local stacks
// work without a real credential chain.
type awsClientFactory struct{}

func (awsClientFactory) FunctionService(ctx context.Context, opts app.ClientOptions) (lambdasvc.Service, error) {
	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	client := lambda.NewFromConfig(cfg, func(options *lambda.Options) {
		if opts.Endpoint != "" {
			options.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return lambdasvc.NewAWSService(client), nil
}

func (awsClientFactory) ObjectStore(ctx context.Context, opts app.ClientOptions) (artifact.ObjectStore, error) {
	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(options *s3.Options) {
		if opts.Endpoint != "" {
			options.BaseEndpoint = aws.String(opts.Endpoint)
			options.UsePathStyle = true
		}
	})
	return artifact.AWSObjectStore{Client: client}, nil
}

func loadAWSConfig(ctx context.Context, opts app.ClientOptions) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		creds := credentials.NewStaticCredentialsProvider("dummy", "dummy", "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}
	return awsconfig.LoadDefaultConfig(ctx, loadOpts...)
}
