// Where: cli/internal/manifest/manifest.go
// What: Deploy manifest model and loader.
// Why: One validated input record feeds the desired-state builder.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fnship/fnship/internal/lambdasvc"
)

// Manifest is the declarative deployment input. Pointer and map fields
// distinguish "unset" from an explicit zero value: an omitted field leaves
// the remote value untouched, while an explicit empty map clears entries.
type Manifest struct {
	FunctionName string `json:"functionName" yaml:"functionName"`
	SourceDir    string `json:"sourceDir,omitempty" yaml:"sourceDir,omitempty"`

	Handler      *string `json:"handler,omitempty" yaml:"handler,omitempty"`
	Runtime      *string `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Role         *string `json:"role,omitempty" yaml:"role,omitempty"`
	Description  *string `json:"description,omitempty" yaml:"description,omitempty"`
	MemorySize   *int32  `json:"memorySize,omitempty" yaml:"memorySize,omitempty"`
	Timeout      *int32  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Architecture *string `json:"architecture,omitempty" yaml:"architecture,omitempty"`

	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	VPC              *lambdasvc.VPCConfig          `json:"vpcConfig,omitempty" yaml:"vpcConfig,omitempty"`
	DeadLetterARN    *string                       `json:"deadLetterArn,omitempty" yaml:"deadLetterArn,omitempty"`
	KMSKeyARN        *string                       `json:"kmsKeyArn,omitempty" yaml:"kmsKeyArn,omitempty"`
	TracingMode      *string                       `json:"tracingMode,omitempty" yaml:"tracingMode,omitempty"`
	Layers           []string                      `json:"layers,omitempty" yaml:"layers,omitempty"`
	FileSystems      []lambdasvc.FileSystemConfig  `json:"fileSystemConfigs,omitempty" yaml:"fileSystemConfigs,omitempty"`
	ImageConfig      *lambdasvc.ImageConfig        `json:"imageConfig,omitempty" yaml:"imageConfig,omitempty"`
	EphemeralStorage *int32                        `json:"ephemeralStorage,omitempty" yaml:"ephemeralStorage,omitempty"`
	SnapStart        *string                       `json:"snapStart,omitempty" yaml:"snapStart,omitempty"`
	Logging          *lambdasvc.LoggingConfig      `json:"loggingConfig,omitempty" yaml:"loggingConfig,omitempty"`
	CodeSigning      *string                       `json:"codeSigningConfigArn,omitempty" yaml:"codeSigningConfigArn,omitempty"`

	S3Bucket string `json:"s3Bucket,omitempty" yaml:"s3Bucket,omitempty"`
	S3Key    string `json:"s3Key,omitempty" yaml:"s3Key,omitempty"`

	Publish    *bool  `json:"publish,omitempty" yaml:"publish,omitempty"`
	DryRun     *bool  `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	RevisionID string `json:"revisionId,omitempty" yaml:"revisionId,omitempty"`
}

// Load reads a manifest file, validates it against the embedded schema,
// and decodes it.
func Load(path string) (Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	if err := validateManifest(content); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

// Config projects the manifest onto the canonical configuration record.
func (m Manifest) Config() lambdasvc.FunctionConfig {
	return lambdasvc.FunctionConfig{
		Handler:              m.Handler,
		Runtime:              m.Runtime,
		Role:                 m.Role,
		Description:          m.Description,
		MemorySize:           m.MemorySize,
		Timeout:              m.Timeout,
		Architecture:         m.Architecture,
		Environment:          m.Environment,
		VPC:                  m.VPC,
		DeadLetterARN:        m.DeadLetterARN,
		KMSKeyARN:            m.KMSKeyARN,
		TracingMode:          m.TracingMode,
		Layers:               m.Layers,
		FileSystems:          m.FileSystems,
		ImageConfig:          m.ImageConfig,
		EphemeralStorageMB:   m.EphemeralStorage,
		SnapStart:            m.SnapStart,
		Logging:              m.Logging,
		CodeSigningConfigARN: m.CodeSigning,
		Tags:                 m.Tags,
	}
}

// PublishOrDefault resolves the publish flag; publishing is the default.
func (m Manifest) PublishOrDefault() bool {
	if m.Publish == nil {
		return true
	}
	return *m.Publish
}

// DryRunOrDefault resolves the dry-run flag; dry-run is the default so a
// bare invocation never mutates anything.
func (m Manifest) DryRunOrDefault() bool {
	if m.DryRun == nil {
		return true
	}
	return *m.DryRun
}
