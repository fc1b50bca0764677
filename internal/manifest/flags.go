// Where: cli/internal/manifest/flags.go
// What: Parsers for JSON-string-encoded flag values and env files.
// Why: Flag input must be structured before it reaches the builder.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/fnship/fnship/internal/lambdasvc"
)

// ParseStringMap decodes a JSON object of string values, as passed to
// --env and --tags. An explicit "{}" yields an empty non-nil map, which
// downstream means "clear all entries"; an empty flag yields nil, meaning
// "leave the remote value untouched".
func ParseStringMap(flag, value string) (map[string]string, error) {
	if value == "" {
		return nil, nil
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, fmt.Errorf("parse --%s: %w", flag, err)
	}
	return out, nil
}

// ParseVPCConfig decodes the --vpc-config JSON object.
func ParseVPCConfig(value string) (*lambdasvc.VPCConfig, error) {
	if value == "" {
		return nil, nil
	}
	out := &lambdasvc.VPCConfig{}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return nil, fmt.Errorf("parse --vpc-config: %w", err)
	}
	return out, nil
}

// ParseImageConfig decodes the --image-config JSON object.
func ParseImageConfig(value string) (*lambdasvc.ImageConfig, error) {
	if value == "" {
		return nil, nil
	}
	out := &lambdasvc.ImageConfig{}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return nil, fmt.Errorf("parse --image-config: %w", err)
	}
	return out, nil
}

// ParseLoggingConfig decodes the --logging-config JSON object.
func ParseLoggingConfig(value string) (*lambdasvc.LoggingConfig, error) {
	if value == "" {
		return nil, nil
	}
	out := &lambdasvc.LoggingConfig{}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return nil, fmt.Errorf("parse --logging-config: %w", err)
	}
	return out, nil
}

// ParseFileSystemConfigs decodes the --file-system-config JSON array.
func ParseFileSystemConfigs(value string) ([]lambdasvc.FileSystemConfig, error) {
	if value == "" {
		return nil, nil
	}
	var out []lambdasvc.FileSystemConfig
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, fmt.Errorf("parse --file-system-config: %w", err)
	}
	return out, nil
}

// LoadEnvFile reads a dotenv file into the function environment. Values
// merge over base; the merged map is always non-nil once a file is named,
// since naming a file is an explicit request to manage the environment.
func LoadEnvFile(path string, base map[string]string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	merged := map[string]string{}
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range vars {
		merged[key] = value
	}
	return merged, nil
}
