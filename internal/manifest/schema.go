// Where: cli/internal/manifest/schema.go
// What: JSON-schema validation of deploy manifests.
// Why: Reject malformed manifests with precise paths before deployment.
package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed manifest.schema.json
var manifestSchema []byte

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func validateManifest(content []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}

	jsonData, err := yaml.YAMLToJSON(content)
	if err != nil {
		return fmt.Errorf("convert yaml to json: %w", err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	if err := sch.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if ok := asValidationError(err, &validationErr); ok {
			return fmt.Errorf("schema validation: %s", flattenSchemaError(validationErr))
		}
		return err
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", strings.NewReader(string(manifestSchema))); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("manifest.schema.json")
	})
	return compiledSchema, schemaErr
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	if v, ok := err.(*jsonschema.ValidationError); ok {
		*target = v
		return true
	}
	return false
}

// flattenSchemaError collects the leaf causes so the operator sees every
// violation, not just the root "doesn't validate" line.
func flattenSchemaError(err *jsonschema.ValidationError) string {
	leaves := collectLeaves(err)
	if len(leaves) == 0 {
		return err.Message
	}
	parts := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		location := leaf.InstanceLocation
		if location == "" {
			location = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, leaf.Message))
	}
	return strings.Join(parts, "; ")
}

func collectLeaves(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, collectLeaves(cause)...)
	}
	return leaves
}
