// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the manifest schema, for use in script.yaml files.
const SchemaID = "https://stonehook.dev/schemas/script.schema.json"

var (
	schemaOnce  sync.Once
	schemaCache *jschema.Schema
	schemaErr   error
)

// GenerateSchema generates a JSON Schema from the Manifest struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Manifest{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "stonehook Script Manifest"
	schema.Description = "Schema for script.yaml manifest files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("script").Code(CodeSchemaGeneration).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates YAML data against the manifest JSON Schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.In("script").Code(CodeInvalidManifest).Errorf("manifest data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.In("script").Code(CodeInvalidManifest).Wrapf(err, "invalid YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.In("script").Code(CodeInvalidManifest).Wrapf(err, "schema validation failed")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			schemaErr = oops.In("script").Code(CodeSchemaGeneration).Wrapf(err, "parse schema JSON")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("script.schema.json", doc); err != nil {
			schemaErr = oops.In("script").Code(CodeSchemaGeneration).Wrapf(err, "add schema resource")
			return
		}
		schemaCache, schemaErr = c.Compile("script.schema.json")
		if schemaErr != nil {
			schemaErr = oops.In("script").Code(CodeSchemaGeneration).Wrapf(schemaErr, "compile schema")
		}
	})
	return schemaCache, schemaErr
}

// toJSONTypes converts YAML-decoded values into the types the validator
// understands.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = toJSONTypes(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = toJSONTypes(e)
		}
		return out
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError strips wrapping from a validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
