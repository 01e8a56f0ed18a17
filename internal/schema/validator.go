package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed settings.schema.yaml
var settingsSchemaYAML []byte

const settingsSchemaURL = "https://pipecfg.sourceplane.dev/settings.schema.json"

// Validator handles JSON schema validation
type Validator struct {
	settingsSchema *jsonschema.Schema
	projectSchema  *jsonschema.Schema
}

// Violation is a single schema failure at a document location
type Violation struct {
	Location string `json:"location"` // JSON pointer into the document
	Message  string `json:"message"`
}

func (v Violation) String() string {
	loc := v.Location
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, v.Message)
}

// NewValidator compiles the embedded settings schema
func NewValidator() (*Validator, error) {
	schemas, err := compileSchema(settingsSchemaURL, settingsSchemaYAML, "", "#/$defs/project")
	if err != nil {
		return nil, fmt.Errorf("failed to load settings schema: %w", err)
	}
	return &Validator{settingsSchema: schemas[0], projectSchema: schemas[1]}, nil
}

// ValidateDocument validates a decoded settings document. Documents decoded
// from YAML are normalized through JSON first so numbers and maps match what
// the schema compiler expects.
func (v *Validator) ValidateDocument(data interface{}) error {
	if v.settingsSchema == nil {
		return fmt.Errorf("settings schema not loaded")
	}
	return validateNormalized(v.settingsSchema, data)
}

// ValidateProject validates a standalone project document, as pulled in by
// a project's include list
func (v *Validator) ValidateProject(data interface{}) error {
	if v.projectSchema == nil {
		return fmt.Errorf("project schema not loaded")
	}
	return validateNormalized(v.projectSchema, data)
}

func validateNormalized(schema *jsonschema.Schema, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	return schema.Validate(doc)
}

// Violations flattens a validation error into its leaf failures, sorted by
// location. Errors that did not come from the schema yield nil.
func Violations(err error) []Violation {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}

	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Location: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Document returns the settings schema as indented JSON
func Document() ([]byte, error) {
	jsonData, err := yamlToJSON(settingsSchemaYAML)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, jsonData, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format schema: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// compileSchema compiles a schema written in YAML or JSON, once per fragment
func compileSchema(url string, data []byte, fragments ...string) ([]*jsonschema.Schema, error) {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(jsonData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schemas := make([]*jsonschema.Schema, 0, len(fragments))
	for _, fragment := range fragments {
		schema, err := compiler.Compile(url + fragment)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", url+fragment, err)
		}
		schemas = append(schemas, schema)
	}

	return schemas, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonData, nil
}
