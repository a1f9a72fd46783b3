package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowedit/pkg/schema"
)

const projectSchemaURL = "https://flowedit.dev/schemas/project.json"

// projectSchemaJSON describes a project snapshot as written by the json and
// yaml snapshot formats.
const projectSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowedit.dev/schemas/project.json",
  "type": "object",
  "required": ["processes"],
  "properties": {
    "xpdl_id": { "type": "string" },
    "name": { "type": "string" },
    "processes": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/process" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "process": {
      "type": "object",
      "required": ["id", "detail"],
      "properties": {
        "id": { "type": "integer", "minimum": 1 },
        "detail": { "$ref": "#/$defs/detail" },
        "actors": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/actor" }
        },
        "nodes": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/node" }
        },
        "edges": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/edge" }
        }
      },
      "additionalProperties": false
    },
    "detail": {
      "type": "object",
      "required": ["xpdl_id"],
      "properties": {
        "xpdl_id": { "type": "string", "minLength": 1 },
        "title": { "type": "string" },
        "applications": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["xpdl_id"],
            "properties": {
              "xpdl_id": { "type": "string", "minLength": 1 },
              "name": { "type": "string" },
              "description": { "type": "string" }
            },
            "additionalProperties": false
          }
        }
      },
      "additionalProperties": false
    },
    "actor": {
      "type": "object",
      "required": ["id", "xpdl_id"],
      "properties": {
        "id": { "type": "integer", "minimum": 1 },
        "xpdl_id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "required": ["id", "kind", "x", "y", "width", "height"],
      "properties": {
        "id": { "type": "integer", "minimum": 1 },
        "kind": { "enum": ["start", "end", "activity", "comment"] },
        "x": { "type": "number" },
        "y": { "type": "number" },
        "width": { "type": "number", "exclusiveMinimum": 0 },
        "height": { "type": "number", "exclusiveMinimum": 0 },
        "activity": { "$ref": "#/$defs/activity" },
        "comment": { "type": "string" }
      },
      "additionalProperties": false
    },
    "activity": {
      "type": "object",
      "required": ["xpdl_id", "type"],
      "properties": {
        "xpdl_id": { "type": "string", "minLength": 1 },
        "type": { "enum": ["manual", "auto", "manualTimer", "autoTimer", "user"] },
        "actor_id": { "type": "integer", "minimum": 0 },
        "title": { "type": "string" },
        "applications": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["application_id", "expression"],
            "properties": {
              "application_id": { "type": "string", "minLength": 1 },
              "expression": { "type": "string" }
            },
            "additionalProperties": false
          }
        },
        "expression": { "type": "string" },
        "join": { "$ref": "#/$defs/multiplicity" },
        "split": { "$ref": "#/$defs/multiplicity" },
        "join_mode": { "$ref": "#/$defs/gate" },
        "split_mode": { "$ref": "#/$defs/gate" }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["id", "kind", "from", "to"],
      "properties": {
        "id": { "type": "integer", "minimum": 1 },
        "kind": { "enum": ["transition", "extend"] },
        "from": { "type": "integer", "minimum": 1 },
        "to": { "type": "integer", "minimum": 1 },
        "transition": {
          "type": "object",
          "properties": {
            "xpdl_id": { "type": "string" },
            "condition": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "multiplicity": { "enum": ["none", "one", "many"] },
    "gate": { "enum": ["xor", "and"] }
  }
}`

// SnapshotValidator checks generic project snapshots (decoded JSON or YAML)
// against the project JSON Schema, draft 2020-12. It is safe for concurrent use.
type SnapshotValidator struct {
	projectSchema *jsonschema.Schema
}

// NewSnapshotValidator compiles the embedded project schema.
func NewSnapshotValidator() (*SnapshotValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(projectSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal project schema: %w", err)
	}
	if err := c.AddResource(projectSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add project schema resource: %w", err)
	}
	compiled, err := c.Compile(projectSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile project schema: %w", err)
	}
	return &SnapshotValidator{projectSchema: compiled}, nil
}

// Validate checks a snapshot value. Any JSON-marshalable value is accepted;
// it is normalized through JSON first so numbers reach the validator as
// json.Number.
func (v *SnapshotValidator) Validate(snapshot any) error {
	if snapshot == nil {
		return schema.NewError(schema.ErrCodeValidation, "snapshot is nil")
	}
	doc, err := toJSONValue(snapshot)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize snapshot").WithCause(err)
	}
	if err := v.projectSchema.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toFlowError flattens a jsonschema.ValidationError into a FlowError whose
// details list every leaf violation with its instance location.
func toFlowError(err error) *schema.FlowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	case 1:
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "snapshot invalid with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
