// Package snapshot converts projects to and from their JSON and YAML
// snapshot forms and exposes them as generic maps for jq queries.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/internal/xpdl"
	"github.com/rendis/flowedit/pkg/schema"
)

// Format names a document encoding.
type Format string

const (
	FormatXPDL Format = "xpdl"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name as given on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "xpdl", "xml":
		return FormatXPDL, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", schema.NewErrorf(schema.ErrCodeValidation, "unknown format %q", name)
}

// FormatFromPath picks a format by file extension. Unknown extensions are
// treated as XPDL, the native document format.
func FormatFromPath(path string) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return FormatXPDL
}

var (
	validatorOnce sync.Once
	validator     *validation.SnapshotValidator
	validatorErr  error
)

func snapshotValidator() (*validation.SnapshotValidator, error) {
	validatorOnce.Do(func() {
		validator, validatorErr = validation.NewSnapshotValidator()
	})
	return validator, validatorErr
}

// Marshal encodes p in the given format.
func Marshal(p *schema.Project, format Format) ([]byte, error) {
	if p == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "project is nil")
	}
	switch format {
	case FormatXPDL:
		return xpdl.Encode(p)
	case FormatJSON:
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "failed to encode json snapshot").WithCause(err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "failed to encode yaml snapshot").WithCause(err)
		}
		if err := enc.Close(); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "failed to encode yaml snapshot").WithCause(err)
		}
		return buf.Bytes(), nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown format %q", format)
}

// Unmarshal decodes a document. JSON and YAML snapshots are checked against
// the project schema and the structural rules before use; all failures are
// IMPORT_ERROR and no project is returned. Derived join/split fields are
// recomputed.
func Unmarshal(data []byte, format Format) (*schema.Project, error) {
	if format == FormatXPDL {
		return xpdl.Decode(data)
	}

	var (
		doc any
		p   schema.Project
		err error
	)
	switch format {
	case FormatJSON:
		if err = json.Unmarshal(data, &doc); err == nil {
			err = json.Unmarshal(data, &p)
		}
	case FormatYAML:
		if err = yaml.Unmarshal(data, &doc); err == nil {
			err = yaml.Unmarshal(data, &p)
		}
	default:
		return nil, schema.NewErrorf(schema.ErrCodeImport, "unknown format %q", format)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeImport, "%s snapshot is not well-formed", format).WithCause(err)
	}

	v, err := snapshotValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(doc); err != nil {
		fe := schema.NewError(schema.ErrCodeImport, "snapshot does not match the project schema").WithCause(err)
		var inner *schema.FlowError
		if errors.As(err, &inner) {
			fe.Message = inner.Message
			fe.Details = inner.Details
		}
		return nil, fe
	}

	normalize(&p)
	if err := validation.CheckStructure(&p).ToErrorCode(schema.ErrCodeImport); err != nil {
		return nil, err
	}
	for _, proc := range p.Processes {
		graph.RecomputeAll(proc.Nodes, proc.Edges)
	}
	return &p, nil
}

// normalize drops empty collections so every decoder yields the same shape.
func normalize(p *schema.Project) {
	for _, proc := range p.Processes {
		if proc == nil {
			continue
		}
		if len(proc.Actors) == 0 {
			proc.Actors = nil
		}
		if len(proc.Nodes) == 0 {
			proc.Nodes = nil
		}
		if len(proc.Edges) == 0 {
			proc.Edges = nil
		}
		if len(proc.Detail.Applications) == 0 {
			proc.Detail.Applications = nil
		}
		for _, n := range proc.Nodes {
			if n == nil || n.Activity == nil {
				continue
			}
			if len(n.Activity.Applications) == 0 {
				n.Activity.Applications = nil
			}
			if n.Activity.JoinMode == "" {
				n.Activity.JoinMode = schema.GateXOR
			}
			if n.Activity.SplitMode == "" {
				n.Activity.SplitMode = schema.GateXOR
			}
		}
	}
}

// ToMap returns p as the generic value jq queries and the JSON Schema
// validator operate on.
func ToMap(p *schema.Project) (map[string]any, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return out, nil
}

// Query runs a jq expression over the snapshot of p and returns every output.
func Query(ctx context.Context, jq *expressions.GoJQEngine, p *schema.Project, expression string) ([]any, error) {
	doc, err := ToMap(p)
	if err != nil {
		return nil, err
	}
	return jq.EvaluateAll(ctx, expression, doc)
}
