// Package validation checks projects before they are loaded, saved or
// exported. Errors are structural and block the operation; warnings flag
// diagrams that load fine but are probably unfinished.
package validation

import (
	"fmt"

	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/pkg/schema"
)

// Validator checks whole projects and process-level edits.
type Validator interface {
	ValidateProject(p *schema.Project) *schema.ValidationResult
	ValidateProcessDetail(p *schema.Project, id int, detail schema.ProcessDetail) *schema.FlowError
}

// ProjectValidator runs the two-stage pipeline:
//  1. Structural (references, duplicates, edge kinds)
//  2. Quality (reachability, markers, actors, expressions)
type ProjectValidator struct {
	exprs *expressions.Set
}

// NewProjectValidator creates a ProjectValidator. exprs may be nil to skip
// expression linting.
func NewProjectValidator(exprs *expressions.Set) *ProjectValidator {
	return &ProjectValidator{exprs: exprs}
}

// ValidateProject returns every issue found. Structural errors short-circuit:
// quality checks assume a consistent graph.
func (v *ProjectValidator) ValidateProject(p *schema.Project) *schema.ValidationResult {
	result := CheckStructure(p)
	if !result.Valid() {
		return result
	}
	for i, proc := range p.Processes {
		path := fmt.Sprintf("processes[%d]", i)
		result.Merge(checkMarkers(proc, path))
		result.Merge(checkReachability(proc, path))
		result.Merge(checkActors(proc, path))
		if v.exprs != nil {
			result.Merge(lintExpressions(v.exprs, proc, path))
		}
	}
	return result
}

// ValidateProcessDetail checks an edit of process id's detail against the
// rest of the project. The returned error is ID_EXISTS for an external id
// another process already uses and DUPLICATE_APPLICATION_ID for repeated
// applications; the project itself is never modified.
func (v *ProjectValidator) ValidateProcessDetail(p *schema.Project, id int, detail schema.ProcessDetail) *schema.FlowError {
	return ValidateProcessDetail(p, id, detail)
}

// ValidateProcessDetail is the stateless form of ProjectValidator.ValidateProcessDetail.
func ValidateProcessDetail(p *schema.Project, id int, detail schema.ProcessDetail) *schema.FlowError {
	target := p.Process(id)
	if target == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "process %d not found", id)
	}
	if detail.XpdlID == "" {
		return schema.NewError(schema.ErrCodeValidation, "process id must not be empty").WithProcess(id)
	}
	for _, other := range p.Processes {
		if other.ID != id && other.Detail.XpdlID == detail.XpdlID {
			return schema.NewErrorf(schema.ErrCodeIDExists, "process id %q already exists", detail.XpdlID).
				WithProcess(id).
				WithDetails(map[string]any{"xpdl_id": detail.XpdlID, "conflicts_with": other.ID})
		}
	}

	seen := make(map[string]bool, len(detail.Applications))
	for _, app := range detail.Applications {
		if app.XpdlID == "" {
			return schema.NewError(schema.ErrCodeValidation, "application id must not be empty").WithProcess(id)
		}
		if seen[app.XpdlID] {
			return schema.NewErrorf(schema.ErrCodeDuplicateApplication, "application id %q already exists", app.XpdlID).
				WithProcess(id).
				WithDetails(map[string]any{"application_id": app.XpdlID})
		}
		seen[app.XpdlID] = true
	}

	for _, n := range target.Nodes {
		if n.Activity == nil {
			continue
		}
		for _, call := range n.Activity.Applications {
			if !seen[call.ApplicationID] {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"application %q is still used by activity %q", call.ApplicationID, n.Activity.XpdlID).
					WithProcess(id)
			}
		}
	}
	return nil
}

// checkActors warns about human-performed activities without an actor.
func checkActors(proc *schema.Process, path string) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for i, n := range proc.Nodes {
		if n.Kind != schema.NodeActivity || n.Activity.ActorID != 0 {
			continue
		}
		switch n.Activity.Type {
		case schema.ActivityAuto, schema.ActivityAutoTimer:
			continue
		}
		result.AddWarning(fmt.Sprintf("%s.nodes[%d].activity.actor_id", path, i), schema.ErrCodeValidation,
			fmt.Sprintf("%s activity %q has no actor", n.Activity.Type, n.Activity.XpdlID))
	}
	return result
}

// lintExpressions compiles every embedded expression and reports failures
// as warnings, since the editor stores expressions verbatim.
func lintExpressions(exprs *expressions.Set, proc *schema.Process, path string) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for i, n := range proc.Nodes {
		if n.Kind != schema.NodeActivity {
			continue
		}
		a := n.Activity
		p := fmt.Sprintf("%s.nodes[%d].activity", path, i)
		if a.Type == schema.ActivityAuto {
			for k, call := range a.Applications {
				if err := exprs.Expr.Check(call.Expression); err != nil {
					result.AddWarning(fmt.Sprintf("%s.applications[%d].expression", p, k),
						schema.ErrCodeExpression, err.Error())
				}
			}
		}
		if a.Type.IsTimer() {
			if _, err := expressions.ParseTimer(a.Expression); err != nil {
				result.AddWarning(p+".expression", schema.ErrCodeExpression, err.Error())
			}
		}
	}
	for i, e := range proc.Edges {
		if e.Transition == nil || e.Transition.Condition == "" {
			continue
		}
		if err := exprs.CEL.Check(e.Transition.Condition); err != nil {
			result.AddWarning(fmt.Sprintf("%s.edges[%d].transition.condition", path, i),
				schema.ErrCodeExpression, err.Error())
		}
	}
	return result
}

var _ Validator = (*ProjectValidator)(nil)
