package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// Selector scopes a run to the resources a CEL expression accepts, e.g.
//
//	kind == 'ec2:instance' && tags.env != 'prod'
//
// Variables: id, kind, name, region (strings) and tags (map of strings).
type Selector struct {
	expr string
	prg  cel.Program
}

// NewSelector compiles expr. An empty expression selects everything.
func NewSelector(expr string) (*Selector, error) {
	if expr == "" {
		return &Selector{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("tags", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter %q compilation error: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter %q program creation error: %w", expr, err)
	}
	return &Selector{expr: expr, prg: prg}, nil
}

// Expr returns the source expression.
func (s *Selector) Expr() string { return s.expr }

// Match evaluates the selector against r.
func (s *Selector) Match(r resource.Resource) (bool, error) {
	if s == nil || s.prg == nil {
		return true, nil
	}

	tags := r.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	out, _, err := s.prg.Eval(map[string]any{
		"id":     r.ID,
		"kind":   r.Type,
		"name":   r.Name,
		"region": r.Region,
		"tags":   tags,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating filter on %s: %w", r.ID, err)
	}
	match, ok := out.Value().(bool)
	return ok && match, nil
}
