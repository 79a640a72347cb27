// Package condition implements the sandboxed expression engine that gates
// conditional tuples. Expressions are written in CEL
// (github.com/google/cel-go), restricted to the subset of operators and
// types the design calls for: literal/identifier/comparison/logical
// expressions over bool, int, double, string, list, map, timestamp and
// duration values, with list-membership ("x in xs") and timestamp+duration
// arithmetic. CEL's own sandboxing (no loops, no user-defined functions, no
// mutation) already matches the no-loops/no-mutation/no-user-defined-
// functions surface a condition expression is required to stay within.
package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/relauth/relauth/pkg/schema"
)

// Evaluator compiles and evaluates ConditionDefinitions. A zero-value
// Evaluator is ready to use; pass a Cache via WithCache to avoid
// recompiling the same condition's CEL program on every call.
type Evaluator struct {
	cache *Cache
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCache attaches a compiled-program cache. Without one, every Evaluate
// call recompiles the expression --
// correct, but wasteful for a condition checked repeatedly across many
// tuples within one list_objects call.
func WithCache(c *Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// NewEvaluator returns a ready-to-use Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate evaluates def.Expression against the merged context, coercing
// values to the parameter's declared type. It returns an error for any of
// the error kinds: undefined identifier, type mismatch, unsupported
// operator, or a left-operand to "in" that isn't comparable to the list's
// element type. Callers in the check evaluator treat any error the same
// way: the tuple does not grant -- Evaluate itself never
// "fails closed" on the caller's behalf, it just reports the truth.
func (e *Evaluator) Evaluate(def schema.ConditionDefinition, mergedContext map[string]any) (bool, error) {
	program, err := e.compile(def)
	if err != nil {
		return false, err
	}

	vars := make(map[string]any, len(def.Parameters))
	for name, paramType := range def.Parameters {
		raw, ok := mergedContext[name]
		if !ok {
			// Parameters absent from the context are left unbound; CEL
			// raises "no such attribute" if the expression actually
			// references them, which we surface as an evaluation error.
			continue
		}
		coerced, err := coerce(raw, paramType)
		if err != nil {
			return false, fmt.Errorf("condition %q: parameter %q: %w", def.Name, name, err)
		}
		vars[name] = coerced
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("condition %q: evaluation error: %w", def.Name, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q: expression did not evaluate to a bool (got %T)", def.Name, out.Value())
	}
	return result, nil
}

func (e *Evaluator) compile(def schema.ConditionDefinition) (cel.Program, error) {
	if e.cache != nil {
		if program, ok := e.cache.Get(def.Name); ok {
			return program, nil
		}
	}

	opts := make([]cel.EnvOption, 0, len(def.Parameters))
	for name, paramType := range def.Parameters {
		opts = append(opts, cel.Variable(name, celType(paramType)))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("condition %q: building CEL environment: %w", def.Name, err)
	}

	ast, issues := env.Compile(def.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition %q: %w", def.Name, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("condition %q: building CEL program: %w", def.Name, err)
	}

	if e.cache != nil {
		e.cache.Set(def.Name, program)
	}
	return program, nil
}

func celType(p schema.ParamType) *cel.Type {
	switch p {
	case schema.ParamBool:
		return cel.BoolType
	case schema.ParamString:
		return cel.StringType
	case schema.ParamInt:
		return cel.IntType
	case schema.ParamDouble:
		return cel.DoubleType
	case schema.ParamTimestamp:
		return cel.TimestampType
	case schema.ParamDuration:
		return cel.DurationType
	case schema.ParamList:
		return cel.ListType(cel.DynType)
	case schema.ParamMap:
		return cel.MapType(cel.StringType, cel.DynType)
	default:
		return cel.DynType
	}
}
