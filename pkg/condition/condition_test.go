package condition_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relauth/relauth/pkg/condition"
	"github.com/relauth/relauth/pkg/schema"
)

func TestEvaluate_ListMembership(t *testing.T) {
	def := schema.ConditionDefinition{
		Name: "subresource_filter",
		Parameters: map[string]schema.ParamType{
			"subresource":  schema.ParamString,
			"subresources": schema.ParamList,
		},
		Expression: `subresource in subresources`,
	}

	eval := condition.NewEvaluator()

	ok, err := eval.Evaluate(def, map[string]any{
		"subresource":  "dashboard",
		"subresources": []any{"dashboard", "library-panel"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval.Evaluate(def, map[string]any{
		"subresource":  "alert-rule",
		"subresources": []any{"dashboard", "library-panel"},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_ComparisonAndLogical(t *testing.T) {
	def := schema.ConditionDefinition{
		Name: "in_business_hours",
		Parameters: map[string]schema.ParamType{
			"hour": schema.ParamInt,
		},
		Expression: `hour >= 9 && hour <= 17`,
	}
	eval := condition.NewEvaluator()

	ok, err := eval.Evaluate(def, map[string]any{"hour": 10})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval.Evaluate(def, map[string]any{"hour": 20})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_TypeMismatchIsError(t *testing.T) {
	def := schema.ConditionDefinition{
		Name:       "needs_int",
		Parameters: map[string]schema.ParamType{"n": schema.ParamInt},
		Expression: `n > 0`,
	}
	eval := condition.NewEvaluator()

	_, err := eval.Evaluate(def, map[string]any{"n": "not-a-number"})
	assert.Error(t, err)
}

func TestEvaluate_UndefinedIdentifierIsError(t *testing.T) {
	def := schema.ConditionDefinition{
		Name:       "broken",
		Parameters: map[string]schema.ParamType{"a": schema.ParamBool},
		Expression: `a && b`, // b is not a declared parameter
	}
	eval := condition.NewEvaluator()

	_, err := eval.Evaluate(def, map[string]any{"a": true})
	assert.Error(t, err)
}

func TestEvaluate_Idempotent(t *testing.T) {
	def := schema.ConditionDefinition{
		Name:       "is_owner",
		Parameters: map[string]schema.ParamType{"role": schema.ParamString},
		Expression: `role == "owner"`,
	}
	eval := condition.NewEvaluator()
	ctx := map[string]any{"role": "owner"}

	first, err := eval.Evaluate(def, ctx)
	require.NoError(t, err)
	second, err := eval.Evaluate(def, ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluator_UsesCache(t *testing.T) {
	cache := condition.NewCache(condition.WithTTL(time.Minute))
	eval := condition.NewEvaluator(condition.WithCache(cache))

	def := schema.ConditionDefinition{
		Name:       "always_true",
		Parameters: map[string]schema.ParamType{},
		Expression: `true`,
	}

	_, err := eval.Evaluate(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())

	_, err = eval.Evaluate(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size(), "second call should reuse the cached program")
}
