package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relauth/relauth/pkg/schema"
)

func TestRegistry_UpsertAndFind(t *testing.T) {
	r := schema.NewRegistry()

	cfg := schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}
	r.UpsertRelationConfig(cfg)

	got, ok := r.FindRelationConfig("document", "owner")
	require.True(t, ok)
	assert.Equal(t, cfg, got)

	_, ok = r.FindRelationConfig("document", "viewer")
	assert.False(t, ok, "missing config should be reported absent, not fabricated")
}

func TestRegistry_DeleteReportsExistence(t *testing.T) {
	r := schema.NewRegistry()
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "owner"})

	assert.True(t, r.DeleteRelationConfig("document", "owner"))
	assert.False(t, r.DeleteRelationConfig("document", "owner"))
}

func TestRegistry_ConditionDefinitions(t *testing.T) {
	r := schema.NewRegistry()
	def := schema.ConditionDefinition{
		Name:       "subresource_filter",
		Parameters: map[string]schema.ParamType{"subresource": schema.ParamString, "subresources": schema.ParamList},
		Expression: `subresource in subresources`,
	}
	r.UpsertConditionDefinition(def)

	got, ok := r.FindConditionDefinition("subresource_filter")
	require.True(t, ok)
	assert.Equal(t, def, got)

	assert.True(t, r.DeleteConditionDefinition("subresource_filter"))
	_, ok = r.FindConditionDefinition("subresource_filter")
	assert.False(t, ok)
}

func TestRelationConfig_AcceptsDirectSubjectType(t *testing.T) {
	cfg := schema.RelationConfig{
		DirectlyAssignableTypes: []schema.SubjectTypeRef{
			{Type: "user"},
			{Type: "user", Wildcard: true},
			{Type: "group", Relation: "member"},
		},
		AllowsUsersetSubjects: true,
	}

	assert.True(t, cfg.AcceptsDirectSubjectType("user"))
	assert.True(t, cfg.AcceptsWildcardSubjectType("user"))
	assert.False(t, cfg.AcceptsDirectSubjectType("group"))
	assert.ElementsMatch(t, []string{"user", "group"}, cfg.AllowedSubjectTypes())
}

func TestRelationConfig_ComputedUsersetIsStandalone(t *testing.T) {
	cfg := schema.RelationConfig{
		ObjectType:      "document",
		Relation:        "viewer",
		ComputedUserset: "editor",
		ImpliedBy:       []string{"owner"}, // inert per the open-question resolution
	}
	assert.True(t, cfg.HasComputedUserset())
}
