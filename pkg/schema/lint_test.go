package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relauth/relauth/pkg/schema"
)

func TestLint_DetectsImpliedByCycle(t *testing.T) {
	r := schema.NewRegistry()
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "a", ImpliedBy: []string{"b"}})
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "b", ImpliedBy: []string{"a"}})

	cycles := schema.Lint(r)
	assert.NotEmpty(t, cycles, "mutually-implying relations form a cycle")
}

func TestLint_NoFalsePositiveOnHierarchy(t *testing.T) {
	r := schema.NewRegistry()
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "owner"})
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "editor", ImpliedBy: []string{"owner"}})
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "viewer", ImpliedBy: []string{"editor"}})

	cycles := schema.Lint(r)
	assert.Empty(t, cycles, "a strict union hierarchy is not a cycle")
}

func TestLint_ComputedUsersetIgnoresSiblingFields(t *testing.T) {
	r := schema.NewRegistry()
	// viewer is a standalone rewrite of editor; its ImpliedBy is inert and
	// must not be walked by the lint graph either.
	r.UpsertRelationConfig(schema.RelationConfig{
		ObjectType:      "document",
		Relation:        "viewer",
		ComputedUserset: "editor",
		ImpliedBy:       []string{"viewer"}, // would be a self-cycle if honored
	})
	r.UpsertRelationConfig(schema.RelationConfig{ObjectType: "document", Relation: "editor"})

	cycles := schema.Lint(r)
	assert.Empty(t, cycles)
}
