package parser

import (
	"errors"
	"testing"

	"github.com/relauth/relauth/pkg/schema"
)

func findConfig(t *testing.T, cfgs []schema.RelationConfig, objectType, relation string) schema.RelationConfig {
	t.Helper()
	for _, cfg := range cfgs {
		if cfg.ObjectType == objectType && cfg.Relation == relation {
			return cfg
		}
	}
	t.Fatalf("no RelationConfig for %s.%s", objectType, relation)
	return schema.RelationConfig{}
}

func TestParseSchemaString_DirectAssignment(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type document
  relations
    define owner: [user]`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	owner := findConfig(t, cfgs, "document", "owner")
	if len(owner.DirectlyAssignableTypes) != 1 || owner.DirectlyAssignableTypes[0].Type != "user" {
		t.Errorf("expected owner to accept direct user tuples, got %+v", owner.DirectlyAssignableTypes)
	}
}

func TestParseSchemaString_ImpliedByAndUserset(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type group
  relations
    define member: [user]

type document
  relations
    define owner: [user]
    define editor: [user, group#member] or owner`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	editor := findConfig(t, cfgs, "document", "editor")
	if !editor.AllowsUsersetSubjects {
		t.Error("expected editor to allow userset subjects via group#member")
	}
	if len(editor.ImpliedBy) != 1 || editor.ImpliedBy[0] != "owner" {
		t.Errorf("expected editor to be implied by owner, got %v", editor.ImpliedBy)
	}
}

func TestParseSchemaString_TupleToUserset(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type folder
  relations
    define viewer: [user]

type document
  relations
    define parent: [folder]
    define viewer: viewer from parent`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	viewer := findConfig(t, cfgs, "document", "viewer")
	if len(viewer.TupleToUserset) != 1 {
		t.Fatalf("expected one tuple-to-userset rewrite, got %v", viewer.TupleToUserset)
	}
	ttu := viewer.TupleToUserset[0]
	if ttu.Tupleset != "parent" || ttu.ComputedUserset != "viewer" {
		t.Errorf("expected viewer from parent, got %+v", ttu)
	}
}

func TestParseSchemaString_ComputedUsersetIsStandalone(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type document
  relations
    define owner: [user]
    define admin: owner`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	admin := findConfig(t, cfgs, "document", "admin")
	if admin.ComputedUserset != "owner" {
		t.Errorf("expected admin to be a standalone rewrite of owner, got %q", admin.ComputedUserset)
	}
	if !admin.HasComputedUserset() {
		t.Error("expected HasComputedUserset to report true")
	}
}

func TestParseSchemaString_SimpleIntersection(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type doc
  relations
    define writer: [user]
    define editor: [user]
    define can_edit: writer and editor`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	canEdit := findConfig(t, cfgs, "doc", "can_edit")
	if len(canEdit.Intersection) != 2 {
		t.Fatalf("expected 2 intersection operands, got %d", len(canEdit.Intersection))
	}
	for _, op := range canEdit.Intersection {
		if op.Kind != schema.OperandComputedUserset {
			t.Errorf("expected computed-userset operands, got %v", op.Kind)
		}
	}
}

func TestParseSchemaString_IntersectionWithComputedUsersetAndTTU(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type org
  relations
    define approver: [user]

type document
  relations
    define org: [org]
    define reviewer: [user]
    define can_publish: reviewer and approver from org`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	canPublish := findConfig(t, cfgs, "document", "can_publish")
	if len(canPublish.Intersection) != 2 {
		t.Fatalf("expected 2 intersection operands, got %d", len(canPublish.Intersection))
	}
	if canPublish.Intersection[0].Kind != schema.OperandComputedUserset {
		t.Errorf("expected first operand to be computed-userset, got %v", canPublish.Intersection[0].Kind)
	}
	if canPublish.Intersection[1].Kind != schema.OperandTupleToUserset {
		t.Errorf("expected second operand to be tuple-to-userset, got %v", canPublish.Intersection[1].Kind)
	}
}

func TestParseSchemaString_Exclusion(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type document
  relations
    define author: [user]
    define viewer: [user]
    define can_comment: viewer but not author`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	canComment := findConfig(t, cfgs, "document", "can_comment")
	if canComment.ExcludedBy != "author" {
		t.Errorf("expected can_comment to be excluded by author, got %q", canComment.ExcludedBy)
	}
	if len(canComment.ImpliedBy) != 1 || canComment.ImpliedBy[0] != "viewer" {
		t.Errorf("expected can_comment to be implied by viewer, got %v", canComment.ImpliedBy)
	}
}

func TestParseSchemaString_UnionInIntersectionRejected(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type group
  relations
    define member: [user]

type folder
  relations
    define group: [group]
    define viewer: [user]
    define can_view: viewer and (member from group or viewer)`

	_, _, err := ParseSchemaString(schemaStr)
	if err == nil {
		t.Fatal("expected union-in-intersection to be rejected")
	}
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestParseSchemaString_WildcardSubject(t *testing.T) {
	schemaStr := `model
  schema 1.1

type user

type document
  relations
    define viewer: [user, user:*]`

	cfgs, _, err := ParseSchemaString(schemaStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	viewer := findConfig(t, cfgs, "document", "viewer")
	if !viewer.AcceptsWildcardSubjectType("user") {
		t.Error("expected viewer to accept user:* wildcard subjects")
	}
	if !viewer.AcceptsDirectSubjectType("user") {
		t.Error("expected viewer to accept plain user subjects")
	}
}
