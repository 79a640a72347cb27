package relauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relauth/relauth"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store/memory"
)

type document struct{ id string }

func (d document) FGAObject() relauth.Object { return relauth.Object{Type: "document", ID: d.id} }

type user struct{ id string }

func (u user) FGASubject() relauth.Object { return relauth.Object{Type: "user", ID: u.id} }

func TestClient_AddTupleAndCheck(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)

	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType: "document",
		Relation:   "viewer",
		ImpliedBy:  []string{"owner"},
	}))

	require.NoError(t, client.AddTuple(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"}))

	ok, err := client.Check(ctx, document{"d1"}, relauth.Relation("viewer"), user{"alice"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Check(ctx, document{"d1"}, relauth.Relation("viewer"), user{"bob"}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_AddTupleRejectsUnknownRelation(t *testing.T) {
	ctx := context.Background()
	client := relauth.New(memory.New())

	err := client.AddTuple(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"})
	require.Error(t, err)
	var notFound *relauth.RelationConfigNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.ErrorIs(t, err, relauth.ErrRelationConfigNotFound)
}

func TestClient_AddTupleRejectsDisallowedSubjectType(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))

	grp := relauth.Object{Type: "group", ID: "eng"}
	err := client.AddTuple(ctx, document{"d1"}, relauth.Relation("owner"), grp)
	require.Error(t, err)
	var invalid *relauth.InvalidSubjectTypeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"user"}, invalid.Allowed)
}

func TestClient_AddUsersetTupleRequiresAllowsUsersetSubjects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "viewer",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))

	grp := relauth.Object{Type: "group", ID: "eng"}
	err := client.AddUsersetTuple(ctx, document{"d1"}, relauth.Relation("viewer"), relauth.Userset{Object: grp, Relation: "member"})
	require.Error(t, err)
	assert.ErrorIs(t, err, relauth.ErrUsersetNotAllowed)

	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "viewer",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
		AllowsUsersetSubjects:   true,
	}))
	err = client.AddUsersetTuple(ctx, document{"d1"}, relauth.Relation("viewer"), relauth.Userset{Object: grp, Relation: "member"})
	require.NoError(t, err)
}

func TestClient_RemoveTupleReportsExistence(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))
	require.NoError(t, client.AddTuple(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"}))

	existed, err := client.RemoveTuple(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"})
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = client.RemoveTuple(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"})
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestClient_CheckWithContextualTuplesAndDecisionOverride(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))

	ok, err := client.Check(ctx, document{"d1"}, relauth.Relation("owner"), user{"alice"}, nil,
		relauth.WithContextualTuples(relauth.ContextualTuple{
			Object:      relauth.Object{Type: "document", ID: "d1"},
			Relation:    "owner",
			SubjectType: "user",
			SubjectID:   "alice",
		}),
	)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Check(ctx, document{"d1"}, relauth.Relation("owner"), user{"bob"}, nil,
		relauth.WithDecisionOverride(true),
	)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_ListObjectsAndSubjects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	client := relauth.New(s)
	require.NoError(t, client.WriteRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "viewer",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))
	require.NoError(t, client.AddTuple(ctx, document{"d1"}, relauth.Relation("viewer"), user{"alice"}))
	require.NoError(t, client.AddTuple(ctx, document{"d2"}, relauth.Relation("viewer"), user{"bob"}))

	ids, err := client.ListObjects(ctx, "document", relauth.Relation("viewer"), user{"alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	subs, err := client.ListSubjects(ctx, document{"d1"}, relauth.Relation("viewer"))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "alice", subs[0].ID)
}
