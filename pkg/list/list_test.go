package list_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relauth/relauth/pkg/check"
	"github.com/relauth/relauth/pkg/list"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store/memory"
	"github.com/relauth/relauth/pkg/tuple"
)

func TestObjects_ReturnsPassingCandidates(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.UpsertRelationConfig(ctx, schema.RelationConfig{
		ObjectType: "document", Relation: "viewer",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))
	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, s.InsertTuple(ctx, tuple.Tuple{
			Object:   tuple.ObjectRef{Type: "document", ID: id},
			Relation: "viewer",
			Subject:  tuple.SubjectRef{Type: "user", ID: "someone-else"},
		}))
	}
	require.NoError(t, s.InsertTuple(ctx, tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d2"},
		Relation: "viewer",
		Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
	}))

	checker := check.New(s)
	ids, err := list.Objects(ctx, s, checker, "document", "viewer", "user", "alice", check.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func TestSubjects_DoesNotExpandUnions(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.UpsertRelationConfig(ctx, schema.RelationConfig{
		ObjectType: "document", Relation: "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))
	require.NoError(t, s.UpsertRelationConfig(ctx, schema.RelationConfig{
		ObjectType: "document", Relation: "viewer",
		ImpliedBy: []string{"owner"},
	}))
	require.NoError(t, s.InsertTuple(ctx, tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d1"},
		Relation: "owner",
		Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
	}))

	subs, err := list.Subjects(ctx, s, "document", "d1", "viewer")
	require.NoError(t, err)
	assert.Empty(t, subs, "viewer has no direct tuples of its own; the owner->viewer union is not followed")

	subs, err = list.Subjects(ctx, s, "document", "d1", "owner")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "alice", subs[0].ID)
}
