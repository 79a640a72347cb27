package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store/memory"
	"github.com/relauth/relauth/pkg/tuple"
)

func TestStore_InsertFindDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	tp := tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d1"},
		Relation: "owner",
		Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
	}
	require.NoError(t, s.InsertTuple(ctx, tp))

	got, ok, err := s.FindDirectTuple(ctx, "document", "d1", "owner", "user", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tp, got)

	existed, err := s.DeleteTuple(ctx, tp.Identity())
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, err = s.FindDirectTuple(ctx, "document", "d1", "owner", "user", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	existed, err = s.DeleteTuple(ctx, tp.Identity())
	require.NoError(t, err)
	assert.False(t, existed, "deleting an absent tuple reports false, not an error")
}

func TestStore_LastWriteWinsOnIdentity(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	base := tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "folder", ID: "root"},
		Relation: "resource_create",
		Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
	}
	require.NoError(t, s.InsertTuple(ctx, base))

	withCondition := base
	withCondition.ConditionName = "subresource_filter"
	withCondition.ConditionContext = map[string]any{"subresources": []any{"dashboard"}}
	require.NoError(t, s.InsertTuple(ctx, withCondition))

	got, ok, err := s.FindDirectTuple(ctx, "folder", "root", "resource_create", "user", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "subresource_filter", got.ConditionName)

	rels, err := s.FindTuplesByRelation(ctx, "folder", "root", "resource_create")
	require.NoError(t, err)
	assert.Len(t, rels, 1, "overwriting by identity must not duplicate the enumeration index")
}

func TestStore_UsersetTuplesFiltered(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	direct := tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d1"},
		Relation: "viewer",
		Subject:  tuple.SubjectRef{Type: "user", ID: "bob"},
	}
	userset := tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d1"},
		Relation: "viewer",
		Subject:  tuple.SubjectRef{Type: "group", ID: "eng", Relation: "member"},
	}
	require.NoError(t, s.InsertTuple(ctx, direct))
	require.NoError(t, s.InsertTuple(ctx, userset))

	usersets, err := s.FindUsersetTuples(ctx, "document", "d1", "viewer")
	require.NoError(t, err)
	require.Len(t, usersets, 1)
	assert.Equal(t, userset, usersets[0])

	all, err := s.FindTuplesByRelation(ctx, "document", "d1", "viewer")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_ListCandidateObjectIDsIsSorted(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	for _, id := range []string{"d3", "d1", "d2"} {
		require.NoError(t, s.InsertTuple(ctx, tuple.Tuple{
			Object:   tuple.ObjectRef{Type: "document", ID: id},
			Relation: "owner",
			Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
		}))
	}

	ids, err := s.ListCandidateObjectIDs(ctx, "document")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, ids)
}

func TestStore_SchemaDelegation(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	cfg := schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}
	require.NoError(t, s.UpsertRelationConfig(ctx, cfg))

	got, ok, err := s.FindRelationConfig(ctx, cfg.ObjectType, cfg.Relation)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cfg, got)

	existed, err := s.DeleteRelationConfig(ctx, cfg.ObjectType, cfg.Relation)
	require.NoError(t, err)
	assert.True(t, existed)
}
