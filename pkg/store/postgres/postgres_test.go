package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relauth/relauth/pkg/migrator"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store/postgres"
	"github.com/relauth/relauth/pkg/tuple"
)

// testDB starts a fresh Postgres container, applies the relauth schema and
// returns a connection. Skipped when testing.Short() is set, since it needs
// Docker.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("relauth"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, migrator.Migrate(ctx, db))
	return db
}

func TestStore_TupleRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := postgres.New(db)

	require.NoError(t, s.UpsertRelationConfig(ctx, schema.RelationConfig{
		ObjectType:              "document",
		Relation:                "owner",
		DirectlyAssignableTypes: []schema.SubjectTypeRef{{Type: "user"}},
	}))

	cfg, ok, err := s.FindRelationConfig(ctx, "document", "owner")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "document", cfg.ObjectType)

	require.NoError(t, s.InsertTuple(ctx, tuple.Tuple{
		Object:   tuple.ObjectRef{Type: "document", ID: "d1"},
		Relation: "owner",
		Subject:  tuple.SubjectRef{Type: "user", ID: "alice"},
	}))

	found, ok, err := s.FindDirectTuple(ctx, "document", "d1", "owner", "user", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", found.Subject.ID)

	ids, err := s.ListCandidateObjectIDs(ctx, "document")
	require.NoError(t, err)
	require.Equal(t, []string{"d1"}, ids)

	existed, err := s.DeleteTuple(ctx, found.Identity())
	require.NoError(t, err)
	require.True(t, existed)

	_, ok, err = s.FindDirectTuple(ctx, "document", "d1", "owner", "user", "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_ConditionDefinitionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := postgres.New(db)

	def := schema.ConditionDefinition{
		Name:       "subresource_filter",
		Parameters: map[string]schema.ParamType{"allowed_ids": schema.ParamList},
		Expression: `request.subresource_id in allowed_ids`,
	}
	require.NoError(t, s.UpsertConditionDefinition(ctx, def))

	got, ok, err := s.FindConditionDefinition(ctx, "subresource_filter")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, def.Expression, got.Expression)

	existed, err := s.DeleteConditionDefinition(ctx, "subresource_filter")
	require.NoError(t, err)
	require.True(t, existed)
}
