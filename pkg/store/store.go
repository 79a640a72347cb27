// Package store defines the tuple store contract the check evaluator
// consumes. The evaluator never depends on a concrete storage
// engine -- only on this interface -- so it can run equally well against
// the in-memory reference implementation in pkg/store/memory (used by
// every unit test) or the Postgres-backed implementation in
// pkg/store/postgres.
package store

import (
	"context"

	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/tuple"
)

// Store is the narrow set of indexed lookups and writes the evaluator and
// façade issue. Every operation is semantic, not syntactic -- an
// implementation is free to satisfy it with SQL, an in-memory index, or
// anything else, as long as it honors the guarantees below.
//
// Guarantees required of any implementation: stable iteration
// within a single call, read-your-writes within the process that issued
// the write, and point lookups that are at least O(log n). No
// transactional isolation across multiple evaluator calls is assumed.
type Store interface {
	// FindDirectTuple is the point lookup behind steps 1-2: a tuple
	// on (objectType, objectID, relation) whose subject is exactly
	// (subjectType, subjectID) with no subject relation. Returns
	// (tuple.Tuple{}, false, nil) when absent.
	FindDirectTuple(ctx context.Context, objectType, objectID, relation, subjectType, subjectID string) (tuple.Tuple, bool, error)

	// FindUsersetTuples returns every tuple on (objectType, objectID,
	// relation) whose subject carries a subject_relation -- step 3.
	FindUsersetTuples(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error)

	// FindTuplesByRelation returns every tuple on (objectType, objectID,
	// relation) regardless of subject shape -- used by tuple-to-userset
	// enumeration (step 6).
	FindTuplesByRelation(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error)

	// InsertTuple writes t, overwriting any existing tuple with the same
	// Identity (last-write-wins on the 6-field key).
	InsertTuple(ctx context.Context, t tuple.Tuple) error

	// DeleteTuple removes the tuple matching id, reporting whether one
	// existed.
	DeleteTuple(ctx context.Context, id tuple.Identity) (bool, error)

	// ListCandidateObjectIDs enumerates every known object id of the
	// given type, for list_objects.
	ListCandidateObjectIDs(ctx context.Context, objectType string) ([]string, error)

	// ListDirectSubjects returns the direct subjects of (objectType,
	// objectID, relation) as stored, for list_subjects. Identical
	// data to FindTuplesByRelation but named separately because it is a
	// distinct point in the external contract.
	ListDirectSubjects(ctx context.Context, objectType, objectID, relation string) ([]tuple.SubjectRef, error)

	// FindRelationConfig and FindConditionDefinition are the schema-lookup
	// operations the evaluator issues; a Store that wraps a schema.Registry
	// directly can just delegate these.
	FindRelationConfig(ctx context.Context, objectType, relation string) (schema.RelationConfig, bool, error)
	FindConditionDefinition(ctx context.Context, name string) (schema.ConditionDefinition, bool, error)

	// UpsertRelationConfig, DeleteRelationConfig, UpsertConditionDefinition
	// and DeleteConditionDefinition are the schema write operations issued
	// by the client façade.
	UpsertRelationConfig(ctx context.Context, cfg schema.RelationConfig) error
	DeleteRelationConfig(ctx context.Context, objectType, relation string) (bool, error)
	UpsertConditionDefinition(ctx context.Context, def schema.ConditionDefinition) error
	DeleteConditionDefinition(ctx context.Context, name string) (bool, error)
}
