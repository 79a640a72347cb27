// Package memory implements an in-process reference Store, grounded on the
// dual-indexed tuple-graph pattern used by minimal Zanzibar clones: a
// primary map keyed by tuple identity for O(1) direct lookups, plus a
// secondary object/relation index for the enumeration operations the
// evaluator needs. It is the store behind every pkg/check unit
// test and behind `relauth check` when the configured store backend is
// "memory" (the default).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/tuple"
)

type objRelKey struct {
	objectType string
	objectID   string
	relation   string
}

// Store is a thread-safe, in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	tuples    map[tuple.Identity]tuple.Tuple
	index     map[objRelKey][]tuple.Identity
	objectIDs map[string]map[string]struct{} // object_type -> set of object ids

	registry *schema.Registry
}

// New returns an empty Store backed by a fresh schema registry.
func New() *Store {
	return &Store{
		tuples:    make(map[tuple.Identity]tuple.Tuple),
		index:     make(map[objRelKey][]tuple.Identity),
		objectIDs: make(map[string]map[string]struct{}),
		registry:  schema.NewRegistry(),
	}
}

// NewWithRegistry returns a Store backed by the given registry, useful when
// a schema has already been parsed and loaded independently of tuple data.
func NewWithRegistry(r *schema.Registry) *Store {
	return &Store{
		tuples:    make(map[tuple.Identity]tuple.Tuple),
		index:     make(map[objRelKey][]tuple.Identity),
		objectIDs: make(map[string]map[string]struct{}),
		registry:  r,
	}
}

func keyOf(id tuple.Identity) objRelKey {
	return objRelKey{id.ObjectType, id.ObjectID, id.Relation}
}

func (s *Store) FindDirectTuple(_ context.Context, objectType, objectID, relation, subjectType, subjectID string) (tuple.Tuple, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := tuple.Identity{
		ObjectType:  objectType,
		ObjectID:    objectID,
		Relation:    relation,
		SubjectType: subjectType,
		SubjectID:   subjectID,
	}
	t, ok := s.tuples[id]
	return t, ok, nil
}

func (s *Store) FindUsersetTuples(_ context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tuple.Tuple
	for _, id := range s.index[objRelKey{objectType, objectID, relation}] {
		if id.SubjectRelation == "" {
			continue
		}
		if t, ok := s.tuples[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) FindTuplesByRelation(_ context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.index[objRelKey{objectType, objectID, relation}]
	out := make([]tuple.Tuple, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tuples[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) InsertTuple(_ context.Context, t tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := t.Identity()
	if _, exists := s.tuples[id]; !exists {
		key := keyOf(id)
		s.index[key] = append(s.index[key], id)

		if s.objectIDs[id.ObjectType] == nil {
			s.objectIDs[id.ObjectType] = make(map[string]struct{})
		}
		s.objectIDs[id.ObjectType][id.ObjectID] = struct{}{}
	}
	// Last-write-wins on the identity key; condition fields may differ.
	s.tuples[id] = t
	return nil
}

func (s *Store) DeleteTuple(_ context.Context, id tuple.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tuples[id]; !ok {
		return false, nil
	}
	delete(s.tuples, id)

	key := keyOf(id)
	ids := s.index[key]
	for i, existing := range ids {
		if existing == id {
			s.index[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Store) ListCandidateObjectIDs(_ context.Context, objectType string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.objectIDs[objectType]))
	for id := range s.objectIDs[objectType] {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic iteration order
	return ids, nil
}

func (s *Store) ListDirectSubjects(_ context.Context, objectType, objectID, relation string) ([]tuple.SubjectRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.index[objRelKey{objectType, objectID, relation}]
	out := make([]tuple.SubjectRef, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tuples[id]; ok {
			out = append(out, t.Subject)
		}
	}
	return out, nil
}

func (s *Store) FindRelationConfig(_ context.Context, objectType, relation string) (schema.RelationConfig, bool, error) {
	cfg, ok := s.registry.FindRelationConfig(objectType, relation)
	return cfg, ok, nil
}

func (s *Store) FindConditionDefinition(_ context.Context, name string) (schema.ConditionDefinition, bool, error) {
	def, ok := s.registry.FindConditionDefinition(name)
	return def, ok, nil
}

func (s *Store) UpsertRelationConfig(_ context.Context, cfg schema.RelationConfig) error {
	s.registry.UpsertRelationConfig(cfg)
	return nil
}

func (s *Store) DeleteRelationConfig(_ context.Context, objectType, relation string) (bool, error) {
	return s.registry.DeleteRelationConfig(objectType, relation), nil
}

func (s *Store) UpsertConditionDefinition(_ context.Context, def schema.ConditionDefinition) error {
	s.registry.UpsertConditionDefinition(def)
	return nil
}

func (s *Store) DeleteConditionDefinition(_ context.Context, name string) (bool, error) {
	return s.registry.DeleteConditionDefinition(name), nil
}

// Registry exposes the underlying schema registry, e.g. for pkg/schema.Lint.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}
