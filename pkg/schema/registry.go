package schema

import "sync"

// relKey is the lookup key for a RelationConfig: (object_type, relation).
type relKey struct {
	objectType string
	relation   string
}

// Registry is an in-memory, read-mostly store of RelationConfig and
// ConditionDefinition records: RelationConfig keyed by (object_type,
// relation), ConditionDefinition keyed by name.
//
// A Registry is safe for concurrent reads and writes. Callers performing a
// check are expected to treat the registry as read-only for the duration of
// that call; the mutex here only protects the registry's own map
// structures, not cross-call consistency.
type Registry struct {
	mu         sync.RWMutex
	relations  map[relKey]RelationConfig
	conditions map[string]ConditionDefinition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relations:  make(map[relKey]RelationConfig),
		conditions: make(map[string]ConditionDefinition),
	}
}

// UpsertRelationConfig writes (or overwrites) a RelationConfig.
func (r *Registry) UpsertRelationConfig(cfg RelationConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[relKey{cfg.ObjectType, cfg.Relation}] = cfg
}

// DeleteRelationConfig removes a RelationConfig, reporting whether one
// existed.
func (r *Registry) DeleteRelationConfig(objectType, relation string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := relKey{objectType, relation}
	_, ok := r.relations[key]
	delete(r.relations, key)
	return ok
}

// FindRelationConfig looks up a RelationConfig. A missing config is not an
// error at this layer — callers in the evaluator treat it as "this branch
// denies".
func (r *Registry) FindRelationConfig(objectType, relation string) (RelationConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.relations[relKey{objectType, relation}]
	return cfg, ok
}

// RelationConfigs returns every registered RelationConfig for an object
// type, used by the doctor's rewrite-target check.
func (r *Registry) RelationConfigs(objectType string) []RelationConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RelationConfig
	for k, cfg := range r.relations {
		if k.objectType == objectType {
			out = append(out, cfg)
		}
	}
	return out
}

// ObjectTypes returns the distinct object types with at least one
// registered relation.
func (r *Registry) ObjectTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for k := range r.relations {
		if _, ok := seen[k.objectType]; !ok {
			seen[k.objectType] = struct{}{}
			out = append(out, k.objectType)
		}
	}
	return out
}

// UpsertConditionDefinition writes (or overwrites) a ConditionDefinition.
func (r *Registry) UpsertConditionDefinition(def ConditionDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[def.Name] = def
}

// DeleteConditionDefinition removes a ConditionDefinition, reporting
// whether one existed.
func (r *Registry) DeleteConditionDefinition(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conditions[name]
	delete(r.conditions, name)
	return ok
}

// FindConditionDefinition looks up a ConditionDefinition by name.
func (r *Registry) FindConditionDefinition(name string) (ConditionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.conditions[name]
	return def, ok
}
