// Package tuple defines the relationship-fact type the rest of relauth is
// built around, along with the typed object/subject identifiers used to
// construct and query it.
package tuple

import "fmt"

// WildcardID is the sentinel subject id denoting a type-wildcard subject:
// "every subject of this type holds the relation", independent of any
// specific id. It is only accepted when the relation's schema permits
// "type:*" in its directly_assignable_types.
const WildcardID = "*"

// ObjectRef identifies a typed object or subject by (type, id). The same
// shape names both sides of a tuple; in Zanzibar terms there is no
// structural difference between an "object" and a "subject" beyond the
// position they appear in.
type ObjectRef struct {
	Type string
	ID   string
}

// String renders the canonical "type:id" form used in logs and the CLI.
func (o ObjectRef) String() string {
	return o.Type + ":" + o.ID
}

// IsWildcard reports whether this ref encodes a type-wildcard subject.
func (o ObjectRef) IsWildcard() bool {
	return o.ID == WildcardID
}

// SubjectRef identifies the subject side of a tuple, which may additionally
// carry a relation making it a userset subject ("members of group g", not
// "group g" itself).
type SubjectRef struct {
	Type     string
	ID       string
	Relation string // empty for a plain (non-userset) subject
}

// IsUserset reports whether the subject names a userset ("T:id#relation")
// rather than a concrete subject.
func (s SubjectRef) IsUserset() bool {
	return s.Relation != ""
}

// String renders the canonical form: "type:id" for a plain subject,
// "type:id#relation" for a userset subject.
func (s SubjectRef) String() string {
	if s.IsUserset() {
		return fmt.Sprintf("%s:%s#%s", s.Type, s.ID, s.Relation)
	}
	return s.Type + ":" + s.ID
}

// ObjectRef returns the subject's identity as a plain ObjectRef, discarding
// any userset relation. Used when recursing into a userset subject's own
// relation.
func (s SubjectRef) ObjectRef() ObjectRef {
	return ObjectRef{Type: s.Type, ID: s.ID}
}

// Tuple is one relationship fact: subject S holds relation R on object O,
// optionally gated by a named condition evaluated against a context.
type Tuple struct {
	Object   ObjectRef
	Relation string
	Subject  SubjectRef

	// ConditionName, when non-empty, names a ConditionDefinition that must
	// evaluate true (under the merged tuple/request context) for this
	// tuple to grant.
	ConditionName string
	// ConditionContext supplies condition parameters bound at write time;
	// merged with (and overridden by) the request's context at check time.
	ConditionContext map[string]any
}

// HasCondition reports whether the tuple is a conditional grant.
func (t Tuple) HasCondition() bool {
	return t.ConditionName != ""
}

// Identity is the subset of fields that determine tuple identity for
// dedup and deletion: the full 6-field key excluding condition data. Two
// tuples sharing an Identity overwrite each other at write time
// (last-write-wins); condition fields are mutable metadata on that key.
type Identity struct {
	ObjectType      string
	ObjectID        string
	Relation        string
	SubjectType     string
	SubjectID       string
	SubjectRelation string
}

// Identity computes the tuple's identity key.
func (t Tuple) Identity() Identity {
	return Identity{
		ObjectType:      t.Object.Type,
		ObjectID:        t.Object.ID,
		Relation:        t.Relation,
		SubjectType:     t.Subject.Type,
		SubjectID:       t.Subject.ID,
		SubjectRelation: t.Subject.Relation,
	}
}

// String renders the tuple in the familiar "object#relation@subject" form,
// used in logs and CLI output.
func (t Tuple) String() string {
	return fmt.Sprintf("%s#%s@%s", t.Object, t.Relation, t.Subject)
}
