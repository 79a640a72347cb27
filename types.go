// Package relauth is the client façade: a thin
// surface over check, add_tuple, remove_tuple, write_relation_config,
// write_condition_definition, list_objects and list_subjects, performing
// schema-driven write-time validation before any tuple reaches the store.
package relauth

import "github.com/relauth/relauth/pkg/tuple"

// Object identifies a typed resource. In Zanzibar terms both "users" and
// "resources" are objects -- there is no structural difference between the
// subject and object sides of a tuple beyond the position they occupy.
type Object struct {
	Type string
	ID   string
}

// String renders the canonical "type:id" form.
func (o Object) String() string {
	return o.Type + ":" + o.ID
}

// FGAObject implements ObjectLike, letting an Object be used directly
// wherever an object is expected.
func (o Object) FGAObject() Object { return o }

// FGASubject implements SubjectLike, letting an Object be used directly
// wherever a subject is expected.
func (o Object) FGASubject() Object { return o }

func (o Object) ref() tuple.ObjectRef {
	return tuple.ObjectRef{Type: o.Type, ID: o.ID}
}

// ObjectLike is implemented by domain types that can name themselves as an
// authorization object without importing this package's types into the
// domain layer.
//
//	type Repository struct{ ID string }
//	func (r Repository) FGAObject() relauth.Object {
//	    return relauth.Object{Type: "repository", ID: r.ID}
//	}
type ObjectLike interface {
	FGAObject() Object
}

// SubjectLike is implemented by domain types that can name themselves as an
// authorization subject.
type SubjectLike interface {
	FGASubject() Object
}

// Relation names a typed edge from an object to the subjects that hold it.
type Relation string

// FGARelation implements RelationLike, letting a Relation be used directly
// wherever a relation is expected.
func (r Relation) FGARelation() Relation { return r }

// RelationLike is implemented by generated or hand-written constants that
// name a relation.
type RelationLike interface {
	FGARelation() Relation
}

// Userset identifies a subject as "every member of Object's Relation"
// rather than a concrete subject. It intentionally does not implement
// SubjectLike: a userset carries a relation that FGASubject()'s Object
// return value cannot express, so call sites that accept a userset subject
// (AddUsersetTuple, CheckUserset) take it as a distinct parameter.
type Userset struct {
	Object   Object
	Relation Relation
}

// ContextualTuple is a request-scoped tuple fact, valid only for the
// duration of a single Check or CheckUserset call and never persisted.
// ListObjects and ListSubjects do not consult contextual tuples.
// SubjectRelation is empty for a plain subject.
type ContextualTuple struct {
	SubjectType     string
	SubjectID       string
	SubjectRelation string
	Relation        Relation
	Object          Object

	ConditionName    string
	ConditionContext map[string]any
}
