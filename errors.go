package relauth

import (
	"errors"
	"fmt"

	"github.com/relauth/relauth/pkg/check"
)

// Sentinel errors for the façade's write-time validation. Each
// wraps additional context via fmt.Errorf("%w: ...") so errors.Is still
// matches the sentinel while callers that need the detail can use
// errors.As against the richer types below.
var (
	// ErrRelationConfigNotFound is raised on add_tuple (AddTuple,
	// AddUsersetTuple, AddConditionalTuple) when the referenced
	// (object_type, relation) has no RelationConfig.
	ErrRelationConfigNotFound = errors.New("relauth: relation config not found")

	// ErrInvalidSubjectType is raised on add_tuple when a plain subject's
	// type is not in the relation's directly_assignable_types.
	ErrInvalidSubjectType = errors.New("relauth: invalid subject type")

	// ErrUsersetNotAllowed is raised on add_tuple when a userset subject is
	// supplied but the relation does not set allows_userset_subjects.
	ErrUsersetNotAllowed = errors.New("relauth: userset subject not allowed")

	// ErrMalformedRequest is raised for programmer errors in request
	// construction (empty ids, missing types). It is the same value as
	// check.ErrMalformedRequest, which the evaluator returns.
	ErrMalformedRequest = check.ErrMalformedRequest
)

// InvalidSubjectTypeError carries the allowed-types set alongside the
// sentinel ("error carrying the allowed set").
type InvalidSubjectTypeError struct {
	SubjectType string
	Allowed     []string
}

func (e *InvalidSubjectTypeError) Error() string {
	return fmt.Sprintf("%v: %q not in allowed types %v", ErrInvalidSubjectType, e.SubjectType, e.Allowed)
}

func (e *InvalidSubjectTypeError) Unwrap() error {
	return ErrInvalidSubjectType
}

// RelationConfigNotFoundError carries the offending (object_type, relation)
// pair alongside the sentinel.
type RelationConfigNotFoundError struct {
	ObjectType string
	Relation   string
}

func (e *RelationConfigNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s#%s", ErrRelationConfigNotFound, e.ObjectType, e.Relation)
}

func (e *RelationConfigNotFoundError) Unwrap() error {
	return ErrRelationConfigNotFound
}
