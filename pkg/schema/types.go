// Package schema holds the authorization model: RelationConfig records that
// describe how each (object_type, relation) pair is computed, and
// ConditionDefinition records describing named, typed expressions that gate
// conditional tuples. Both are read-only for the duration of any single
// check call: schema registries are read-only during evaluation.
package schema

// SubjectTypeRef names one subject type (optionally a wildcard or a
// userset-of-type) permitted as a direct subject on a relation.
type SubjectTypeRef struct {
	// Type is the subject's object type, e.g. "user".
	Type string
	// Wildcard, when true, means "type:*" is permitted on this relation.
	Wildcard bool
	// Relation, when non-empty, means "type#relation" (a userset subject)
	// is permitted; AllowsUsersetSubjects must also be set on the owning
	// RelationConfig.
	Relation string
}

// OperandKind tags the variant held by an IntersectionOperand or a
// tuple-to-userset reference. Modeled as an exhaustively-matched tagged
// union rather than open-ended dispatch.
type OperandKind int

const (
	// OperandDirect restricts the operand to directly-assigned tuples
	// of the owning relation (DirectlyAssignableTypes-honoring lookup).
	OperandDirect OperandKind = iota
	// OperandComputedUserset restricts the operand to "this relation is
	// equivalent to relation X on the same object".
	OperandComputedUserset
	// OperandTupleToUserset restricts the operand to a tupleset/computed
	// userset pair.
	OperandTupleToUserset
)

func (k OperandKind) String() string {
	switch k {
	case OperandDirect:
		return "direct"
	case OperandComputedUserset:
		return "computedUserset"
	case OperandTupleToUserset:
		return "tupleToUserset"
	default:
		return "unknown"
	}
}

// TupleToUserset names a "follow this tupleset, then check that relation on
// the referenced object" rewrite.
type TupleToUserset struct {
	// Tupleset is the relation on the owning object whose direct tuples
	// point at referenced objects (e.g. "parent").
	Tupleset string
	// ComputedUserset is the relation checked on each referenced object.
	ComputedUserset string
}

// IntersectionOperand is one AND-composed operand of a relation's
// intersection.
type IntersectionOperand struct {
	Kind OperandKind
	// ComputedUserset is set when Kind == OperandComputedUserset.
	ComputedUserset string
	// TupleToUserset is set when Kind == OperandTupleToUserset.
	TupleToUserset TupleToUserset
}

// RelationConfig describes how one (object_type, relation) pair is
// computed. The fields below compose the way a single relation's rewrite
// rule does: direct assignment, union with sibling relations, a
// tuple-to-userset rewrite, intersection, and exclusion.
type RelationConfig struct {
	ObjectType string
	Relation   string

	// DirectlyAssignableTypes lists which subject shapes may appear in a
	// direct tuple on this relation. Empty/nil means no direct tuples are
	// ever accepted (the relation is purely computed).
	DirectlyAssignableTypes []SubjectTypeRef

	// AllowsUsersetSubjects gates acceptance of tuples whose subject
	// carries a SubjectRelation (a userset subject).
	AllowsUsersetSubjects bool

	// ImpliedBy lists sibling relations on the same object whose truth
	// implies this one (union with these siblings; step 5).
	ImpliedBy []string

	// ComputedUserset, when non-empty, makes this relation a standalone
	// rewrite of another relation on the same object.
	//
	// When ComputedUserset is set, it is authoritative and every sibling
	// composition field below
	// (ImpliedBy, TupleToUserset, ExcludedBy, Intersection) is ignored by
	// the evaluator — this relation is nothing but that rewrite. A schema
	// that wants both a rewrite AND additional composition should express
	// the composition on the referenced relation instead.
	ComputedUserset string

	// TupleToUserset lists tuple-to-userset rewrites applied in union with
	// ImpliedBy and the direct tuples.
	TupleToUserset []TupleToUserset

	// ExcludedBy, when non-empty, names a sibling relation whose truth
	// denies this relation outright. Applied last, after every positive
	// branch.
	ExcludedBy string

	// Intersection, when non-empty, requires every operand to hold.
	// Evaluated left-to-right, short-circuiting on the first false
	// operand.
	Intersection []IntersectionOperand
}

// HasComputedUserset reports whether this relation is a standalone rewrite,
// per the open-question resolution above: when true, every other
// composition field is inert.
func (c RelationConfig) HasComputedUserset() bool {
	return c.ComputedUserset != ""
}

// AcceptsDirectSubjectType reports whether a plain (non-wildcard,
// non-userset) tuple with the given subject type may be written directly
// on this relation.
func (c RelationConfig) AcceptsDirectSubjectType(subjectType string) bool {
	for _, ref := range c.DirectlyAssignableTypes {
		if ref.Type == subjectType && ref.Relation == "" {
			return true
		}
	}
	return false
}

// AcceptsWildcardSubjectType reports whether a "type:*" tuple is permitted
// for the given subject type.
func (c RelationConfig) AcceptsWildcardSubjectType(subjectType string) bool {
	for _, ref := range c.DirectlyAssignableTypes {
		if ref.Type == subjectType && ref.Wildcard {
			return true
		}
	}
	return false
}

// AllowedSubjectTypes returns the distinct subject types named in
// DirectlyAssignableTypes, whether the entry is a plain, wildcard or
// userset reference, used to build the allowed-types set on InvalidSubjectType
// errors.
func (c RelationConfig) AllowedSubjectTypes() []string {
	seen := make(map[string]struct{}, len(c.DirectlyAssignableTypes))
	var out []string
	for _, ref := range c.DirectlyAssignableTypes {
		if _, ok := seen[ref.Type]; ok {
			continue
		}
		seen[ref.Type] = struct{}{}
		out = append(out, ref.Type)
	}
	return out
}

// ParamType is the declared type of a condition parameter.
type ParamType int

const (
	ParamBool ParamType = iota
	ParamString
	ParamInt
	ParamDouble
	ParamTimestamp
	ParamDuration
	ParamList
	ParamMap
)

func (p ParamType) String() string {
	switch p {
	case ParamBool:
		return "bool"
	case ParamString:
		return "string"
	case ParamInt:
		return "int"
	case ParamDouble:
		return "double"
	case ParamTimestamp:
		return "timestamp"
	case ParamDuration:
		return "duration"
	case ParamList:
		return "list"
	case ParamMap:
		return "map"
	default:
		return "unknown"
	}
}

// ConditionDefinition is a named, typed expression gating conditional
// tuples.
type ConditionDefinition struct {
	Name       string
	Parameters map[string]ParamType
	Expression string
}
