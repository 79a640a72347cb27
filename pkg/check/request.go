package check

// Request is one check call's input: "is subject S in relation R to
// object O, under context ctx?"
type Request struct {
	ObjectType string
	ObjectID   string
	Relation   string

	SubjectType string
	SubjectID   string
	// SubjectRelation, when non-empty, makes this a userset-subject query:
	// "does every member of {SubjectType}:{SubjectID}#{SubjectRelation}
	// hold the relation".
	SubjectRelation string

	// Context supplies request-scoped condition parameters; merged with
	// (and taking precedence over) any tuple-bound condition context.
	Context map[string]any

	// ContextualTuples are request-scoped tuples that exist only for the
	// duration of this call and are never persisted -- the façade's
	// equivalent of OpenFGA's contextual tuples. The evaluator treats
	// them as an overlay consulted alongside the store at every lookup
	// point.
	ContextualTuples []ContextualTuple
}

// ContextualTuple is a request-scoped tuple fact, shaped like tuple.Tuple
// but kept as its own type here to keep pkg/check's public surface
// self-contained; see the client façade for the conversion.
type ContextualTuple struct {
	ObjectType      string
	ObjectID        string
	Relation        string
	SubjectType     string
	SubjectID       string
	SubjectRelation string
	ConditionName   string
	ConditionContext map[string]any
}

// Options tunes one check call. The zero value is usable: Check treats a
// MaxDepth of zero or less as the default.
type Options struct {
	// MaxDepth bounds recursion depth. A value of zero or less means the
	// default of 25, the value DefaultOptions sets.
	MaxDepth int
	// DecisionOverride, when non-nil, short-circuits the entire decision
	// procedure with a forced result -- see WithDecisionOverride. This is
	// a supplemented feature, never implicit.
	DecisionOverride *bool
}

// DefaultOptions returns the evaluator's default options: max_depth = 25.
func DefaultOptions() Options {
	return Options{MaxDepth: 25}
}
