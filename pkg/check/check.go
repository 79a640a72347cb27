// Package check implements the decision core: the recursive, graph-walking
// procedure that decides whether a subject holds a relation on an object,
// given a tuple store and a schema registry. It is the only package
// in this module with the authority to say "true" or "false"; everything
// else either feeds it data or consumes its answer.
package check

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relauth/relauth/pkg/condition"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store"
	"github.com/relauth/relauth/pkg/tuple"
)

// Checker evaluates check Requests against a Store. A Checker holds no
// mutable state of its own -- depth and visited-set tracking are scoped to
// a single Check call via the unexported call type below.
type Checker struct {
	store  store.Store
	eval   *condition.Evaluator
	logger zerolog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithConditionEvaluator overrides the condition evaluator, e.g. to supply
// one backed by a compiled-program cache (pkg/condition.WithCache).
func WithConditionEvaluator(e *condition.Evaluator) Option {
	return func(c *Checker) { c.eval = e }
}

// WithLogger overrides the zerolog.Logger used for evaluator tracing.
// Defaults to the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// New returns a Checker over the given store.
func New(s store.Store, opts ...Option) *Checker {
	c := &Checker{
		store:  s,
		eval:   condition.NewEvaluator(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs the decision procedure for req under opts. It returns an
// error only for programmer mistakes (malformed request) or store I/O
// failures; evaluation itself always fails closed.
func (c *Checker) Check(ctx context.Context, req Request, opts Options) (bool, error) {
	if req.ObjectType == "" || req.Relation == "" || req.SubjectType == "" {
		return false, fmt.Errorf("%w: object_type, relation and subject_type are required", ErrMalformedRequest)
	}
	if req.ObjectID == "" {
		return false, fmt.Errorf("%w: object_id is required", ErrMalformedRequest)
	}
	if req.SubjectID == "" {
		return false, fmt.Errorf("%w: subject_id is required", ErrMalformedRequest)
	}

	if opts.DecisionOverride != nil {
		return *opts.DecisionOverride, nil
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultOptions().MaxDepth
	}

	call := &call{
		store:      c.store,
		eval:       c.eval,
		logger:     c.logger,
		maxDepth:   maxDepth,
		contextual: req.ContextualTuples,
	}

	evalCtx := req.Context
	return call.check(ctx, 0, req.ObjectType, req.ObjectID, req.Relation, req.SubjectType, req.SubjectID, req.SubjectRelation, newVisitedSet(), evalCtx)
}

// visitedKey identifies one (object_type, object_id, relation) node for
// cycle detection: if the node is already in the visited set, the call
// returns false rather than recursing again.
type visitedKey struct {
	objectType string
	objectID   string
	relation   string
}

// call holds the state scoped to one Check invocation: the recursion
// bound and contextual tuples. None of it survives past the call. The
// visited set is NOT held here -- it is path-scoped, not call-scoped, and
// is threaded explicitly through every recursive check call instead (see
// visited.go).
type call struct {
	store  store.Store
	eval   *condition.Evaluator
	logger zerolog.Logger

	maxDepth   int
	contextual []ContextualTuple
}

func (c *call) check(ctx context.Context, depth int, objectType, objectID, relation, subjectType, subjectID, subjectRelation string, visited *visitedSet, evalCtx map[string]any) (bool, error) {
	if depth >= c.maxDepth {
		c.logger.Trace().Str("object_type", objectType).Str("relation", relation).Int("depth", depth).Msg("check: depth exceeded")
		return false, nil
	}

	key := visitedKey{objectType, objectID, relation}
	if visited.contains(key) {
		c.logger.Trace().Str("object_type", objectType).Str("object_id", objectID).Str("relation", relation).Msg("check: cycle detected")
		return false, nil
	}
	// visited is extended, never mutated, so every branch this node fans
	// out into -- including concurrent siblings -- carries its own copy
	// of the ancestry path rooted at this node.
	onPath := visited.with(key)

	cfg, hasCfg, err := c.store.FindRelationConfig(ctx, objectType, relation)
	if err != nil {
		return false, fmt.Errorf("check: finding relation config %s#%s: %w", objectType, relation, err)
	}
	if !hasCfg {
		// Missing config denies rather than crashing.
		return false, nil
	}

	// Steps 1-3: the relation's own directly-assigned tuples, independent
	// of any rewrite. These always run, even when ComputedUserset is set,
	// because they describe this relation's own assignable tuples, not a
	// sibling composition field.
	directHit, err := c.directAndUsersetHit(ctx, depth, objectType, objectID, relation, subjectType, subjectID, subjectRelation, cfg, onPath, evalCtx)
	if err != nil {
		return false, err
	}
	if directHit {
		return c.applyExclusion(ctx, depth, cfg, objectType, objectID, subjectType, subjectID, subjectRelation, onPath, evalCtx, true)
	}

	// Step 4: computed_userset is a standalone rewrite -- when set, it is
	// authoritative and every sibling composition field, including
	// ExcludedBy, is ignored.
	if cfg.HasComputedUserset() {
		return c.check(ctx, depth+1, objectType, objectID, cfg.ComputedUserset, subjectType, subjectID, subjectRelation, onPath, evalCtx)
	}

	positive, err := c.unionOfRewrites(ctx, depth, objectType, objectID, cfg, subjectType, subjectID, subjectRelation, onPath, evalCtx)
	if err != nil {
		return false, err
	}

	return c.applyExclusion(ctx, depth, cfg, objectType, objectID, subjectType, subjectID, subjectRelation, onPath, evalCtx, positive)
}

// directAndUsersetHit implements steps 1-3: a direct-tuple lookup, the
// type-wildcard direct hit, and userset-subject membership recursion. It
// restricts itself to this relation's own directly-assigned tuples, which
// is exactly what the intersection "direct" operand needs too (§4.1 step
// 7: "direct -- as in step 1-3 restricted to directly-assigned tuples"),
// so this is the one place that logic lives.
func (c *call) directAndUsersetHit(ctx context.Context, depth int, objectType, objectID, relation, subjectType, subjectID, subjectRelation string, cfg schema.RelationConfig, visited *visitedSet, evalCtx map[string]any) (bool, error) {
	// Step 1: trivial hit.
	if subjectRelation == "" {
		t, found, err := c.findDirectTuple(ctx, objectType, objectID, relation, subjectType, subjectID)
		if err != nil {
			return false, err
		}
		if found && c.conditionPasses(ctx, t, evalCtx) {
			return true, nil
		}
	} else {
		tuples, err := c.usersetTuples(ctx, objectType, objectID, relation)
		if err != nil {
			return false, err
		}
		for _, t := range tuples {
			if t.Subject.Type == subjectType && t.Subject.ID == subjectID && t.Subject.Relation == subjectRelation && c.conditionPasses(ctx, t, evalCtx) {
				return true, nil
			}
		}
	}

	// Step 2: type-wildcard direct hit.
	if subjectID != tuple.WildcardID && cfg.AcceptsWildcardSubjectType(subjectType) {
		t, found, err := c.findDirectTuple(ctx, objectType, objectID, relation, subjectType, tuple.WildcardID)
		if err != nil {
			return false, err
		}
		if found && c.conditionPasses(ctx, t, evalCtx) {
			return true, nil
		}
	}

	// Step 3: userset-subject membership.
	usersets, err := c.usersetTuples(ctx, objectType, objectID, relation)
	if err != nil {
		return false, err
	}
	var branches []branch
	for _, t := range usersets {
		t := t
		if !c.conditionPasses(ctx, t, evalCtx) {
			continue
		}
		branches = append(branches, func(ctx context.Context) (bool, error) {
			return c.check(ctx, depth+1, t.Subject.Type, t.Subject.ID, t.Subject.Relation, subjectType, subjectID, subjectRelation, visited, evalCtx)
		})
	}
	return anyTrue(ctx, branches)
}

// unionOfRewrites implements steps 5-7, OR'd together: implied-by
// union, tuple-to-userset, and intersection (when configured).
func (c *call) unionOfRewrites(ctx context.Context, depth int, objectType, objectID string, cfg schema.RelationConfig, subjectType, subjectID, subjectRelation string, visited *visitedSet, evalCtx map[string]any) (bool, error) {
	var branches []branch

	// Step 5: implied-by union.
	for _, sibling := range cfg.ImpliedBy {
		sibling := sibling
		branches = append(branches, func(ctx context.Context) (bool, error) {
			return c.check(ctx, depth+1, objectType, objectID, sibling, subjectType, subjectID, subjectRelation, visited, evalCtx)
		})
	}

	// Step 6: tuple-to-userset.
	for _, ttu := range cfg.TupleToUserset {
		ttu := ttu
		refs, err := c.tuplesetReferences(ctx, objectType, objectID, ttu.Tupleset, evalCtx)
		if err != nil {
			return false, err
		}
		for _, ref := range refs {
			ref := ref
			branches = append(branches, func(ctx context.Context) (bool, error) {
				return c.check(ctx, depth+1, ref.Type, ref.ID, ttu.ComputedUserset, subjectType, subjectID, subjectRelation, visited, evalCtx)
			})
		}
	}

	hit, err := anyTrue(ctx, branches)
	if err != nil {
		return false, err
	}
	if hit {
		return true, nil
	}

	// Step 7: intersection. Evaluated left-to-right, short-circuiting on
	// the first false operand, to keep condition-evaluation side effects
	// deterministic and reproducible.
	if len(cfg.Intersection) == 0 {
		return false, nil
	}
	return c.intersection(ctx, depth, objectType, objectID, cfg, subjectType, subjectID, subjectRelation, visited, evalCtx)
}

func (c *call) intersection(ctx context.Context, depth int, objectType, objectID string, cfg schema.RelationConfig, subjectType, subjectID, subjectRelation string, visited *visitedSet, evalCtx map[string]any) (bool, error) {
	for _, op := range cfg.Intersection {
		var ok bool
		var err error
		switch op.Kind {
		case schema.OperandDirect:
			// "direct" is steps 1-3 restricted to directly-assigned
			// tuples, which is exactly what directAndUsersetHit already
			// does -- including the type-wildcard hit and userset-subject
			// membership recursion, not just an exact-tuple lookup.
			ok, err = c.directAndUsersetHit(ctx, depth, objectType, objectID, cfg.Relation, subjectType, subjectID, subjectRelation, cfg, visited, evalCtx)
		case schema.OperandComputedUserset:
			ok, err = c.check(ctx, depth+1, objectType, objectID, op.ComputedUserset, subjectType, subjectID, subjectRelation, visited, evalCtx)
		case schema.OperandTupleToUserset:
			ok, err = c.ttuOperand(ctx, depth, objectType, objectID, op.TupleToUserset, subjectType, subjectID, subjectRelation, visited, evalCtx)
		default:
			err = fmt.Errorf("check: unknown intersection operand kind %v", op.Kind)
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil // short-circuit on first false
		}
	}
	return true, nil
}

func (c *call) ttuOperand(ctx context.Context, depth int, objectType, objectID string, ttu schema.TupleToUserset, subjectType, subjectID, subjectRelation string, visited *visitedSet, evalCtx map[string]any) (bool, error) {
	refs, err := c.tuplesetReferences(ctx, objectType, objectID, ttu.Tupleset, evalCtx)
	if err != nil {
		return false, err
	}
	var branches []branch
	for _, ref := range refs {
		ref := ref
		branches = append(branches, func(ctx context.Context) (bool, error) {
			return c.check(ctx, depth+1, ref.Type, ref.ID, ttu.ComputedUserset, subjectType, subjectID, subjectRelation, visited, evalCtx)
		})
	}
	return anyTrue(ctx, branches)
}

// applyExclusion is step 8: applied last, outermost, defeats every
// positive branch.
func (c *call) applyExclusion(ctx context.Context, depth int, cfg schema.RelationConfig, objectType, objectID, subjectType, subjectID, subjectRelation string, visited *visitedSet, evalCtx map[string]any, positive bool) (bool, error) {
	if !positive || cfg.ExcludedBy == "" {
		return positive, nil
	}
	excluded, err := c.check(ctx, depth+1, objectType, objectID, cfg.ExcludedBy, subjectType, subjectID, subjectRelation, visited, evalCtx)
	if err != nil {
		return false, err
	}
	if excluded {
		return false, nil
	}
	return true, nil
}

// tuplesetReferences enumerates the referenced objects reached by
// following direct tuples on the tupleset relation: each
// tuple's subject names the referenced object.
func (c *call) tuplesetReferences(ctx context.Context, objectType, objectID, tupleset string, evalCtx map[string]any) ([]tuple.ObjectRef, error) {
	tuples, err := c.tuplesByRelation(ctx, objectType, objectID, tupleset)
	if err != nil {
		return nil, err
	}
	var refs []tuple.ObjectRef
	for _, t := range tuples {
		if !c.conditionPasses(ctx, t, evalCtx) {
			continue
		}
		refs = append(refs, t.Subject.ObjectRef())
	}
	return refs, nil
}

func (c *call) conditionPasses(ctx context.Context, t tuple.Tuple, requestContext map[string]any) bool {
	if !t.HasCondition() {
		return true
	}
	def, ok, err := c.store.FindConditionDefinition(ctx, t.ConditionName)
	if err != nil {
		c.logger.Trace().Err(err).Str("condition", t.ConditionName).Msg("check: condition lookup error, dropping tuple")
		return false
	}
	if !ok {
		c.logger.Trace().Str("condition", t.ConditionName).Msg("check: condition not found, dropping tuple")
		return false
	}

	merged := mergeContext(t.ConditionContext, requestContext)
	result, err := c.eval.Evaluate(def, merged)
	if err != nil {
		c.logger.Trace().Err(err).Str("condition", t.ConditionName).Msg("check: condition evaluation error, dropping tuple")
		return false
	}
	return result
}

// mergeContext merges tuple-bound condition context with request context;
// request wins on key conflict.
func mergeContext(tupleContext, requestContext map[string]any) map[string]any {
	merged := make(map[string]any, len(tupleContext)+len(requestContext))
	for k, v := range tupleContext {
		merged[k] = v
	}
	for k, v := range requestContext {
		merged[k] = v
	}
	return merged
}

// findDirectTuple and the enumeration helpers below overlay the store with
// any request-scoped contextual tuples (Request.ContextualTuples), which
// exist only for the duration of one call and are never persisted.

func (c *call) findDirectTuple(ctx context.Context, objectType, objectID, relation, subjectType, subjectID string) (tuple.Tuple, bool, error) {
	for _, ct := range c.contextual {
		if ct.ObjectType == objectType && ct.ObjectID == objectID && ct.Relation == relation &&
			ct.SubjectType == subjectType && ct.SubjectID == subjectID && ct.SubjectRelation == "" {
			return contextualToTuple(ct), true, nil
		}
	}
	return c.store.FindDirectTuple(ctx, objectType, objectID, relation, subjectType, subjectID)
}

func (c *call) usersetTuples(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	out, err := c.store.FindUsersetTuples(ctx, objectType, objectID, relation)
	if err != nil {
		return nil, err
	}
	for _, ct := range c.contextual {
		if ct.ObjectType == objectType && ct.ObjectID == objectID && ct.Relation == relation && ct.SubjectRelation != "" {
			out = append(out, contextualToTuple(ct))
		}
	}
	return out, nil
}

func (c *call) tuplesByRelation(ctx context.Context, objectType, objectID, relation string) ([]tuple.Tuple, error) {
	out, err := c.store.FindTuplesByRelation(ctx, objectType, objectID, relation)
	if err != nil {
		return nil, err
	}
	for _, ct := range c.contextual {
		if ct.ObjectType == objectType && ct.ObjectID == objectID && ct.Relation == relation {
			out = append(out, contextualToTuple(ct))
		}
	}
	return out, nil
}

func contextualToTuple(ct ContextualTuple) tuple.Tuple {
	return tuple.Tuple{
		Object:           tuple.ObjectRef{Type: ct.ObjectType, ID: ct.ObjectID},
		Relation:         ct.Relation,
		Subject:          tuple.SubjectRef{Type: ct.SubjectType, ID: ct.SubjectID, Relation: ct.SubjectRelation},
		ConditionName:    ct.ConditionName,
		ConditionContext: ct.ConditionContext,
	}
}
