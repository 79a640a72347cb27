package relauth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relauth/relauth/pkg/check"
	"github.com/relauth/relauth/pkg/condition"
	"github.com/relauth/relauth/pkg/list"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store"
	"github.com/relauth/relauth/pkg/tuple"
)

// Client is the single entry point applications hold: a Store paired with
// the checker that evaluates against it. Construct one with New and reuse
// it for the process lifetime -- both the Store and the Checker are safe
// for concurrent use.
type Client struct {
	store   store.Store
	checker *check.Checker
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	eval   *condition.Evaluator
	logger zerolog.Logger
}

// WithConditionCache installs a TTL-bounded compiled-condition cache, so
// repeated evaluations of the same named condition skip CEL recompilation.
func WithConditionCache(c *condition.Cache) ClientOption {
	return func(cfg *clientConfig) { cfg.eval = condition.NewEvaluator(condition.WithCache(c)) }
}

// WithLogger overrides the zerolog.Logger used for evaluator tracing.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(cfg *clientConfig) { cfg.logger = l }
}

// New returns a Client backed by s.
func New(s store.Store, opts ...ClientOption) *Client {
	cfg := &clientConfig{eval: condition.NewEvaluator(), logger: log.Logger}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		store:   s,
		checker: check.New(s, check.WithConditionEvaluator(cfg.eval), check.WithLogger(cfg.logger)),
	}
}

// checkSettings accumulates CheckOption values. Contextual tuples need a
// façade-to-pkg/check type conversion, so they can't live directly on
// check.Options the way MaxDepth and DecisionOverride do.
type checkSettings struct {
	options    check.Options
	contextual []ContextualTuple
}

// CheckOption tunes a single Check call.
type CheckOption func(*checkSettings)

// WithMaxDepth overrides the default recursion bound (25) for one call.
func WithMaxDepth(n int) CheckOption {
	return func(s *checkSettings) { s.options.MaxDepth = n }
}

// WithDecisionOverride forces Check to return decision without running the
// evaluator at all. This is an explicit opt-in escape hatch -- useful for
// staged rollouts or shadow-mode deployments that want to record what the
// evaluator *would* have said while a caller-supplied decision actually
// gates access -- and is never applied implicitly.
func WithDecisionOverride(decision bool) CheckOption {
	return func(s *checkSettings) { s.options.DecisionOverride = &decision }
}

// WithContextualTuples attaches request-scoped tuples that exist only for
// the duration of this Check call and are never persisted.
func WithContextualTuples(tuples ...ContextualTuple) CheckOption {
	return func(s *checkSettings) { s.contextual = append(s.contextual, tuples...) }
}

// Check answers "does subject hold relation on object"
func (c *Client) Check(ctx context.Context, object ObjectLike, relation RelationLike, subject SubjectLike, evalCtx map[string]any, opts ...CheckOption) (bool, error) {
	return c.checkWithContextual(ctx, object, relation, subject, "", evalCtx, opts...)
}

// CheckUserset answers "does every member of subject's userset hold
// relation on object" -- the userset-subject form of check.
func (c *Client) CheckUserset(ctx context.Context, object ObjectLike, relation RelationLike, subject Userset, evalCtx map[string]any, opts ...CheckOption) (bool, error) {
	return c.checkWithContextual(ctx, object, relation, subject.Object, subject.Relation, evalCtx, opts...)
}

func (c *Client) checkWithContextual(ctx context.Context, object ObjectLike, relation RelationLike, subject SubjectLike, subjectRelation Relation, evalCtx map[string]any, opts ...CheckOption) (bool, error) {
	o := object.FGAObject()
	s := subject.FGASubject()

	settings := &checkSettings{options: check.DefaultOptions()}
	for _, opt := range opts {
		opt(settings)
	}

	req := check.Request{
		ObjectType:       o.Type,
		ObjectID:         o.ID,
		Relation:         string(relation.FGARelation()),
		SubjectType:      s.Type,
		SubjectID:        s.ID,
		SubjectRelation:  string(subjectRelation),
		Context:          evalCtx,
		ContextualTuples: toCheckContextualTuples(settings.contextual),
	}
	return c.checker.Check(ctx, req, settings.options)
}

func toCheckContextualTuples(cts []ContextualTuple) []check.ContextualTuple {
	out := make([]check.ContextualTuple, 0, len(cts))
	for _, ct := range cts {
		out = append(out, check.ContextualTuple{
			ObjectType:       ct.Object.Type,
			ObjectID:         ct.Object.ID,
			Relation:         string(ct.Relation),
			SubjectType:      ct.SubjectType,
			SubjectID:        ct.SubjectID,
			SubjectRelation:  ct.SubjectRelation,
			ConditionName:    ct.ConditionName,
			ConditionContext: ct.ConditionContext,
		})
	}
	return out
}

// AddTuple writes a plain-subject tuple, enforcing write-time
// validation: the relation must exist, and the subject type must be among
// the relation's directly_assignable_types.
func (c *Client) AddTuple(ctx context.Context, object ObjectLike, relation RelationLike, subject SubjectLike) error {
	o := object.FGAObject()
	r := string(relation.FGARelation())
	s := subject.FGASubject()

	cfg, err := c.requireRelationConfig(ctx, o.Type, r)
	if err != nil {
		return err
	}
	if !cfg.AcceptsDirectSubjectType(s.Type) {
		return &InvalidSubjectTypeError{SubjectType: s.Type, Allowed: cfg.AllowedSubjectTypes()}
	}
	return c.store.InsertTuple(ctx, tuple.Tuple{
		Object:   tuple.ObjectRef{Type: o.Type, ID: o.ID},
		Relation: r,
		Subject:  tuple.SubjectRef{Type: s.Type, ID: s.ID},
	})
}

// AddUsersetTuple writes a userset-subject tuple ("object#relation@subject's
// userset"), enforcing that the relation sets allows_userset_subjects.
func (c *Client) AddUsersetTuple(ctx context.Context, object ObjectLike, relation RelationLike, subject Userset) error {
	o := object.FGAObject()
	r := string(relation.FGARelation())

	cfg, err := c.requireRelationConfig(ctx, o.Type, r)
	if err != nil {
		return err
	}
	if !cfg.AllowsUsersetSubjects {
		return fmt.Errorf("%w: %s#%s does not allow userset subjects", ErrUsersetNotAllowed, o.Type, r)
	}
	return c.store.InsertTuple(ctx, tuple.Tuple{
		Object:   tuple.ObjectRef{Type: o.Type, ID: o.ID},
		Relation: r,
		Subject:  tuple.SubjectRef{Type: subject.Object.Type, ID: subject.Object.ID, Relation: string(subject.Relation)},
	})
}

// AddConditionalTuple writes a tuple gated by a named condition, evaluated
// against the merged tuple/request context at check time.
func (c *Client) AddConditionalTuple(ctx context.Context, object ObjectLike, relation RelationLike, subject SubjectLike, conditionName string, conditionContext map[string]any) error {
	o := object.FGAObject()
	r := string(relation.FGARelation())
	s := subject.FGASubject()

	cfg, err := c.requireRelationConfig(ctx, o.Type, r)
	if err != nil {
		return err
	}
	if !cfg.AcceptsDirectSubjectType(s.Type) {
		return &InvalidSubjectTypeError{SubjectType: s.Type, Allowed: cfg.AllowedSubjectTypes()}
	}
	return c.store.InsertTuple(ctx, tuple.Tuple{
		Object:           tuple.ObjectRef{Type: o.Type, ID: o.ID},
		Relation:         r,
		Subject:          tuple.SubjectRef{Type: s.Type, ID: s.ID},
		ConditionName:    conditionName,
		ConditionContext: conditionContext,
	})
}

// RemoveTuple deletes the tuple matching the given plain-subject identity,
// reporting whether one existed.
func (c *Client) RemoveTuple(ctx context.Context, object ObjectLike, relation RelationLike, subject SubjectLike) (bool, error) {
	o := object.FGAObject()
	s := subject.FGASubject()
	return c.store.DeleteTuple(ctx, tuple.Identity{
		ObjectType:  o.Type,
		ObjectID:    o.ID,
		Relation:    string(relation.FGARelation()),
		SubjectType: s.Type,
		SubjectID:   s.ID,
	})
}

// RemoveUsersetTuple deletes the tuple matching the given userset-subject
// identity, reporting whether one existed.
func (c *Client) RemoveUsersetTuple(ctx context.Context, object ObjectLike, relation RelationLike, subject Userset) (bool, error) {
	o := object.FGAObject()
	return c.store.DeleteTuple(ctx, tuple.Identity{
		ObjectType:      o.Type,
		ObjectID:        o.ID,
		Relation:        string(relation.FGARelation()),
		SubjectType:     subject.Object.Type,
		SubjectID:       subject.Object.ID,
		SubjectRelation: string(subject.Relation),
	})
}

func (c *Client) requireRelationConfig(ctx context.Context, objectType, relation string) (schema.RelationConfig, error) {
	cfg, ok, err := c.store.FindRelationConfig(ctx, objectType, relation)
	if err != nil {
		return schema.RelationConfig{}, fmt.Errorf("relauth: loading relation config %s#%s: %w", objectType, relation, err)
	}
	if !ok {
		return schema.RelationConfig{}, &RelationConfigNotFoundError{ObjectType: objectType, Relation: relation}
	}
	return cfg, nil
}

// WriteRelationConfig upserts a relation's schema definition.
func (c *Client) WriteRelationConfig(ctx context.Context, cfg schema.RelationConfig) error {
	return c.store.UpsertRelationConfig(ctx, cfg)
}

// DeleteRelationConfig removes a relation's schema definition, reporting
// whether one existed.
func (c *Client) DeleteRelationConfig(ctx context.Context, objectType, relation string) (bool, error) {
	return c.store.DeleteRelationConfig(ctx, objectType, relation)
}

// WriteConditionDefinition upserts a named condition definition.
func (c *Client) WriteConditionDefinition(ctx context.Context, def schema.ConditionDefinition) error {
	return c.store.UpsertConditionDefinition(ctx, def)
}

// DeleteConditionDefinition removes a named condition definition, reporting
// whether one existed.
func (c *Client) DeleteConditionDefinition(ctx context.Context, name string) (bool, error) {
	return c.store.DeleteConditionDefinition(ctx, name)
}

// ListObjects returns the object ids of objectType that subject holds
// relation on
func (c *Client) ListObjects(ctx context.Context, objectType string, relation RelationLike, subject SubjectLike, opts ...CheckOption) ([]string, error) {
	s := subject.FGASubject()
	settings := &checkSettings{options: check.DefaultOptions()}
	for _, opt := range opts {
		opt(settings)
	}
	return list.Objects(ctx, c.store, c.checker, objectType, string(relation.FGARelation()), s.Type, s.ID, settings.options)
}

// ListSubjects returns the direct subjects of (object, relation), without
// expanding rewrites.
func (c *Client) ListSubjects(ctx context.Context, object ObjectLike, relation RelationLike) ([]tuple.SubjectRef, error) {
	o := object.FGAObject()
	return list.Subjects(ctx, c.store, o.Type, o.ID, string(relation.FGARelation()))
}
