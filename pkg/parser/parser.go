// Package parser converts OpenFGA DSL (.fga) schema text into relauth's
// own RelationConfig/ConditionDefinition records. It wraps the official
// OpenFGA language parser so the rest of the module never has to deal with
// the DSL grammar or the protobuf authorization-model shape directly.
//
// # Basic Usage
//
// Parse a schema file:
//
//	relations, conditions, err := parser.ParseSchema("schema.fga")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse schema from a string:
//
//	relations, conditions, err := parser.ParseSchemaString(schemaContent)
//
// # Simplified intersection model
//
// relauth's RelationConfig.Intersection is a flat AND list, evaluated
// left-to-right with short-circuit (see pkg/check). It has no general
// distributive expansion for a union nested inside an intersection
// ("a and (b or c)"): such a rewrite would need to become two alternative
// RelationConfigs, which the evaluator has no way to express for a single
// (object_type, relation) key. Schemas that need that shape should be
// rewritten at the source to push the union out of the intersection
// (define two relations and imply both from a third). ParseSchemaString
// rejects the construct instead of silently guessing at an expansion.
//
// # Dependency Isolation
//
// This is the only relauth package that imports the OpenFGA language
// parser and protobuf types. Everything downstream consumes pkg/schema
// types, which have no external dependencies.
package parser

import (
	"errors"
	"fmt"
	"os"
	"sort"

	openfgav1 "github.com/openfga/api/proto/openfga/v1"
	"github.com/openfga/language/pkg/go/transformer"

	"github.com/relauth/relauth/pkg/schema"
)

// ErrInvalidSchema wraps every error produced while parsing or converting a
// schema, so callers can distinguish "bad schema" from I/O failures with
// errors.Is.
var ErrInvalidSchema = errors.New("parser: invalid schema")

// ParseSchema reads an OpenFGA .fga file and returns its relation
// configuration and condition definitions.
func ParseSchema(path string) ([]schema.RelationConfig, []schema.ConditionDefinition, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is from trusted source
	if err != nil {
		return nil, nil, fmt.Errorf("parser: reading schema file: %w", err)
	}
	return ParseSchemaString(string(content))
}

// ParseSchemaString parses OpenFGA DSL content into relauth's relation
// configuration and condition definitions.
func ParseSchemaString(content string) ([]schema.RelationConfig, []schema.ConditionDefinition, error) {
	model, err := transformer.TransformDSLToProto(content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return ConvertProtoModel(model)
}

// ConvertProtoModel converts an OpenFGA protobuf AuthorizationModel
// directly, for callers that already have a model (the OpenFGA
// conformance-test adapter, for instance) rather than DSL text.
func ConvertProtoModel(model *openfgav1.AuthorizationModel) ([]schema.RelationConfig, []schema.ConditionDefinition, error) {
	relations, err := convertTypeDefinitions(model)
	if err != nil {
		return nil, nil, err
	}
	conditions, err := convertConditions(model)
	if err != nil {
		return nil, nil, err
	}
	return relations, conditions, nil
}

func convertTypeDefinitions(model *openfgav1.AuthorizationModel) ([]schema.RelationConfig, error) {
	typeDefs := model.GetTypeDefinitions()
	var out []schema.RelationConfig

	for _, td := range typeDefs {
		objectType := td.GetType()
		directTypeRefs := directlyRelatedTypes(td)

		relMap := td.GetRelations()
		relNames := make([]string, 0, len(relMap))
		for relName := range relMap {
			relNames = append(relNames, relName)
		}
		sort.Strings(relNames)

		for _, relName := range relNames {
			cfg, err := convertRelation(objectType, relName, relMap[relName], directTypeRefs[relName])
			if err != nil {
				return nil, err
			}
			out = append(out, cfg)
		}
	}

	return out, nil
}

// directlyRelatedTypes extracts, per relation, which subject shapes a direct
// tuple may carry: a plain type, a wildcard ("type:*"), or a userset
// reference ("type#relation").
func directlyRelatedTypes(td *openfgav1.TypeDefinition) map[string][]schema.SubjectTypeRef {
	out := make(map[string][]schema.SubjectTypeRef)
	meta := td.GetMetadata()
	if meta == nil {
		return out
	}

	relMetaMap := meta.GetRelations()
	relNames := make([]string, 0, len(relMetaMap))
	for relName := range relMetaMap {
		relNames = append(relNames, relName)
	}
	sort.Strings(relNames)

	for _, relName := range relNames {
		for _, t := range relMetaMap[relName].GetDirectlyRelatedUserTypes() {
			ref := schema.SubjectTypeRef{Type: t.GetType()}
			switch v := t.GetRelationOrWildcard().(type) {
			case *openfgav1.RelationReference_Wildcard:
				ref.Wildcard = true
			case *openfgav1.RelationReference_Relation:
				ref.Relation = v.Relation
			}
			out[relName] = append(out[relName], ref)
		}
	}
	return out
}

// convertRelation converts one relation's rewrite rule into a RelationConfig.
func convertRelation(objectType, name string, rel *openfgav1.Userset, subjectTypeRefs []schema.SubjectTypeRef) (schema.RelationConfig, error) {
	cfg := schema.RelationConfig{
		ObjectType:              objectType,
		Relation:                name,
		DirectlyAssignableTypes: subjectTypeRefs,
		AllowsUsersetSubjects:   allowsUsersetSubjects(subjectTypeRefs),
	}

	if err := applyUserset(rel, &cfg); err != nil {
		return schema.RelationConfig{}, fmt.Errorf("%w: relation %s.%s: %v", ErrInvalidSchema, objectType, name, err)
	}

	return cfg, nil
}

func allowsUsersetSubjects(refs []schema.SubjectTypeRef) bool {
	for _, ref := range refs {
		if ref.Relation != "" {
			return true
		}
	}
	return false
}

// applyUserset dispatches on the top-level rewrite node of a relation
// definition, filling in cfg's composition fields.
func applyUserset(us *openfgav1.Userset, cfg *schema.RelationConfig) error {
	if us == nil {
		return nil
	}

	switch v := us.Userset.(type) {
	case *openfgav1.Userset_This:
		// Direct assignment only; DirectlyAssignableTypes already covers it.

	case *openfgav1.Userset_ComputedUserset:
		cfg.ComputedUserset = v.ComputedUserset.GetRelation()

	case *openfgav1.Userset_TupleToUserset:
		cfg.TupleToUserset = append(cfg.TupleToUserset, schema.TupleToUserset{
			Tupleset:        v.TupleToUserset.GetTupleset().GetRelation(),
			ComputedUserset: v.TupleToUserset.GetComputedUserset().GetRelation(),
		})

	case *openfgav1.Userset_Union:
		return applyUnion(v.Union, cfg)

	case *openfgav1.Userset_Intersection:
		operands, err := convertIntersection(v.Intersection)
		if err != nil {
			return err
		}
		cfg.Intersection = operands

	case *openfgav1.Userset_Difference:
		base := v.Difference.GetBase()
		if cu, ok := base.GetUserset().(*openfgav1.Userset_ComputedUserset); ok {
			// A bare relation as the base joins ImpliedBy: set as
			// ComputedUserset it would make ExcludedBy inert.
			cfg.ImpliedBy = append(cfg.ImpliedBy, cu.ComputedUserset.GetRelation())
		} else if err := applyUserset(base, cfg); err != nil {
			return err
		}
		excludedBy, err := convertExclusion(v.Difference.GetSubtract())
		if err != nil {
			return err
		}
		cfg.ExcludedBy = excludedBy

	default:
		return fmt.Errorf("unsupported rewrite node %T", us.Userset)
	}

	return nil
}

// applyUnion flattens a union's children into cfg.ImpliedBy and
// cfg.TupleToUserset. Nested unions are flattened (union is associative);
// an intersection or difference nested inside a union would need
// distributive expansion into multiple RelationConfigs, which the
// simplified model doesn't support.
func applyUnion(union *openfgav1.Usersets, cfg *schema.RelationConfig) error {
	for _, child := range union.GetChild() {
		switch v := child.Userset.(type) {
		case *openfgav1.Userset_This:
			// already covered by DirectlyAssignableTypes

		case *openfgav1.Userset_ComputedUserset:
			cfg.ImpliedBy = append(cfg.ImpliedBy, v.ComputedUserset.GetRelation())

		case *openfgav1.Userset_TupleToUserset:
			cfg.TupleToUserset = append(cfg.TupleToUserset, schema.TupleToUserset{
				Tupleset:        v.TupleToUserset.GetTupleset().GetRelation(),
				ComputedUserset: v.TupleToUserset.GetComputedUserset().GetRelation(),
			})

		case *openfgav1.Userset_Union:
			if err := applyUnion(v.Union, cfg); err != nil {
				return err
			}

		default:
			return fmt.Errorf("union member %T requires distributive expansion, not supported", child.Userset)
		}
	}
	return nil
}

// convertIntersection converts an intersection's children into a flat AND
// list of operands. Nested unions or intersections are rejected rather
// than expanded, per the package doc's simplified-model note.
func convertIntersection(intersection *openfgav1.Usersets) ([]schema.IntersectionOperand, error) {
	operands := make([]schema.IntersectionOperand, 0, len(intersection.GetChild()))
	for _, child := range intersection.GetChild() {
		switch v := child.Userset.(type) {
		case *openfgav1.Userset_This:
			operands = append(operands, schema.IntersectionOperand{Kind: schema.OperandDirect})

		case *openfgav1.Userset_ComputedUserset:
			operands = append(operands, schema.IntersectionOperand{
				Kind:            schema.OperandComputedUserset,
				ComputedUserset: v.ComputedUserset.GetRelation(),
			})

		case *openfgav1.Userset_TupleToUserset:
			operands = append(operands, schema.IntersectionOperand{
				Kind: schema.OperandTupleToUserset,
				TupleToUserset: schema.TupleToUserset{
					Tupleset:        v.TupleToUserset.GetTupleset().GetRelation(),
					ComputedUserset: v.TupleToUserset.GetComputedUserset().GetRelation(),
				},
			})

		default:
			return nil, fmt.Errorf("intersection member %T requires distributive expansion, not supported", child.Userset)
		}
	}
	return operands, nil
}

// convertExclusion converts a difference's subtract side into the single
// sibling relation name RelationConfig.ExcludedBy can hold. A union or
// further difference on the subtract side would need either multiple
// excluded relations or the same distributive expansion intersections
// need, so it's rejected rather than guessed at.
func convertExclusion(subtract *openfgav1.Userset) (string, error) {
	if subtract == nil {
		return "", nil
	}
	computed, ok := subtract.Userset.(*openfgav1.Userset_ComputedUserset)
	if !ok {
		return "", fmt.Errorf("exclusion of %T requires multiple excluded relations, not supported", subtract.Userset)
	}
	return computed.ComputedUserset.GetRelation(), nil
}

// convertConditions converts the model's named CEL condition declarations
// into relauth's ConditionDefinition records.
func convertConditions(model *openfgav1.AuthorizationModel) ([]schema.ConditionDefinition, error) {
	conds := model.GetConditions()
	names := make([]string, 0, len(conds))
	for name := range conds {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]schema.ConditionDefinition, 0, len(names))
	for _, name := range names {
		c := conds[name]
		params := make(map[string]schema.ParamType, len(c.GetParameters()))
		for paramName, ref := range c.GetParameters() {
			pt, err := convertParamType(ref.GetTypeName())
			if err != nil {
				return nil, fmt.Errorf("%w: condition %s parameter %s: %v", ErrInvalidSchema, name, paramName, err)
			}
			params[paramName] = pt
		}
		out = append(out, schema.ConditionDefinition{
			Name:       c.GetName(),
			Parameters: params,
			Expression: c.GetExpression(),
		})
	}
	return out, nil
}

func convertParamType(t openfgav1.ConditionParamTypeRef_TypeName) (schema.ParamType, error) {
	switch t {
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_BOOL:
		return schema.ParamBool, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_STRING:
		return schema.ParamString, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_INT:
		return schema.ParamInt, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_DOUBLE:
		return schema.ParamDouble, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_TIMESTAMP:
		return schema.ParamTimestamp, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_DURATION:
		return schema.ParamDuration, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_LIST:
		return schema.ParamList, nil
	case openfgav1.ConditionParamTypeRef_TYPE_NAME_MAP:
		return schema.ParamMap, nil
	default:
		return 0, fmt.Errorf("unsupported condition parameter type %v", t)
	}
}
