// Package doctor provides health checks for a relauth deployment: schema
// validity, migration state, and data health against a live store.
//
// Example usage:
//
//	d := doctor.New(db, st, "schema.fga")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/relauth/relauth/pkg/migrator"
	"github.com/relauth/relauth/pkg/parser"
	"github.com/relauth/relauth/pkg/schema"
	"github.com/relauth/relauth/pkg/store"
)

// Status represents the result of a health check.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	Category string
	Name     string
	Status   Status
	Message  string
	Details  string
	FixHint  string
}

// Report contains all health check results.
type Report struct {
	Checks   []CheckResult
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks against a schema file and a live store. db
// is optional: pass nil when st isn't backed by Postgres (the in-memory
// store has no migration state to report on).
type Doctor struct {
	db         *sql.DB
	st         store.Store
	schemaPath string

	registry *schema.Registry
}

// New creates a new Doctor instance.
func New(db *sql.DB, st store.Store, schemaPath string) *Doctor {
	return &Doctor{db: db, st: st, schemaPath: schemaPath}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkSchemaFile(report)
	if d.db != nil {
		if err := d.checkMigrationState(ctx, report); err != nil {
			return nil, fmt.Errorf("checking migration state: %w", err)
		}
	}
	if err := d.checkDataHealth(ctx, report); err != nil {
		return nil, fmt.Errorf("checking data health: %w", err)
	}

	return report, nil
}

// checkSchemaFile validates the schema file parses, builds a registry from
// it, and checks the relation graph for cycles.
func (d *Doctor) checkSchemaFile(report *Report) {
	relations, conditions, err := parser.ParseSchema(d.schemaPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Schema File",
			Name:     "valid",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Schema at %s has errors", d.schemaPath),
			Details:  err.Error(),
			FixHint:  "Fix the reported DSL error and re-run",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Schema File",
		Name:     "valid",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Schema is valid (%d relations, %d conditions)", len(relations), len(conditions)),
	})

	registry := schema.NewRegistry()
	for _, cfg := range relations {
		registry.UpsertRelationConfig(cfg)
	}
	for _, def := range conditions {
		registry.UpsertConditionDefinition(def)
	}
	d.registry = registry

	if err := d.checkRewriteTargets(registry, report); err != nil {
		return
	}

	cycles := schema.Lint(registry)
	if len(cycles) > 0 {
		var details []string
		for _, c := range cycles {
			details = append(details, c.String())
		}
		report.AddCheck(CheckResult{
			Category: "Schema File",
			Name:     "cycles",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Found %d cyclic relation reference(s)", len(cycles)),
			Details:  strings.Join(details, "\n"),
			FixHint:  "The evaluator bounds recursion depth, but a cycle usually indicates a typo in implied_by/computed_userset",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Schema File",
		Name:     "cycles",
		Status:   StatusPass,
		Message:  "No cyclic relation references detected",
	})
}

// checkRewriteTargets validates that every relation a RelationConfig refers
// to by name (ComputedUserset, ImpliedBy, ExcludedBy, the tupleset of each
// TupleToUserset, Intersection operands) is itself a defined relation on
// the same object type. The relation a tuple-to-userset resolves on the
// referenced object type is not checked. A missing target isn't a parse error -- the evaluator treats an
// absent RelationConfig as "this branch denies" -- but it's almost always a
// typo, so it's worth a dedicated warning distinct from the cycle check.
func (d *Doctor) checkRewriteTargets(registry *schema.Registry, report *Report) error {
	var missing []string
	for _, objectType := range registry.ObjectTypes() {
		defined := make(map[string]bool)
		for _, cfg := range registry.RelationConfigs(objectType) {
			defined[cfg.Relation] = true
		}
		for _, cfg := range registry.RelationConfigs(objectType) {
			for _, target := range rewriteTargets(cfg) {
				if !defined[target] {
					missing = append(missing, fmt.Sprintf("%s#%s -> %s#%s", objectType, cfg.Relation, objectType, target))
				}
			}
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		report.AddCheck(CheckResult{
			Category: "Schema File",
			Name:     "rewrite_targets",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d relation reference(s) point at an undefined relation", len(missing)),
			Details:  strings.Join(missing, "\n"),
			FixHint:  "Define the missing relation, or fix the typo -- an absent target always evaluates to deny",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "Schema File",
		Name:     "rewrite_targets",
		Status:   StatusPass,
		Message:  "Every relation reference resolves to a defined relation",
	})
	return nil
}

func rewriteTargets(cfg schema.RelationConfig) []string {
	if cfg.HasComputedUserset() {
		return []string{cfg.ComputedUserset}
	}
	var out []string
	out = append(out, cfg.ImpliedBy...)
	if cfg.ExcludedBy != "" {
		out = append(out, cfg.ExcludedBy)
	}
	for _, ttu := range cfg.TupleToUserset {
		out = append(out, ttu.Tupleset)
	}
	for _, op := range cfg.Intersection {
		switch op.Kind {
		case schema.OperandComputedUserset:
			out = append(out, op.ComputedUserset)
		case schema.OperandTupleToUserset:
			out = append(out, op.TupleToUserset.Tupleset)
		}
	}
	return out
}

// checkMigrationState reports which relauth tables exist in the database.
func (d *Doctor) checkMigrationState(ctx context.Context, report *Report) error {
	status, err := migrator.New(d.db).GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("getting migration status: %w", err)
	}

	missing := map[string]bool{
		"relauth_tuples":                !status.TuplesTableExists,
		"relauth_relation_configs":      !status.RelationConfigsTableExists,
		"relauth_condition_definitions": !status.ConditionDefsTableExists,
	}
	var missingNames []string
	for name, isMissing := range missing {
		if isMissing {
			missingNames = append(missingNames, name)
		}
	}

	if len(missingNames) > 0 {
		sort.Strings(missingNames)
		report.AddCheck(CheckResult{
			Category: "Migration State",
			Name:     "tables",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Missing tables: %s", strings.Join(missingNames, ", ")),
			FixHint:  "Run 'relauth migrate' to create them",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "Migration State",
		Name:     "tables",
		Status:   StatusPass,
		Message:  "All relauth tables present",
	})
	return nil
}

// checkDataHealth reports how many objects of each schema-declared type
// have at least one tuple, as a coarse signal that data has actually been
// loaded. The Store interface has no single "count everything" operation
// by design, so this samples
// ListCandidateObjectIDs per object type instead of a global count.
func (d *Doctor) checkDataHealth(ctx context.Context, report *Report) error {
	if d.registry == nil {
		return nil // schema didn't parse; already reported
	}

	objectTypes := d.registry.ObjectTypes()
	sort.Strings(objectTypes)

	total := 0
	var perType []string
	for _, objectType := range objectTypes {
		ids, err := d.st.ListCandidateObjectIDs(ctx, objectType)
		if err != nil {
			return fmt.Errorf("listing candidate objects for %s: %w", objectType, err)
		}
		total += len(ids)
		perType = append(perType, fmt.Sprintf("%s: %d", objectType, len(ids)))
	}

	if total == 0 {
		report.AddCheck(CheckResult{
			Category: "Data Health",
			Name:     "data",
			Status:   StatusWarn,
			Message:  "No tuples found for any schema-declared object type",
			Details:  "No authorization data to evaluate permissions against",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "Data Health",
		Name:     "data",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Found tuples for %d object(s) across %d type(s)", total, len(objectTypes)),
		Details:  strings.Join(perType, "\n"),
	})
	return nil
}
