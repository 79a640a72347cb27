package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	relauth "github.com/relauth/relauth"
	"github.com/relauth/relauth/internal/cli"
)

var (
	checkSubjectRelation string
	checkMaxDepth        int
)

var checkCmd = &cobra.Command{
	Use:   "check <object> <relation> <subject>",
	Short: "Evaluate whether subject holds relation on object",
	Long: `check evaluates a single authorization decision.

object and subject are given in "type:id" form, e.g. "document:roadmap".
Pass --subject-relation to check a userset subject ("every member of
group:eng's member relation") instead of a concrete one.

Examples:
  relauth check document:roadmap viewer user:anna
  relauth check document:roadmap viewer group:eng --subject-relation=member`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		schemaPath := resolveString(schemaFlag, cfg.Schema)

		object, err := parseObjectRef(args[0])
		if err != nil {
			return cli.ConfigError("parsing object argument", err)
		}
		relation := relauth.Relation(args[1])
		subject, err := parseObjectRef(args[2])
		if err != nil {
			return cli.ConfigError("parsing subject argument", err)
		}

		st, db, err := openStore(ctx, schemaPath)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		client := relauth.New(st)

		var opts []relauth.CheckOption
		maxDepth := checkMaxDepth
		if maxDepth == 0 {
			maxDepth = cfg.Check.MaxDepth
		}
		if maxDepth > 0 {
			opts = append(opts, relauth.WithMaxDepth(maxDepth))
		}

		var allowed bool
		if checkSubjectRelation != "" {
			allowed, err = client.CheckUserset(ctx, object, relation,
				relauth.Userset{Object: subject, Relation: relauth.Relation(checkSubjectRelation)}, nil, opts...)
		} else {
			allowed, err = client.Check(ctx, object, relation, subject, nil, opts...)
		}
		if err != nil {
			return fmt.Errorf("evaluating check: %w", err)
		}

		if allowed {
			fmt.Println("allowed")
			return nil
		}
		fmt.Println("denied")
		os.Exit(1)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&schemaFlag, "schema", "", "path to schema file (default: config's schema path)")
	checkCmd.Flags().StringVar(&checkSubjectRelation, "subject-relation", "", "treat subject as a userset: every member of subject's named relation")
	checkCmd.Flags().IntVar(&checkMaxDepth, "max-depth", 0, "override the recursion bound for this check (default: config's check.max_depth)")
}

// parseObjectRef parses a "type:id" string into a relauth.Object.
func parseObjectRef(s string) (relauth.Object, error) {
	t, id, ok := strings.Cut(s, ":")
	if !ok || t == "" || id == "" {
		return relauth.Object{}, fmt.Errorf("expected \"type:id\", got %q", s)
	}
	return relauth.Object{Type: t, ID: id}, nil
}
