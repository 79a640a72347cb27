package main

import (
	"fmt"

	"github.com/spf13/cobra"

	relauth "github.com/relauth/relauth"
	"github.com/relauth/relauth/internal/cli"
)

var tupleSubjectRelation string

var tupleCmd = &cobra.Command{
	Use:   "tuple",
	Short: "Write and delete relationship tuples directly against the configured store",
}

var tupleWriteCmd = &cobra.Command{
	Use:   "write <object> <relation> <subject>",
	Short: "Write a tuple",
	Long: `write adds a tuple to the store.

object and subject are given in "type:id" form. Pass --subject-relation to
write a userset tuple ("every member of group:eng's member relation holds
viewer on document:roadmap") instead of a concrete subject.

Example:
  relauth tuple write document:roadmap viewer user:anna`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		schemaPath := resolveString(schemaFlag, cfg.Schema)

		object, relation, subject, err := parseTupleArgs(args)
		if err != nil {
			return cli.ConfigError("parsing tuple arguments", err)
		}

		st, db, err := openStore(ctx, schemaPath)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		client := relauth.New(st)

		if tupleSubjectRelation != "" {
			err = client.AddUsersetTuple(ctx, object, relation,
				relauth.Userset{Object: subject, Relation: relauth.Relation(tupleSubjectRelation)})
		} else {
			err = client.AddTuple(ctx, object, relation, subject)
		}
		if err != nil {
			return fmt.Errorf("writing tuple: %w", err)
		}

		fmt.Println("written")
		return nil
	},
}

var tupleDeleteCmd = &cobra.Command{
	Use:   "delete <object> <relation> <subject>",
	Short: "Delete a tuple",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		schemaPath := resolveString(schemaFlag, cfg.Schema)

		object, relation, subject, err := parseTupleArgs(args)
		if err != nil {
			return cli.ConfigError("parsing tuple arguments", err)
		}

		st, db, err := openStore(ctx, schemaPath)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		client := relauth.New(st)

		var existed bool
		if tupleSubjectRelation != "" {
			existed, err = client.RemoveUsersetTuple(ctx, object, relation,
				relauth.Userset{Object: subject, Relation: relauth.Relation(tupleSubjectRelation)})
		} else {
			existed, err = client.RemoveTuple(ctx, object, relation, subject)
		}
		if err != nil {
			return fmt.Errorf("deleting tuple: %w", err)
		}

		if existed {
			fmt.Println("deleted")
		} else {
			fmt.Println("no such tuple")
		}
		return nil
	},
}

func init() {
	tupleCmd.PersistentFlags().StringVar(&schemaFlag, "schema", "", "path to schema file (default: config's schema path)")
	tupleCmd.PersistentFlags().StringVar(&tupleSubjectRelation, "subject-relation", "", "treat subject as a userset: every member of subject's named relation")
	tupleCmd.AddCommand(tupleWriteCmd, tupleDeleteCmd)
}

func parseTupleArgs(args []string) (object relauth.Object, relation relauth.Relation, subject relauth.Object, err error) {
	object, err = parseObjectRef(args[0])
	if err != nil {
		return
	}
	relation = relauth.Relation(args[1])
	subject, err = parseObjectRef(args[2])
	return
}
