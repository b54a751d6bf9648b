package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/load"
	"github.com/datacampus/dcx/internal/logging"
	"github.com/datacampus/dcx/internal/warehouse"
)

var deleteFlags struct {
	Tags  []string
	Force bool
	All   bool
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table>",
	Short: "Delete rows from a table by tag scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	f := deleteCmd.Flags()
	f.StringArrayVarP(&deleteFlags.Tags, "tag", "t", nil, "Filter by tag as key=value (repeatable)")
	f.BoolVarP(&deleteFlags.Force, "force", "f", false, "Skip confirmation prompt")
	f.BoolVar(&deleteFlags.All, "all", false, "Delete all rows (requires --force)")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	tags, err := parseTags(deleteFlags.Tags, nil)
	if err != nil {
		log.Error().Err(err).Msg("invalid tag")
		os.Exit(exitcode.UsageError)
	}
	if len(tags) == 0 && !deleteFlags.All {
		log.Error().Msg("must specify --tag or --all")
		os.Exit(exitcode.UsageError)
	}
	if deleteFlags.All && !deleteFlags.Force {
		log.Error().Msg("--all requires --force to prevent accidental deletion")
		os.Exit(exitcode.UsageError)
	}

	wh, conn := mustConnect(ctx, log)
	defer wh.Close()

	schema, tbl, err := load.ParseDest(args[0], conn.Schema)
	if err != nil {
		log.Error().Err(err).Msg("invalid table name")
		os.Exit(exitcode.UsageError)
	}
	qualified := warehouse.QualifiedIdent(schema, tbl)

	where := "TRUE"
	var params []any
	if len(tags) > 0 {
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		where = ""
		for i, k := range keys {
			if i > 0 {
				where += " AND "
			}
			params = append(params, tags[k])
			where += fmt.Sprintf("%s = $%d", warehouse.Ident(k), len(params))
		}
	}

	count, err := wh.Count(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", qualified, where), params...)
	if err != nil {
		log.Error().Err(err).Msg("count failed")
		os.Exit(exitcode.LoadError)
	}
	if count == 0 {
		fmt.Println("No matching rows found")
		return nil
	}

	fmt.Printf("Will delete %d rows from %s\n", count, args[0])
	if !deleteFlags.Force && !confirm("Proceed?", false) {
		fmt.Println("Cancelled")
		return nil
	}

	deleted, err := wh.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", qualified, where), params...)
	if err != nil {
		log.Error().Err(err).Msg("delete failed")
		os.Exit(exitcode.LoadError)
	}
	fmt.Printf("Deleted %d rows\n", deleted)
	return nil
}
