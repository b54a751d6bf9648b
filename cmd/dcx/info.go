package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/load"
	"github.com/datacampus/dcx/internal/logging"
	"github.com/datacampus/dcx/internal/warehouse"
)

var infoCmd = &cobra.Command{
	Use:   "info <table>",
	Short: "Show table layout and load statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	wh, conn := mustConnect(ctx, log)
	defer wh.Close()

	schema, tbl, err := load.ParseDest(args[0], conn.Schema)
	if err != nil {
		log.Error().Err(err).Msg("invalid table name")
		os.Exit(exitcode.UsageError)
	}
	qualified := warehouse.QualifiedIdent(schema, tbl)

	cols, err := wh.Columns(ctx, schema, tbl)
	if err != nil {
		log.Error().Err(err).Msg("failed to describe table")
		os.Exit(exitcode.LoadError)
	}
	if len(cols) == 0 {
		log.Error().Str("table", args[0]).Msg("table not found")
		os.Exit(exitcode.UsageError)
	}

	fmt.Printf("Schema: %s.%s\n\n", schema, tbl)
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Default"})
	for _, c := range cols {
		nullable := ""
		if c.Nullable {
			nullable = "yes"
		}
		t.AppendRow(table.Row{c.Name, c.Type, nullable, c.Default})
	}
	t.Render()

	total, err := wh.Count(ctx, "SELECT count(*) FROM "+qualified)
	if err != nil {
		log.Error().Err(err).Msg("count failed")
		os.Exit(exitcode.LoadError)
	}
	fmt.Printf("\nTotal rows: %d\n", total)

	if hasColumn(cols, "_source_file") {
		if files, err := wh.Count(ctx, "SELECT count(DISTINCT _source_file) FROM "+qualified); err == nil {
			fmt.Printf("Distinct files: %d\n", files)
		}
	}

	if hasColumn(cols, "_load_timestamp") {
		printLoadRange(ctx, wh, qualified)
	}

	if hasColumn(cols, "is_most_recent") {
		printMostRecent(ctx, wh, qualified)
	}

	if tags := tagColumns(cols); len(tags) > 0 {
		fmt.Println("\nTag columns:")
		for _, tag := range tags {
			printTagSample(ctx, wh, qualified, tag)
		}
	}
	return nil
}

func printLoadRange(ctx context.Context, wh *warehouse.Client, qualified string) {
	rows, err := wh.Query(ctx, fmt.Sprintf(
		"SELECT min(_load_timestamp), max(_load_timestamp) FROM %s", qualified))
	if err != nil {
		return
	}
	defer rows.Close()
	if rows.Next() {
		if vals, err := rows.Values(); err == nil && vals[0] != nil {
			fmt.Printf("First load: %s\n", formatTimestamp(vals[0]))
			fmt.Printf("Last load:  %s\n", formatTimestamp(vals[1]))
		}
	}
}

func printMostRecent(ctx context.Context, wh *warehouse.Client, qualified string) {
	rows, err := wh.Query(ctx, fmt.Sprintf(
		"SELECT is_most_recent, count(*) FROM %s GROUP BY is_most_recent", qualified))
	if err != nil {
		return
	}
	defer rows.Close()
	fmt.Println("\nMost recent tracking:")
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return
		}
		label := "historical"
		if b, ok := vals[0].(bool); ok && b {
			label = "current"
		}
		fmt.Printf("  %s: %v rows\n", label, vals[1])
	}
}

func printTagSample(ctx context.Context, wh *warehouse.Client, qualified, tag string) {
	rows, err := wh.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s LIMIT 10", warehouse.Ident(tag), qualified))
	if err != nil {
		return
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		if vals, err := rows.Values(); err == nil {
			values = append(values, fmt.Sprint(vals[0]))
		}
	}
	fmt.Printf("  %s: %v\n", tag, values)
}
