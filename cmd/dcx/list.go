package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/load"
	"github.com/datacampus/dcx/internal/logging"
	"github.com/datacampus/dcx/internal/warehouse"
)

var listFlags struct {
	Limit int
}

var listCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "Summarize loaded data grouped by tag columns",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVarP(&listFlags.Limit, "limit", "n", 50, "Max groups to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	tags := tagColumns(cols)
	if len(tags) == 0 {
		return listBasic(ctx, wh, qualified)
	}

	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = warehouse.Ident(t)
	}
	tagList := strings.Join(quoted, ", ")

	mostRecent := hasColumn(cols, "is_most_recent")
	currentCol := ""
	if mostRecent {
		currentCol = ", bool_or(is_most_recent) AS is_current"
	}

	sql := fmt.Sprintf(`
		SELECT %s,
			count(*) AS row_count,
			count(DISTINCT _source_file) AS file_count,
			min(_load_timestamp) AS first_load,
			max(_load_timestamp) AS last_load
			%s
		FROM %s
		GROUP BY %s
		ORDER BY last_load DESC
		LIMIT $1`,
		tagList, currentCol, qualified, tagList)

	rows, err := wh.Query(ctx, sql, listFlags.Limit)
	if err != nil {
		log.Error().Err(err).Msg("summary query failed")
		os.Exit(exitcode.LoadError)
	}
	defer rows.Close()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, tag := range tags {
		header = append(header, tag)
	}
	header = append(header, "Rows", "Files", "Last Load")
	if mostRecent {
		header = append(header, "Current")
	}
	t.AppendHeader(header)

	n := 0
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			log.Error().Err(err).Msg("scan failed")
			os.Exit(exitcode.LoadError)
		}
		row := table.Row{}
		for _, v := range vals[:len(tags)] {
			row = append(row, fmt.Sprint(v))
		}
		row = append(row, vals[len(tags)], vals[len(tags)+1], formatTimestamp(vals[len(tags)+3]))
		if mostRecent {
			current := ""
			if b, ok := vals[len(vals)-1].(bool); ok && b {
				current = "yes"
			}
			row = append(row, current)
		}
		t.AppendRow(row)
		n++
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("summary query failed")
		os.Exit(exitcode.LoadError)
	}
	if n == 0 {
		fmt.Printf("No data in %s\n", args[0])
		return nil
	}
	t.Render()
	return nil
}

func listBasic(ctx context.Context, wh *warehouse.Client, qualified string) error {
	rows, err := wh.Query(ctx, fmt.Sprintf(`
		SELECT count(*), count(DISTINCT _source_file),
			min(_load_timestamp), max(_load_timestamp)
		FROM %s`, qualified))
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		fmt.Printf("Rows:       %v\n", vals[0])
		fmt.Printf("Files:      %v\n", vals[1])
		fmt.Printf("First load: %s\n", formatTimestamp(vals[2]))
		fmt.Printf("Last load:  %s\n", formatTimestamp(vals[3]))
	}
	return rows.Err()
}

func formatTimestamp(v any) string {
	s := fmt.Sprint(v)
	if len(s) > 19 {
		s = s[:19]
	}
	return s
}
