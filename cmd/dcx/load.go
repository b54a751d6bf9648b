package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/config"
	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/format"
	"github.com/datacampus/dcx/internal/load"
	"github.com/datacampus/dcx/internal/logging"
	"github.com/datacampus/dcx/internal/warehouse"
)

var loadFlags struct {
	Dest         string
	Profile      string
	Tags         []string
	Strategy     string
	Format       string
	SkipHeader   int
	CreateTable  bool
	CreateSchema bool
	Grants       []string
	MostRecent   bool
	Expand       bool
	Sanitize     bool
	Audit        bool
	Include      []string
	DryRun       bool
}

var loadCmd = &cobra.Command{
	Use:   "load <source>",
	Short: "Load a file, folder, or zip into a warehouse table",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVarP(&loadFlags.Dest, "dest", "d", "", "Destination table (bare name or schema.table)")
	f.StringVarP(&loadFlags.Profile, "profile", "p", "", "Load profile name from config")
	f.StringArrayVarP(&loadFlags.Tags, "tag", "t", nil, "Metadata tag as key=value (repeatable)")
	f.StringVarP(&loadFlags.Strategy, "strategy", "s", "overwrite", "Load strategy: append, overwrite, or replace")
	f.StringVarP(&loadFlags.Format, "format", "f", "auto", "File format: auto, csv, tsv, or single-column")
	f.IntVar(&loadFlags.SkipHeader, "skip-header", 0, "Number of header lines to skip")
	f.BoolVar(&loadFlags.CreateTable, "create-table", true, "Create the table if it doesn't exist")
	f.BoolVar(&loadFlags.CreateSchema, "create-schema", false, "Create the schema if it doesn't exist (skips prompt)")
	f.StringArrayVarP(&loadFlags.Grants, "grant", "g", nil, "Grant SELECT to role (repeatable)")
	f.BoolVar(&loadFlags.MostRecent, "most-recent", false, "Track the most recent load with a boolean column")
	f.BoolVar(&loadFlags.Expand, "expand", false, "One destination column per detected header instead of a single data column")
	f.BoolVar(&loadFlags.Sanitize, "sanitize", false, "Sanitize tag keys into warehouse identifiers")
	f.BoolVar(&loadFlags.Audit, "audit", false, "Record this load in the audit history table")
	f.StringArrayVarP(&loadFlags.Include, "include", "i", nil, "Only include files with these extensions (repeatable)")
	f.BoolVar(&loadFlags.DryRun, "dry-run", false, "Print the resolved plan without executing")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	// A signal cancels the load so deferred cleanup (connection,
	// scratch dir) still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	src := args[0]

	cfgFile, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		os.Exit(exitcode.UsageError)
	}

	req, conn, connName, err := buildRequest(cmd, cfgFile)
	if err != nil {
		log.Error().Err(err).Msg("invalid load request")
		os.Exit(exitcode.UsageError)
	}

	printPlan(src, req, connName)
	if loadFlags.DryRun {
		fmt.Println("Dry run - no changes made")
		return nil
	}

	wh, err := warehouse.Connect(ctx, conn.URL())
	if err != nil {
		log.Error().Err(err).Msg("warehouse connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer wh.Close()

	result, err := load.Run(ctx, wh, log, req, src)

	// Schema missing is the one recoverable failure: offer to create it
	// and retry the whole load once.
	var snf *load.SchemaNotFoundError
	if errors.As(err, &snf) && !req.CreateSchema {
		fmt.Printf("\nSchema %q does not exist.\n", snf.Schema)
		if !confirm(fmt.Sprintf("Create schema %q?", snf.Schema), true) {
			os.Exit(exitcode.LoadError)
		}
		retry := *req
		retry.CreateSchema = true
		result, err = load.Run(ctx, wh, log, &retry, src)
	}

	if err != nil {
		log.Error().Err(err).Msg("load failed")
		os.Exit(loadExitCode(err))
	}

	fmt.Printf("\nLoaded %d rows from %d file(s)\n", result.Rows, result.Files)
	if result.Deleted > 0 {
		fmt.Printf("(deleted %d existing rows)\n", result.Deleted)
	}
	return nil
}

// buildRequest merges profile values under CLI flags and validates the
// resulting request. CLI flags always win.
func buildRequest(cmd *cobra.Command, cfgFile *config.File) (*load.Request, *config.Connection, string, error) {
	dest := loadFlags.Dest
	strategyName := loadFlags.Strategy
	grants := loadFlags.Grants
	mostRecent := loadFlags.MostRecent
	connName := cfg.Connection
	tags := map[string]string{}

	if loadFlags.Profile != "" {
		prof := cfgFile.Profile(loadFlags.Profile)
		if prof == nil {
			return nil, nil, "", fmt.Errorf("profile %q not found", loadFlags.Profile)
		}
		if dest == "" {
			dest = prof.Dest
		}
		if connName == "" {
			connName = prof.Connection
		}
		if prof.Strategy != "" && !cmd.Flags().Changed("strategy") {
			strategyName = prof.Strategy
		}
		if len(grants) == 0 {
			grants = prof.Grants
		}
		mostRecent = mostRecent || prof.MostRecent
		for k, v := range prof.Tags {
			tags[k] = v
		}
	}

	if dest == "" {
		return nil, nil, "", fmt.Errorf("no destination specified, use --dest or --profile")
	}

	tags, err := parseTags(loadFlags.Tags, tags)
	if err != nil {
		return nil, nil, "", err
	}

	strategy, err := load.ParseStrategy(strategyName)
	if err != nil {
		return nil, nil, "", err
	}
	kind, err := format.ParseKind(loadFlags.Format)
	if err != nil {
		return nil, nil, "", err
	}

	cfg.Connection = connName
	conn, connDisplay, err := resolveConnection(cfgFile)
	if err != nil {
		return nil, nil, "", err
	}

	schema, table, err := load.ParseDest(dest, conn.Schema)
	if err != nil {
		return nil, nil, "", err
	}

	req := &load.Request{
		Schema:          schema,
		Table:           table,
		Tags:            tags,
		Strategy:        strategy,
		Format:          kind,
		SkipHeader:      loadFlags.SkipHeader,
		CreateTable:     loadFlags.CreateTable,
		CreateSchema:    loadFlags.CreateSchema,
		ExpandColumns:   loadFlags.Expand,
		TrackMostRecent: mostRecent,
		Audit:           loadFlags.Audit,
		SanitizeTags:    loadFlags.Sanitize,
		Grants:          grants,
		Include:         loadFlags.Include,
	}
	if err := req.Validate(); err != nil {
		return nil, nil, "", err
	}
	return req, conn, connDisplay, nil
}

func printPlan(src string, req *load.Request, connName string) {
	fmt.Printf("Source:      %s\n", src)
	fmt.Printf("Destination: %s.%s\n", req.Schema, req.Table)
	fmt.Printf("Connection:  %s\n", connName)
	fmt.Printf("Strategy:    %s\n", req.Strategy)
	if len(req.Tags) > 0 {
		keys := req.TagKeys()
		fmt.Print("Tags:        ")
		for i, k := range keys {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%s=%s", k, req.Tags[k])
		}
		fmt.Println()
	}
	fmt.Println()
}

func loadExitCode(err error) int {
	if errors.Is(err, load.ErrNoFiles) {
		return exitcode.NoFilesError
	}
	var pe *load.PhaseError
	if errors.As(err, &pe) {
		switch pe.Phase {
		case "resolve", "plan":
			return exitcode.ValidationError
		case "grant":
			return exitcode.GrantError
		}
	}
	return exitcode.LoadError
}
