package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/logging"
	"github.com/datacampus/dcx/internal/source"
)

var validateFlags struct {
	Verbose bool
	Include []string
}

var validateCmd = &cobra.Command{
	Use:   "validate <source>",
	Short: "Check files for encoding and line-length problems before loading",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.BoolVarP(&validateFlags.Verbose, "verbose", "v", false, "Show detailed file info")
	f.StringArrayVarP(&validateFlags.Include, "include", "i", nil, "Only include files with these extensions (repeatable)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	files, err := source.Resolve(args[0], validateFlags.Include)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve source")
		os.Exit(exitcode.ValidationError)
	}
	defer files.Close()

	if len(files.Files) == 0 {
		log.Error().Str("source", args[0]).Msg("no files found")
		os.Exit(exitcode.NoFilesError)
	}

	fmt.Printf("Validating %d file(s)...\n\n", len(files.Files))

	var reports []*source.Report
	allValid := true
	for _, f := range files.Files {
		rep := source.Check(f)
		reports = append(reports, rep)
		if !rep.Valid() {
			allValid = false
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Lines", "Max Line", "Status"})
	for _, r := range reports {
		status := "valid"
		if !r.Valid() {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Name, r.Lines, r.MaxLine, status})
	}
	t.Render()

	if validateFlags.Verbose {
		for _, r := range reports {
			fmt.Printf("\n%s:\n  size: %d bytes\n", r.Name, r.Size)
			if r.Lines > 0 {
				fmt.Printf("  lines: %d\n  avg line: %.0f bytes\n  max line: %d bytes\n", r.Lines, r.AvgLine, r.MaxLine)
			}
		}
	}

	if !allValid {
		fmt.Println("\nValidation failed")
		os.Exit(exitcode.ValidationError)
	}
	fmt.Println("\nAll files valid")
	return nil
}
