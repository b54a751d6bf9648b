package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/config"
)

// cfg holds the flags shared by every subcommand.
var cfg struct {
	DSN        string
	Connection string
	LogFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "dcx",
	Short: "Delimited-file → Postgres warehouse loader",
	Long:  "Loads delimited and single-column text files (optionally zipped) into warehouse tables, with tagging, load strategies, most-recent versioning, grants, and audit logging.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set DCX_DB_URL, or use a saved connection)")
	pf.StringVarP(&cfg.Connection, "connection", "c", "", "Saved connection name (default: the configured default)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}

// resolveConnection picks the connection for this invocation: an explicit
// --dsn (or DCX_DB_URL) wins, then --connection, then the config default.
func resolveConnection(cfgFile *config.File) (*config.Connection, string, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = os.Getenv("DCX_DB_URL")
	}
	if dsn != "" {
		return &config.Connection{DSN: dsn}, "dsn", nil
	}

	conn := cfgFile.Connection(cfg.Connection)
	if conn == nil {
		if cfg.Connection != "" {
			return nil, "", fmt.Errorf("connection %q not found, run: dcx config list", cfg.Connection)
		}
		return nil, "", fmt.Errorf("no connection configured, run: dcx config add")
	}
	name := cfg.Connection
	if name == "" {
		name = cfgFile.Default
	}
	return conn, name, nil
}
