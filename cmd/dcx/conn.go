package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/datacampus/dcx/internal/config"
	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/warehouse"
)

// mustConnect resolves the active connection and opens the warehouse
// client, exiting the process on failure. The caller closes the client.
func mustConnect(ctx context.Context, log zerolog.Logger) (*warehouse.Client, *config.Connection) {
	cfgFile, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		os.Exit(exitcode.UsageError)
	}

	conn, _, err := resolveConnection(cfgFile)
	if err != nil {
		log.Error().Err(err).Msg("no usable connection")
		os.Exit(exitcode.UsageError)
	}

	wh, err := warehouse.Connect(ctx, conn.URL())
	if err != nil {
		log.Error().Err(err).Msg("warehouse connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return wh, conn
}

// systemColumns are the loader-managed columns excluded when deriving a
// table's tag columns.
var systemColumns = map[string]bool{
	"_source_file":    true,
	"_load_timestamp": true,
	"is_most_recent":  true,
	"data":            true,
}

func tagColumns(cols []warehouse.ColumnInfo) []string {
	var tags []string
	for _, c := range cols {
		if !systemColumns[c.Name] {
			tags = append(tags, c.Name)
		}
	}
	return tags
}

func hasColumn(cols []warehouse.ColumnInfo, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}
