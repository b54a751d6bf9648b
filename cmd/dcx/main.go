package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/datacampus/dcx/internal/exitcode"
)

func main() {
	// Pick up DCX_DB_URL and friends from a project .env, if present.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
