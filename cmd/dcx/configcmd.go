package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datacampus/dcx/internal/config"
	"github.com/datacampus/dcx/internal/exitcode"
	"github.com/datacampus/dcx/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved connections and load profiles",
}

var addConn config.Connection

var addFlags struct {
	Name       string
	SetDefault bool
}

var configAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a saved connection",
	RunE:  runConfigAdd,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections and profiles",
	RunE:  runConfigList,
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemove,
}

var configDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigDefault,
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test a saved connection",
	RunE:  runConfigTest,
}

var profileFlags struct {
	Name       string
	Dest       string
	Connection string
	Strategy   string
	Tags       []string
	Grants     []string
	MostRecent bool
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage load profiles",
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a load profile",
	RunE:  runProfileAdd,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a load profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileRemove,
}

func init() {
	f := configAddCmd.Flags()
	f.StringVar(&addFlags.Name, "name", "", "Connection name (required)")
	f.StringVar(&addConn.DSN, "url", "", "Full connection string (overrides host/port/database)")
	f.StringVar(&addConn.Host, "host", "", "Database host")
	f.IntVar(&addConn.Port, "port", 5432, "Database port")
	f.StringVar(&addConn.Database, "database", "", "Database name")
	f.StringVar(&addConn.User, "user", "", "Database user")
	f.StringVar(&addConn.Password, "password", "", "Database password")
	f.StringVar(&addConn.Schema, "schema", "", "Default schema for bare table names")
	f.StringVar(&addConn.SSLMode, "sslmode", "", "sslmode parameter (disable, require, ...)")
	f.BoolVar(&addFlags.SetDefault, "default", false, "Make this the default connection")
	_ = configAddCmd.MarkFlagRequired("name")

	pf := profileAddCmd.Flags()
	pf.StringVar(&profileFlags.Name, "name", "", "Profile name (required)")
	pf.StringVar(&profileFlags.Dest, "dest", "", "Destination table")
	pf.StringVar(&profileFlags.Connection, "connection", "", "Connection name to use")
	pf.StringVar(&profileFlags.Strategy, "strategy", "", "Load strategy: append, overwrite, or replace")
	pf.StringArrayVar(&profileFlags.Tags, "tag", nil, "Default tag as key=value (repeatable)")
	pf.StringArrayVar(&profileFlags.Grants, "grant", nil, "Role to grant SELECT to (repeatable)")
	pf.BoolVar(&profileFlags.MostRecent, "most-recent", false, "Track the most recent load")
	_ = profileAddCmd.MarkFlagRequired("name")

	profileCmd.AddCommand(profileAddCmd, profileRemoveCmd)
	configCmd.AddCommand(configAddCmd, configListCmd, configRemoveCmd, configDefaultCmd, configTestCmd, profileCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	conn := addConn
	cfgFile.AddConnection(addFlags.Name, &conn, addFlags.SetDefault)
	if err := cfgFile.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved connection %q\n", addFlags.Name)
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}

	if len(cfgFile.Connections) == 0 {
		fmt.Println("No connections configured. Run: dcx config add")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Connection", "Host", "Database", "Schema", "Default"})
		for name, c := range cfgFile.Connections {
			def := ""
			if name == cfgFile.Default {
				def = "*"
			}
			host := c.Host
			if c.DSN != "" {
				host = "(url)"
			}
			t.AppendRow(table.Row{name, host, c.Database, c.Schema, def})
		}
		t.Render()
	}

	if len(cfgFile.Profiles) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Profile", "Dest", "Strategy", "Tags"})
		for name, p := range cfgFile.Profiles {
			t.AppendRow(table.Row{name, p.Dest, p.Strategy, fmt.Sprint(p.Tags)})
		}
		t.Render()
	}
	return nil
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	if !cfgFile.RemoveConnection(args[0]) {
		return fmt.Errorf("connection %q not found", args[0])
	}
	if err := cfgFile.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed connection %q\n", args[0])
	return nil
}

func runConfigDefault(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	if !cfgFile.SetDefault(args[0]) {
		return fmt.Errorf("connection %q not found", args[0])
	}
	if err := cfgFile.Save(); err != nil {
		return err
	}
	fmt.Printf("Default connection is now %q\n", args[0])
	return nil
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	wh, _ := mustConnect(ctx, log)
	defer wh.Close()

	user, err := wh.CurrentUser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("connection test failed")
		os.Exit(exitcode.DBConnError)
	}
	fmt.Printf("Connected as %s\n", user)
	return nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	tags, err := parseTags(profileFlags.Tags, nil)
	if err != nil {
		return err
	}
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	cfgFile.AddProfile(profileFlags.Name, &config.Profile{
		Dest:       profileFlags.Dest,
		Connection: profileFlags.Connection,
		Strategy:   profileFlags.Strategy,
		Tags:       tags,
		Grants:     profileFlags.Grants,
		MostRecent: profileFlags.MostRecent,
	})
	if err := cfgFile.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved profile %q\n", profileFlags.Name)
	return nil
}

func runProfileRemove(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	if !cfgFile.RemoveProfile(args[0]) {
		return fmt.Errorf("profile %q not found", args[0])
	}
	if err := cfgFile.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed profile %q\n", args[0])
	return nil
}
