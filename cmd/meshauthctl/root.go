package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
)

var (
	// Global state set during PersistentPreRunE.
	cfg        *cli.Config
	configPath string

	// runID correlates the log lines a single invocation produces.
	runID string

	// Persistent flags.
	cfgFile string
	dbURL   string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "meshauthctl",
	Short: "Operate a meshauth group-membership and rule-evaluation store",
	Long: `meshauthctl manages the Postgres-backed meshauth store: groups,
typed membership edges, accounts, authenticators and per-group rule lists.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		runID = uuid.NewString()

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		if !quiet && configPath != "" {
			fmt.Fprintf(os.Stderr, "using config %s (run %s)\n", configPath, runID)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs.
const (
	groupData    = "data"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover meshauth.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "database URL (or set MESHAUTH_DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	migrateCmd.GroupID = groupData
	groupCmd.GroupID = groupData
	ruleCmd.GroupID = groupData
	accountCmd.GroupID = groupData
	seedCmd.GroupID = groupData
	rootCmd.AddCommand(migrateCmd, groupCmd, ruleCmd, accountCmd, seedCmd)

	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveDSN gets the database DSN from flag, env-backed config, or error.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if cfg.Database.URL != "" {
		return cfg.Database.URL, nil
	}
	return "", cli.ConfigError("database URL is required (use --db, MESHAUTH_DATABASE_URL, or config)", nil)
}
