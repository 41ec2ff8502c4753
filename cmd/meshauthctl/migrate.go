package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/internal/pgxstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the accounts/authenticators/groups/rules schema",
	Long:  `Creates the accounts, authenticators, groups, group_members and rules tables if they do not already exist. Safe to run on every deploy.`,
	Example: `  # Apply schema to database
  meshauthctl migrate --db postgres://localhost/meshauth`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(dbURL)
		if err != nil {
			return err
		}
		return runMigrate(cmd.Context(), dsn)
	},
}

func runMigrate(ctx context.Context, dsn string) error {
	adapter, err := pgxstore.Open(ctx, dsn)
	if err != nil {
		return cli.DBConnectError("connecting to database", err)
	}
	defer adapter.Close()

	if err := adapter.ApplySchema(ctx); err != nil {
		return cli.OperationError("applying schema", err)
	}

	if !quiet {
		fmt.Println("meshauth schema applied successfully.")
	}
	return nil
}
