package main

import (
	"database/sql"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/internal/doctor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run read-only health checks against the database",
	Long:  `Checks that required tables exist and that group_members/rules data is internally consistent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(dbURL)
		if err != nil {
			return err
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		d := doctor.New(db)
		report, err := d.Run(cmd.Context())
		if err != nil {
			return cli.OperationError("running doctor", err)
		}

		report.Print(os.Stdout)
		if report.HasErrors() {
			return cli.OperationError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	doctorCmd.GroupID = groupUtility
	rootCmd.AddCommand(doctorCmd)
}
