package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed <manifest.yaml>",
	Short: "Bulk-load groups and edges from a YAML manifest",
	Long: `Parses a YAML manifest of groups and edges and applies it in a
single bulk operation, flushing every expansion cache exactly once
regardless of manifest size. Intended for initial load and fixture
seeding, not incremental edits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return cli.ConfigError("reading manifest", err)
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.LoadManifest(ctx, data); err != nil {
				return cli.OperationError("loading manifest", err)
			}
			if !quiet {
				fmt.Printf("manifest %s applied\n", args[0])
			}
			return nil
		})
	},
}
