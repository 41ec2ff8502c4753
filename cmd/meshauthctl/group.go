package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/internal/pgxstore"
	"github.com/pthm/meshauth/meshauth"
	"github.com/pthm/meshauth/service"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups and their typed membership edges",
}

var groupEdgeType string

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.Engine.CreateGroup(ctx, args[0]); err != nil {
				return cli.OperationError("creating group", err)
			}
			if !quiet {
				fmt.Printf("group %q created\n", args[0])
			}
			return nil
		})
	},
}

var groupDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Drop a group and every edge mentioning it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.Engine.DropGroup(ctx, args[0]); err != nil {
				return cli.OperationError("dropping group", err)
			}
			if !quiet {
				fmt.Printf("group %q dropped\n", args[0])
			}
			return nil
		})
	},
}

var groupAddSubgroupCmd = &cobra.Command{
	Use:   "add-subgroup <parent> <child>",
	Short: "Add a typed edge from parent to child",
	Long:  `Edge type defaults to "or". Use --type to select "and" or "not".`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.Engine.AddSubgroup(ctx, args[0], args[1], meshauth.EdgeType(groupEdgeType)); err != nil {
				return cli.OperationError("adding subgroup", err)
			}
			if !quiet {
				fmt.Printf("%s -> %s (%s) added\n", args[0], args[1], resolveEdgeType())
			}
			return nil
		})
	},
}

var groupDropSubgroupCmd = &cobra.Command{
	Use:   "drop-subgroup <parent> <child>",
	Short: "Drop a typed edge from parent to child",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.Engine.DropSubgroup(ctx, args[0], args[1], resolveEdgeType()); err != nil {
				return cli.OperationError("dropping subgroup", err)
			}
			if !quiet {
				fmt.Printf("%s -> %s (%s) dropped\n", args[0], args[1], resolveEdgeType())
			}
			return nil
		})
	},
}

var groupListAccountsCmd = &cobra.Command{
	Use:   "list-accounts <group>",
	Short: "List the effective account membership of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			accounts, err := svc.Engine.ListAccounts(ctx, args[0])
			if err != nil {
				return cli.OperationError("listing accounts", err)
			}
			for _, a := range accounts.Slice() {
				fmt.Println(int64(a))
			}
			return nil
		})
	},
}

func resolveEdgeType() meshauth.EdgeType {
	if groupEdgeType == "" {
		return meshauth.EdgeOr
	}
	return meshauth.EdgeType(groupEdgeType)
}

func init() {
	groupAddSubgroupCmd.Flags().StringVar(&groupEdgeType, "type", "", `edge type: "or" (default), "and" or "not"`)
	groupDropSubgroupCmd.Flags().StringVar(&groupEdgeType, "type", "", `edge type: "or" (default), "and" or "not"`)

	groupCmd.AddCommand(groupCreateCmd, groupDropCmd, groupAddSubgroupCmd, groupDropSubgroupCmd, groupListAccountsCmd)
}

// withService opens an Adapter and Service scoped to a single command
// invocation, closing it on return.
func withService(ctx context.Context, fn func(ctx context.Context, svc *service.Service) error) error {
	dsn, err := resolveDSN(dbURL)
	if err != nil {
		return err
	}

	adapter, err := pgxstore.Open(ctx, dsn)
	if err != nil {
		return cli.DBConnectError("connecting to database", err)
	}
	defer adapter.Close()

	svc, err := service.New(adapter, service.Options{
		CacheSize:      cfg.Cache.Size,
		AllowPlaintext: cfg.Auth.AllowPlaintext,
	})
	if err != nil {
		return cli.OperationError("constructing service", err)
	}

	return fn(ctx, svc)
}
