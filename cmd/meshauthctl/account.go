package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/internal/verifier"
	"github.com/pthm/meshauth/meshauth"
	"github.com/pthm/meshauth/service"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts and their authenticators",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account and print its generated id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			id, err := svc.CreateAccount(ctx)
			if err != nil {
				return cli.OperationError("creating account", err)
			}
			fmt.Println(int64(id))
			return nil
		})
	},
}

var accountDropCmd = &cobra.Command{
	Use:   "drop <account-id>",
	Short: "Drop an account and its authenticators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return cli.ConfigError("account id must be an integer", err)
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.DropAccount(ctx, meshauth.Account(id)); err != nil {
				return cli.OperationError("dropping account", err)
			}
			if !quiet {
				fmt.Printf("account %d dropped\n", id)
			}
			return nil
		})
	},
}

var authAddCmd = &cobra.Command{
	Use:   "add-auth <name> <account-id> <password>",
	Short: "Register a bcrypt-hashed authenticator for an account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var accountID int64
		if _, err := fmt.Sscanf(args[1], "%d", &accountID); err != nil {
			return cli.ConfigError("account id must be an integer", err)
		}
		hashed, err := verifier.HashBcrypt(args[2])
		if err != nil {
			return cli.OperationError("hashing password", err)
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.CreateAuthenticator(ctx, args[0], hashed, meshauth.Account(accountID)); err != nil {
				return cli.OperationError("creating authenticator", err)
			}
			if !quiet {
				fmt.Printf("authenticator %q created for account %d\n", args[0], accountID)
			}
			return nil
		})
	},
}

func init() {
	accountCmd.AddCommand(accountCreateCmd, accountDropCmd, authAddCmd)
}
