package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/meshauth/internal/cli"
	"github.com/pthm/meshauth/internal/rules"
	"github.com/pthm/meshauth/service"
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage per-group rule lists",
}

var ruleArgument string

var ruleCreateCmd = &cobra.Command{
	Use:   "create <group> <grant|deny> <condition>",
	Short: "Append a rule to a group's ordered rule list",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			id, err := svc.CreateRule(ctx, args[0], rules.Action(args[1]), args[2], ruleArgument)
			if err != nil {
				return cli.OperationError("creating rule", err)
			}
			if !quiet {
				fmt.Printf("rule %d created\n", id)
			}
			return nil
		})
	},
}

var ruleDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Unconditionally delete a rule by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return cli.ConfigError("rule id must be an integer", err)
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.DropRule(ctx, id); err != nil {
				return cli.OperationError("dropping rule", err)
			}
			if !quiet {
				fmt.Printf("rule %d dropped\n", id)
			}
			return nil
		})
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list <group>",
	Short: "List a group's rules in evaluation order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			list, err := svc.ListRules(ctx, args[0])
			if err != nil {
				return cli.OperationError("listing rules", err)
			}
			for _, r := range list {
				fmt.Printf("%d\t%d\t%s\t%s\t%s\n", r.ID, r.Order, r.Action, r.Condition, r.Argument)
			}
			return nil
		})
	},
}

var ruleEvalCmd = &cobra.Command{
	Use:   "eval <group>",
	Short: "Evaluate a group's rule list against an empty entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			result, err := svc.EvaluateRules(ctx, args[0], rules.Entity{})
			if err != nil {
				return cli.OperationError("evaluating rules", err)
			}
			fmt.Println(result)
			return nil
		})
	},
}

func init() {
	ruleCreateCmd.Flags().StringVar(&ruleArgument, "argument", "", "condition argument")
	ruleCmd.AddCommand(ruleCreateCmd, ruleDropCmd, ruleListCmd, ruleEvalCmd)
}
