package main

import (
	"context"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/spf13/cobra"
)

var (
	proposalNote   string
	proposalStatus string
	proposalLimit  int
)

var proposalsCmd = &cobra.Command{
	Use:     "proposals",
	Aliases: []string{"proposal"},
	Short:   "Create and review behavior proposals",
}

var proposalsCreateCmd = &cobra.Command{
	Use:   "create <worker-id>",
	Short: "Draft a behavior proposal for a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Proposals.CreateProposal(ctx, args[0])
		})
	},
}

var proposalsApplyCmd = &cobra.Command{
	Use:   "apply <proposal-id> <approve|merge|reject>",
	Short: "Apply a review action to a proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Proposals.Apply(ctx, ports.ApplyProposalInput{
				ProposalID: args[0],
				Action:     ports.ProposalAction(args[1]),
				Note:       proposalNote,
			})
		})
	},
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Proposals.History(ctx, ports.ProposalFilter{
				Status: domain.ProposalStatus(proposalStatus),
				Limit:  proposalLimit,
			})
		})
	},
}

func init() {
	proposalsApplyCmd.Flags().StringVar(&proposalNote, "note", "", "review note stored with the proposal")
	proposalsListCmd.Flags().StringVar(&proposalStatus, "status", "", "filter by status")
	proposalsListCmd.Flags().IntVar(&proposalLimit, "limit", 50, "maximum proposals to list")
	proposalsCmd.AddCommand(proposalsCreateCmd, proposalsApplyCmd, proposalsListCmd)
	rootCmd.AddCommand(proposalsCmd)
}
