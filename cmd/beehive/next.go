package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newNextCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var bee string
	var roles []string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Claim the next eligible task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.ClaimNext(cmd.Context(), api.ClaimNextRequest{Bee: bee, Roles: roles})
				if err != nil {
					return err
				}
				if task == nil {
					return writePlain("no eligible task\n")
				}
				return writeTask(*task, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&bee, "bee", "", "worker name to record on the claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role the worker can take (repeatable)")
	return cmd
}
