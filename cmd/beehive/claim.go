package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newClaimCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var bee string

	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim an open task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.ClaimTask(cmd.Context(), args[0], bee)
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&bee, "bee", "", "worker name to record on the claim")
	return cmd
}
