package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newApproveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a submitted task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.ApproveTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}
}
