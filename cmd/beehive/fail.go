package main

import (
	"strings"

	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newFailCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var details string

	cmd := &cobra.Command{
		Use:   "fail <id> <error>",
		Short: "Mark a task as failed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.FailTask(cmd.Context(), args[0], strings.Join(args[1:], " "), details)
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&details, "details", "", "longer failure context")
	return cmd
}
