package main

import (
	"strings"

	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newBlockCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "block <id> <reason>",
		Short: "Mark a task as blocked",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.BlockTask(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}
}
