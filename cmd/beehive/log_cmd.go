package main

import (
	"strings"

	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newLogCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Show a task's execution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetLog(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				for i, entry := range resp.Entries {
					if err := writePlain("--- attempt %d ---\n%s\n", i+1, entry); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "append <id> <content>",
		Short: "Append an entry to a task's execution log",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				return client.AppendLog(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	})

	return cmd
}
