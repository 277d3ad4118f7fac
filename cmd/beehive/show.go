package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var withSubmission bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				task, err := client.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := writeTask(task, *jsonOutput); err != nil {
					return err
				}

				if !withSubmission {
					return nil
				}
				sub, err := client.GetSubmission(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if sub == nil {
					return nil
				}
				if *jsonOutput {
					return writeJSON(sub)
				}
				if err := writePlain("submission pr_url: %s\n", sub.PRURL); err != nil {
					return err
				}
				return writePlain("submission summary: %s\n", sub.Summary)
			})
		},
	}

	cmd.Flags().BoolVar(&withSubmission, "submission", false, "also show the pending submission")
	return cmd
}
