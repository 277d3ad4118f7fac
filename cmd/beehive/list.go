package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var state, role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				query := url.Values{}
				if state != "" {
					query.Set("state", state)
				}
				if role != "" {
					query.Set("role", role)
				}

				tasks, err := client.ListTasks(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(tasks)
				}
				return writeTaskList(tasks)
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state")
	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}
