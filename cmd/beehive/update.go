package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		description string
		role        string
		priority    int
		state       string
		status      string
		prURL       string
		testCommand string
		deps        []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var req api.TaskUpdateRequest
				if cmd.Flags().Changed("description") {
					req.Description = &description
				}
				if cmd.Flags().Changed("role") {
					req.Role = &role
				}
				if cmd.Flags().Changed("priority") {
					req.Priority = &priority
				}
				if cmd.Flags().Changed("state") {
					req.State = &state
				}
				if cmd.Flags().Changed("status") {
					req.Status = &status
				}
				if cmd.Flags().Changed("pr-url") {
					req.PRURL = &prURL
				}
				if cmd.Flags().Changed("test-command") {
					req.TestCommand = &testCommand
				}
				if cmd.Flags().Changed("dep") {
					req.Dependencies = &deps
				}

				task, err := client.UpdateTask(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "replace the description")
	cmd.Flags().StringVar(&role, "role", "", "replace the role")
	cmd.Flags().IntVar(&priority, "priority", 2, "replace the priority")
	cmd.Flags().StringVar(&state, "state", "", "force the state")
	cmd.Flags().StringVar(&status, "status", "", "replace the progress note")
	cmd.Flags().StringVar(&prURL, "pr-url", "", "replace the PR URL")
	cmd.Flags().StringVar(&testCommand, "test-command", "", "replace the test command")
	cmd.Flags().StringSliceVar(&deps, "dep", nil, "replace the dependency set (repeatable)")
	return cmd
}
