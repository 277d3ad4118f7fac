package main

import (
	"strings"

	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		role        string
		priority    int
		deps        []string
		parentTask  string
		testCommand string
	)

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				req := api.TaskCreateRequest{
					Description:  strings.Join(args, " "),
					Role:         role,
					Dependencies: deps,
					ParentTask:   parentTask,
					TestCommand:  testCommand,
				}
				if cmd.Flags().Changed("priority") {
					req.Priority = &priority
				}

				task, err := client.CreateTask(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(task)
				}
				return writePlain("%s\n", task.ID)
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "restrict the task to bees with this role")
	cmd.Flags().IntVar(&priority, "priority", 2, "priority 0 (highest) to 4 (lowest)")
	cmd.Flags().StringSliceVar(&deps, "dep", nil, "task id this task depends on (repeatable)")
	cmd.Flags().StringVar(&parentTask, "parent", "", "parent task id")
	cmd.Flags().StringVar(&testCommand, "test-command", "", "command a bee runs to verify its work")
	return cmd
}
