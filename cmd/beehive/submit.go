package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
	"beehive/internal/models"
)

func newSubmitCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		prURL     string
		summary   string
		details   string
		followUps []string
	)

	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit a task for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				req := api.SubmitRequest{
					PRURL:   prURL,
					Summary: summary,
					Details: details,
				}
				for _, description := range followUps {
					req.FollowUps = append(req.FollowUps, models.TaskSpec{Description: description})
				}

				task, err := client.SubmitTask(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				return writeTask(task, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&prURL, "pr-url", "", "URL of the proposed change")
	cmd.Flags().StringVar(&summary, "summary", "", "one-line summary of the work")
	cmd.Flags().StringVar(&details, "details", "", "longer notes for the reviewer")
	cmd.Flags().StringSliceVar(&followUps, "follow-up", nil, "follow-up task description (repeatable)")
	_ = cmd.MarkFlagRequired("pr-url")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}
