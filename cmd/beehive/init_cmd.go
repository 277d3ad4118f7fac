package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newInitCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var repo string
	var save bool

	cmd := &cobra.Command{
		Use:   "init <project>",
		Short: "Bootstrap a project and print its one-time admin key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateProject(cmd.Context(), api.ProjectCreateRequest{
					Name: args[0],
					Repo: repo,
				})
				if err != nil {
					return err
				}

				if save {
					cfg.Project = resp.Project.Name
					cfg.APIKey = resp.AdminKey
					if err := cfg.Save(); err != nil {
						return err
					}
				}

				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writePlain("project: %s\n", resp.Project.Name); err != nil {
					return err
				}
				return writePlain("admin key (shown once): %s\n", resp.AdminKey)
			})
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "repository URL for the project")
	cmd.Flags().BoolVar(&save, "save", false, "write the project and admin key to the config file")
	return cmd
}
