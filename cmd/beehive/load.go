package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"beehive/internal/api"
	"beehive/internal/config"
	"beehive/internal/store"
)

func newLoadCmd(cfg *config.Config) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Import tasks into the project from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Project == "" {
				return fmt.Errorf("project is not configured")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var dump store.ProjectDump
			if err := yaml.Unmarshal(data, &dump); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return withClient(cfg, func(client *api.Client) error {
				if err := client.LoadProject(cmd.Context(), cfg.Project, dump, replace); err != nil {
					return err
				}
				return writePlain("loaded %d tasks into %s\n", len(dump.Tasks), cfg.Project)
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "delete the project's existing tasks first")
	return cmd
}
