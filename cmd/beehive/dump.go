package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newDumpCmd(cfg *config.Config) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export the project's tasks to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Project == "" {
				return fmt.Errorf("project is not configured")
			}
			return withClient(cfg, func(client *api.Client) error {
				dump, err := client.DumpProject(cmd.Context(), cfg.Project)
				if err != nil {
					return err
				}

				data, err := yaml.Marshal(dump)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = os.Stdout.Write(data)
					return err
				}
				return os.WriteFile(out, data, 0o644)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
