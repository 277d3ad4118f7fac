package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/api"
	"beehive/internal/config"
)

func newKeysCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for the project",
	}

	var role, label string
	create := &cobra.Command{
		Use:   "create",
		Short: "Mint a new API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateKey(cmd.Context(), api.KeyCreateRequest{Role: role, Label: label})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writePlain("key (shown once): %s\n", resp.Key); err != nil {
					return err
				}
				return writePlain("hash: %s\n", resp.Details.KeyHash)
			})
		},
	}
	create.Flags().StringVar(&role, "role", "bee", "key role: admin or bee")
	create.Flags().StringVar(&label, "label", "", "label for the key")

	list := &cobra.Command{
		Use:   "list",
		Short: "List API key records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				keys, err := client.ListKeys(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(keys)
				}
				for _, key := range keys {
					if err := writePlain("%s  %s  %s\n", key.KeyHash, key.Role, key.Label); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <hash>",
		Short: "Revoke an API key by hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				return client.RevokeKey(cmd.Context(), args[0])
			})
		},
	}

	cmd.AddCommand(create, list, revoke)
	return cmd
}
