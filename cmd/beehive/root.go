package main

import (
	"github.com/spf13/cobra"

	"beehive/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "beehive",
		Short: "Beehive is a task orchestration server for worker agents",
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInitCmd(cfg, &jsonOutput),
		newCreateCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newUpdateCmd(cfg, &jsonOutput),
		newClaimCmd(cfg, &jsonOutput),
		newNextCmd(cfg, &jsonOutput),
		newReleaseCmd(cfg, &jsonOutput),
		newReopenCmd(cfg, &jsonOutput),
		newSubmitCmd(cfg, &jsonOutput),
		newApproveCmd(cfg, &jsonOutput),
		newRejectCmd(cfg, &jsonOutput),
		newFailCmd(cfg, &jsonOutput),
		newBlockCmd(cfg, &jsonOutput),
		newLogCmd(cfg, &jsonOutput),
		newKeysCmd(cfg, &jsonOutput),
		newDumpCmd(cfg),
		newLoadCmd(cfg),
	)

	return cmd
}
