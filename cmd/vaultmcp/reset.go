package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultmcp/config"
	"vaultmcp/oauth"
)

var resetClientsCmd = &cobra.Command{
	Use:   "reset-clients",
	Short: "Delete every registered OAuth client",
	Long: `Clears the client registry. Previously issued tokens remain valid
until they expire, but no client can complete a new authorization flow
until it re-registers.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		clients, err := oauth.NewClientRegistry(cfg.ClientDBPath)
		if err != nil {
			return err
		}
		defer clients.Close()

		if err := clients.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "client registry cleared")
		return nil
	},
}
