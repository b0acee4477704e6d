package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vaultmcp",
	Short: "MCP gateway for a secrets vault with an embedded OAuth2 authorization server",
	Long: `vaultmcp exposes a secrets vault as MCP tools over stdio, SSE or
streamable HTTP. In oauth mode the HTTP transports are protected by an
embedded OAuth2 authorization server: clients register, obtain an
operator-approved authorization code, and exchange it for a signed
bearer token.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches /etc/vaultmcp, $HOME/.vaultmcp, .)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetClientsCmd)
}
