package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/cmd/walletkit/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &commands.App{}

	rootCmd := &cobra.Command{
		Use:   "walletkit",
		Short: "Detect, connect and sign with wallets",
		Long: `walletkit detects wallets (a Sui browser wallet, or EVM and Solana keys
provisioned in the environment), connects to them and signs and submits
transactions through a REST bridge or MCP tools.`,
		Version:       walletkit.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "Config file path (default ./walletkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		commands.NewServeCommand(app),
		commands.NewDetectCommand(app),
		commands.NewVersionCommand(app),
	)

	return rootCmd.Execute()
}
