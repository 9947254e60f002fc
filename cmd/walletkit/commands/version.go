package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	walletkit "github.com/x402-foundation/walletkit"
)

func NewVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the walletkit version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "walletkit %s (%s, %s/%s)\n",
				walletkit.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
