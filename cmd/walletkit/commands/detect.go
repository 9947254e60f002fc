package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/detector"
)

// DetectResult is the outcome of detection for one wallet.
type DetectResult struct {
	walletkit.Status
	Detection string `json:"detection"`
}

func NewDetectCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the configured wallets and print their state",
		Long: `Run detection for every configured wallet until each one is found or
its detection timeout elapses, then print the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Load(); err != nil {
				return err
			}

			client, cleanup, err := app.BuildClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			results := WaitForDetection(cmd.Context(), client, app.Config.Detection.Timeout)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

// WaitForDetection waits until detection of every strategy of client has
// resolved, ctx is done or timeout (plus a short grace period) elapses.
func WaitForDetection(ctx context.Context, client *walletkit.WalletClient, timeout time.Duration) []DetectResult {
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	for _, s := range client.Strategies() {
		r, ok := s.(resolver)
		if !ok {
			continue
		}
		select {
		case <-r.Resolved():
		case <-ctx.Done():
			return collectResults(client)
		}
	}
	return collectResults(client)
}

type resolver interface {
	Resolved() <-chan struct{}
}

type detectionStater interface {
	DetectionState() detector.State
}

func detectionState(s walletkit.Strategy) detector.State {
	if d, ok := s.(detectionStater); ok {
		return d.DetectionState()
	}
	if s.Detected() {
		return detector.StateDetected
	}
	return detector.StateNotDetected
}

func collectResults(client *walletkit.WalletClient) []DetectResult {
	strategies := client.Strategies()
	results := make([]DetectResult, 0, len(strategies))
	for _, s := range strategies {
		results = append(results, DetectResult{
			Status:    walletkit.StatusOf(s),
			Detection: detectionState(s).String(),
		})
	}
	return results
}

func printResults(out io.Writer, results []DetectResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "WALLET\tDETECTION\tSTATE\tACCOUNTS\n")
	_, _ = fmt.Fprintf(w, "------\t---------\t-----\t--------\n")
	for _, r := range results {
		accounts := strings.Join(r.Accounts, ",")
		if accounts == "" {
			accounts = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.Detection, r.State, accounts)
	}
	return w.Flush()
}
