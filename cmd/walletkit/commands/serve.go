package commands

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/http"
	"github.com/x402-foundation/walletkit/mcp"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(app *App) *cobra.Command {
	var (
		listen  string
		withMCP bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST bridge and optionally MCP tools",
		Long: `Start wallet detection and serve the REST bridge.

With --mcp (or mcp.enabled) the wallet tools are also served to an MCP
client over stdin/stdout. Logs always go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Load(); err != nil {
				return err
			}
			if listen != "" {
				app.Config.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Serve(ctx, app, withMCP || app.Config.MCP.Enabled)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override the configured listen address")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Serve MCP tools over stdio")

	return cmd
}

// Serve runs the REST bridge, and the MCP server when withMCP is set, until
// ctx is done or either fails.
func Serve(ctx context.Context, app *App, withMCP bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, cleanup, err := app.BuildClient(ctx, walletkit.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer cleanup()

	server := &nethttp.Server{
		Addr:              app.Config.Listen,
		Handler:           http.NewEngine(client, http.WithLogger(app.Logger), http.WithGatherer(reg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		app.Logger.Info("serving REST bridge", "listen", app.Config.Listen, "wallets", app.Config.Wallets)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("REST bridge failed: %w", err)
		}
	}()

	if withMCP {
		go func() {
			app.Logger.Info("serving MCP tools over stdio")
			if err := mcp.NewServer(client, mcp.WithLogger(app.Logger)).Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("MCP server failed: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		app.Logger.Info("shutting down")
	case err = <-errCh:
		app.Logger.Error("server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		app.Logger.Warn("failed to shut down REST bridge", "error", shutdownErr)
	}
	return err
}
