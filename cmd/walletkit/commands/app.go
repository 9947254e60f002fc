package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/browser"
	"github.com/x402-foundation/walletkit/detector"
	"github.com/x402-foundation/walletkit/internal/config"
	"github.com/x402-foundation/walletkit/internal/logging"
	"github.com/x402-foundation/walletkit/wallets/evm"
	"github.com/x402-foundation/walletkit/wallets/sui"
	"github.com/x402-foundation/walletkit/wallets/svm"
)

// App holds the global flags and the state every command loads from them.
type App struct {
	ConfigFile string
	LogLevel   string

	// LogWriter receives log output. Defaults to stderr.
	LogWriter io.Writer

	Config *config.Config
	Logger *slog.Logger
}

// Load reads the configuration and builds the logger.
func (a *App) Load() error {
	v := viper.New()
	if a.LogLevel != "" {
		v.Set("log_level", a.LogLevel)
	}

	cfg, err := config.Load(v, a.ConfigFile)
	if err != nil {
		return err
	}
	a.Config = cfg

	writer := a.LogWriter
	if writer == nil {
		writer = os.Stderr
	}
	a.Logger = logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Writer:    writer,
		Component: "walletkit",
	})
	return nil
}

// BuildClient creates a strategy for every configured wallet and a client
// over them. The returned cleanup closes the client and any browser it
// launched.
func (a *App) BuildClient(ctx context.Context, metrics *walletkit.Metrics) (*walletkit.WalletClient, func(), error) {
	cfg := a.Config
	var sessions []*browser.Session

	cleanup := func() {
		for _, s := range sessions {
			if err := s.Close(); err != nil {
				a.Logger.Warn("failed to close browser", "error", err)
			}
		}
	}

	registry := walletkit.NewRegistry().
		RegisterFactory(walletkit.WalletTypeEVM, func(opts ...walletkit.StrategyOption) (walletkit.Strategy, error) {
			client, err := evm.Dial(ctx, cfg.EVM.RPCURL)
			if err != nil {
				return nil, err
			}
			var walletOpts []evm.Option
			if cfg.EVM.Preapproved {
				walletOpts = append(walletOpts, evm.WithPreapproved())
			}
			return evm.NewStrategy(evm.KeyProbe(cfg.EVM.KeyEnv, client, walletOpts...), opts...), nil
		}).
		RegisterFactory(walletkit.WalletTypeSVM, func(opts ...walletkit.StrategyOption) (walletkit.Strategy, error) {
			var walletOpts []svm.Option
			if cfg.SVM.Preapproved {
				walletOpts = append(walletOpts, svm.WithPreapproved())
			}
			client := svm.NewRPCClient(cfg.SVM.RPCURL)
			return svm.NewStrategy(svm.KeyProbe(cfg.SVM.KeyEnv, client, walletOpts...), opts...), nil
		}).
		RegisterFactory(walletkit.WalletTypeSui, func(opts ...walletkit.StrategyOption) (walletkit.Strategy, error) {
			session, err := browser.Launch(browser.LaunchOptions{
				URL:           cfg.Browser.URL,
				ExtensionPath: cfg.Browser.ExtensionPath,
				UserDataDir:   cfg.Browser.UserDataDir,
				Headless:      cfg.Browser.Headless,
				Install:       cfg.Browser.Install,
			})
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, session)

			env, err := browser.NewEnvironment(session.Page, browser.WithLogger(a.Logger))
			if err != nil {
				return nil, err
			}
			return sui.NewStrategy(session.Page, env, opts...), nil
		})

	strategyOpts := []walletkit.StrategyOption{
		walletkit.WithStrategyLogger(a.Logger),
		walletkit.WithStrategyMetrics(metrics),
		walletkit.WithBaseContext(ctx),
		walletkit.WithDetectorOptions(
			detector.WithTimeout(cfg.Detection.Timeout),
			detector.WithIdleTimeout(cfg.Detection.IdleTimeout),
		),
	}

	client := walletkit.NewWalletClient(
		walletkit.WithSubmissionCache(cfg.SubmissionCacheTTL),
		walletkit.WithClientLogger(a.Logger),
	)
	closeAll := func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn("failed to close wallet client", "error", err)
		}
		cleanup()
	}

	for _, name := range cfg.Wallets {
		s, err := registry.Create(walletkit.WalletType(name), strategyOpts...)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create %s wallet: %w", name, err)
		}
		client.Register(s)
	}

	return client, closeAll, nil
}
