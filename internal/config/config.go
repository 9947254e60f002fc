package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g.
// WALLETKIT_DETECTION_TIMEOUT for detection.timeout.
const EnvPrefix = "WALLETKIT"

// Config is the walletkit binary configuration
type Config struct {
	// Listen is the address the REST bridge binds to
	Listen string `mapstructure:"listen"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// Wallets lists the wallet types to detect
	Wallets []string `mapstructure:"wallets"`
	// SubmissionCacheTTL de-duplicates identical submissions (0 = disabled)
	SubmissionCacheTTL time.Duration `mapstructure:"submission_cache_ttl"`

	Detection DetectionConfig `mapstructure:"detection"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	EVM       ChainConfig     `mapstructure:"evm"`
	SVM       ChainConfig     `mapstructure:"svm"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// DetectionConfig controls wallet polling
type DetectionConfig struct {
	// Timeout bounds how long a wallet is polled for
	Timeout time.Duration `mapstructure:"timeout"`
	// IdleTimeout bounds the wait for each idle slot
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// BrowserConfig controls the page the Sui wallet is detected in
type BrowserConfig struct {
	URL           string `mapstructure:"url"`
	ExtensionPath string `mapstructure:"extension_path"`
	UserDataDir   string `mapstructure:"user_data_dir"`
	Headless      bool   `mapstructure:"headless"`
	// Install downloads the browser driver on start
	Install bool `mapstructure:"install"`
}

// ChainConfig configures a key-backed wallet
type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
	// KeyEnv names the environment variable holding the private key
	KeyEnv string `mapstructure:"key_env"`
	// Preapproved connects as soon as the key is found
	Preapproved bool `mapstructure:"preapproved"`
}

// MCPConfig controls the MCP tool surface
type MCPConfig struct {
	// Enabled serves the MCP tools over stdio
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Listen:             "127.0.0.1:8402",
		LogLevel:           "info",
		Wallets:            []string{"evm", "svm"},
		SubmissionCacheTTL: time.Minute,
		Detection: DetectionConfig{
			Timeout:     15 * time.Second,
			IdleTimeout: time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		EVM: ChainConfig{
			RPCURL: "https://sepolia.base.org",
			KeyEnv: "EVM_PRIVATE_KEY",
		},
		SVM: ChainConfig{
			RPCURL: "https://api.devnet.solana.com",
			KeyEnv: "SVM_PRIVATE_KEY",
		},
	}
}

// SetDefaults registers the defaults on v so every key is known to
// environment lookups even without a config file
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("wallets", defaults.Wallets)
	v.SetDefault("submission_cache_ttl", defaults.SubmissionCacheTTL)

	v.SetDefault("detection.timeout", defaults.Detection.Timeout)
	v.SetDefault("detection.idle_timeout", defaults.Detection.IdleTimeout)

	v.SetDefault("browser.url", defaults.Browser.URL)
	v.SetDefault("browser.extension_path", defaults.Browser.ExtensionPath)
	v.SetDefault("browser.user_data_dir", defaults.Browser.UserDataDir)
	v.SetDefault("browser.headless", defaults.Browser.Headless)
	v.SetDefault("browser.install", defaults.Browser.Install)

	v.SetDefault("evm.rpc_url", defaults.EVM.RPCURL)
	v.SetDefault("evm.key_env", defaults.EVM.KeyEnv)
	v.SetDefault("evm.preapproved", defaults.EVM.Preapproved)

	v.SetDefault("svm.rpc_url", defaults.SVM.RPCURL)
	v.SetDefault("svm.key_env", defaults.SVM.KeyEnv)
	v.SetDefault("svm.preapproved", defaults.SVM.Preapproved)

	v.SetDefault("mcp.enabled", defaults.MCP.Enabled)
}

// Load reads configFile (or walletkit.yaml from the working directory and
// $HOME/.config/walletkit when empty) plus WALLETKIT_* environment
// variables into a validated Config. A missing default config file is not
// an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("walletkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/walletkit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Wallets = splitList(cfg.Wallets)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return cfg, nil
}

// splitList normalizes list entries given as "evm,svm" or "evm svm".
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
