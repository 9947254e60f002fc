package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "detection.timeout")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidWallets returns the wallet types the binary can run
func ValidWallets() []string {
	return []string{"sui", "evm", "svm"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, ValidationError{Field: "listen", Value: c.Listen, Message: "must be host:port"})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.LogLevel)) {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Value:   c.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if len(c.Wallets) == 0 {
		errs = append(errs, ValidationError{Field: "wallets", Value: c.Wallets, Message: "at least one wallet is required"})
	}
	for _, w := range c.Wallets {
		if !slices.Contains(ValidWallets(), w) {
			errs = append(errs, ValidationError{
				Field:   "wallets",
				Value:   w,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidWallets(), ", ")),
			})
		}
	}

	if c.SubmissionCacheTTL < 0 {
		errs = append(errs, ValidationError{Field: "submission_cache_ttl", Value: c.SubmissionCacheTTL, Message: "must be non-negative"})
	}

	errs = append(errs, c.validateDetection()...)
	if slices.Contains(c.Wallets, "sui") {
		errs = append(errs, c.validateBrowser()...)
	}
	if slices.Contains(c.Wallets, "evm") {
		errs = append(errs, validateChain("evm", c.EVM)...)
	}
	if slices.Contains(c.Wallets, "svm") {
		errs = append(errs, validateChain("svm", c.SVM)...)
	}

	return errs
}

func (c *Config) validateDetection() []ValidationError {
	var errs []ValidationError
	if c.Detection.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "detection.timeout", Value: c.Detection.Timeout, Message: "must be positive"})
	}
	if c.Detection.IdleTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "detection.idle_timeout", Value: c.Detection.IdleTimeout, Message: "must be positive"})
	} else if c.Detection.IdleTimeout > time.Minute {
		errs = append(errs, ValidationError{Field: "detection.idle_timeout", Value: c.Detection.IdleTimeout, Message: "must be at most 1m"})
	}
	return errs
}

func (c *Config) validateBrowser() []ValidationError {
	var errs []ValidationError
	if c.Browser.URL == "" {
		errs = append(errs, ValidationError{Field: "browser.url", Value: c.Browser.URL, Message: "is required for the sui wallet"})
	} else if u, err := url.Parse(c.Browser.URL); err != nil || u.Scheme == "" {
		errs = append(errs, ValidationError{Field: "browser.url", Value: c.Browser.URL, Message: "must be an absolute URL"})
	}
	if c.Browser.ExtensionPath != "" && c.Browser.UserDataDir == "" {
		errs = append(errs, ValidationError{Field: "browser.user_data_dir", Value: c.Browser.UserDataDir, Message: "is required with browser.extension_path"})
	}
	return errs
}

func validateChain(prefix string, c ChainConfig) []ValidationError {
	var errs []ValidationError
	if u, err := url.Parse(c.RPCURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: prefix + ".rpc_url", Value: c.RPCURL, Message: "must be an absolute URL"})
	}
	if c.KeyEnv == "" {
		errs = append(errs, ValidationError{Field: prefix + ".key_env", Value: c.KeyEnv, Message: "must name an environment variable"})
	}
	return errs
}
