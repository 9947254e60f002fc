package walletkit

import (
	"errors"
	"fmt"
)

// WalletError is the error type returned by strategies and the client.
// Two WalletErrors match under errors.Is when their codes are equal.
type WalletError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WalletError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a WalletError with the same code.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	ErrCodeWalletNotDetected     = "wallet_not_detected"
	ErrCodeWalletNotSupported    = "wallet_not_supported"
	ErrCodeWalletNotConnected    = "wallet_not_connected"
	ErrCodeSignTransactionFailed = "sign_transaction_failed"
	ErrCodeInvalidTransaction    = "invalid_transaction"
	ErrCodeUnsupportedWallet     = "unsupported_wallet"
)

var (
	// ErrWalletNotDetected is returned when no wallet has been detected,
	// either because detection is still running or because it timed out.
	ErrWalletNotDetected = &WalletError{
		Code:    ErrCodeWalletNotDetected,
		Message: "Wallet is not detected",
	}

	// ErrWalletNotSupported is returned when the environment cannot host
	// the wallet.
	ErrWalletNotSupported = &WalletError{
		Code:    ErrCodeWalletNotSupported,
		Message: "Wallet not supported in current environment",
	}

	// ErrWalletNotConnected is returned by the client when no strategy has
	// connected yet.
	ErrWalletNotConnected = &WalletError{
		Code:    ErrCodeWalletNotConnected,
		Message: "Wallet hasn't been connected yet",
	}
)

// NewWalletError creates a new wallet error
func NewWalletError(code, message string, details map[string]interface{}) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewSignTransactionError wraps a failure reported by the wallet while
// executing a transaction. The message is carried over verbatim.
func NewSignTransactionError(err error) *WalletError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &WalletError{
		Code:    ErrCodeSignTransactionFailed,
		Message: msg,
		Err:     err,
	}
}

// NewInvalidTransactionError reports a transaction rejected by validation.
func NewInvalidTransactionError(problems []string) *WalletError {
	msg := "transaction is invalid"
	if len(problems) > 0 {
		msg = fmt.Sprintf("transaction is invalid: %s", problems[0])
	}
	return &WalletError{
		Code:    ErrCodeInvalidTransaction,
		Message: msg,
		Details: map[string]interface{}{
			"errors": problems,
		},
	}
}

// NewUnsupportedWalletError reports an unknown wallet type.
func NewUnsupportedWalletError(walletType WalletType) *WalletError {
	return &WalletError{
		Code:    ErrCodeUnsupportedWallet,
		Message: fmt.Sprintf("unsupported wallet type %q", walletType),
		Details: map[string]interface{}{
			"walletType": string(walletType),
		},
	}
}

// ErrorCode extracts the WalletError code from err, or "" when err is not
// a WalletError.
func ErrorCode(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}
