package walletkit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WalletType identifies a wallet kind. It is the dispatch key of the
// aggregation layer.
type WalletType string

const (
	WalletTypeSui WalletType = "sui"
	WalletTypeEVM WalletType = "evm"
	WalletTypeSVM WalletType = "svm"
)

// ParseWalletType normalizes s into a WalletType.
func ParseWalletType(s string) (WalletType, error) {
	switch t := WalletType(strings.ToLower(strings.TrimSpace(s))); t {
	case WalletTypeSui, WalletTypeEVM, WalletTypeSVM:
		return t, nil
	case "solana":
		return WalletTypeSVM, nil
	case "ethereum", "eip155":
		return WalletTypeEVM, nil
	default:
		return "", NewUnsupportedWalletError(WalletType(s))
	}
}

func (t WalletType) String() string {
	return string(t)
}

// WalletState is the connection state of a strategy.
type WalletState int

const (
	// WalletStateUnsupported means the environment cannot host the wallet.
	WalletStateUnsupported WalletState = iota
	// WalletStateSupported means the wallet can be connected.
	WalletStateSupported
	// WalletStateConnecting means a permission request is outstanding.
	WalletStateConnecting
	// WalletStateConnected means permission was granted and accounts are known.
	WalletStateConnected
)

var walletStateNames = map[WalletState]string{
	WalletStateUnsupported: "unsupported",
	WalletStateSupported:   "supported",
	WalletStateConnecting:  "connecting",
	WalletStateConnected:   "connected",
}

func (s WalletState) String() string {
	if name, ok := walletStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("WalletState(%d)", int(s))
}

// MarshalJSON encodes the state by name.
func (s WalletState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Transaction is an opaque transaction call. Each wallet kind documents the
// keys it understands.
type Transaction map[string]interface{}

// TransactionResponse is the opaque result of a submitted transaction.
type TransactionResponse map[string]interface{}

// Status is a point-in-time view of a strategy.
type Status struct {
	Type     WalletType  `json:"type"`
	State    WalletState `json:"state"`
	Detected bool        `json:"detected"`
	Accounts []string    `json:"accounts"`
}

func copyAccounts(accounts []string) []string {
	out := make([]string, len(accounts))
	copy(out, accounts)
	return out
}
