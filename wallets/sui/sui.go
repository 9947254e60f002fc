// Package sui detects the Sui browser wallet injected as window.suiWallet
// and submits move calls through it.
package sui

import (
	"context"
	"encoding/base64"
	"fmt"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/browser"
	"github.com/x402-foundation/walletkit/detector"
)

// Global is the window property the wallet extension injects.
const Global = "suiWallet"

const executeSerializedMoveCall = "executeSerializedMoveCall"

// Methods are the wallet functions used by the strategy.
var Methods = browser.Methods{
	HasPermissions:     "hasPermissions",
	RequestPermissions: "requestPermissions",
	GetAccounts:        "getAccounts",
	Execute:            "executeMoveCall",
}

// TransactionSchema accepts either a move call or base64 transaction bytes
// under "transactionBytes".
const TransactionSchema = `{
	"type": "object",
	"oneOf": [
		{
			"required": ["packageObjectId", "module", "function", "typeArguments", "arguments", "gasBudget"],
			"properties": {
				"packageObjectId": {"type": "string", "pattern": "^0x[0-9a-fA-F]+$"},
				"module": {"type": "string", "minLength": 1},
				"function": {"type": "string", "minLength": 1},
				"typeArguments": {"type": "array", "items": {"type": "string"}},
				"arguments": {"type": "array"},
				"gasPayment": {"type": "string"},
				"gasBudget": {"type": "integer", "minimum": 1}
			}
		},
		{
			"required": ["transactionBytes"],
			"properties": {
				"transactionBytes": {"type": "string", "minLength": 1}
			}
		}
	]
}`

var validator = walletkit.MustSchemaValidator([]byte(TransactionSchema))

// Validator returns the validator for TransactionSchema.
func Validator() *walletkit.SchemaValidator {
	return validator
}

// Wallet is the injected Sui wallet.
type Wallet struct {
	*browser.PageWallet
}

// NewWallet binds window.suiWallet on page.
func NewWallet(page browser.Page) *Wallet {
	return &Wallet{PageWallet: browser.NewPageWallet(page, Global, Methods)}
}

// ExecuteTransaction runs a move call, or executes serialized transaction
// bytes when tx carries "transactionBytes".
func (w *Wallet) ExecuteTransaction(ctx context.Context, tx walletkit.Transaction) (walletkit.TransactionResponse, error) {
	encoded, ok := tx["transactionBytes"].(string)
	if !ok {
		return w.PageWallet.ExecuteTransaction(ctx, tx)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction bytes: %w", err)
	}
	v, err := w.Call(ctx, executeSerializedMoveCall, browser.Bytes(raw))
	if err != nil {
		return nil, err
	}
	return browser.ToResponse(v), nil
}

// Probe succeeds once window.suiWallet exists on page.
func Probe(page browser.Page) detector.Probe[walletkit.Wallet] {
	present := browser.GlobalProbe(page, Global, Methods)
	return func() (walletkit.Wallet, bool) {
		if _, ok := present(); !ok {
			return nil, false
		}
		return NewWallet(page), true
	}
}

// NewStrategy creates a Sui strategy detecting the wallet on page. env
// should be the browser environment of the same page.
func NewStrategy(page browser.Page, env detector.Environment, opts ...walletkit.StrategyOption) *walletkit.WalletStrategy {
	opts = append([]walletkit.StrategyOption{
		walletkit.WithEnvironment(env),
		walletkit.WithTransactionValidator(Validator()),
	}, opts...)
	return walletkit.NewWalletStrategy(walletkit.WalletTypeSui, Probe(page), opts...)
}

var _ walletkit.Wallet = (*Wallet)(nil)
