package browser

import (
	"context"
	"fmt"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/detector"
)

const (
	presentScript = `name => typeof window[name] === 'object' && window[name] !== null`

	callScript = `async ([name, method, args]) => {
		const wallet = window[name];
		if (!wallet || typeof wallet[method] !== 'function') {
			throw new Error('wallet method ' + method + ' is not available');
		}
		const decoded = args.map(a => a && Array.isArray(a.__bytes) ? Uint8Array.from(a.__bytes) : a);
		return await wallet[method](...decoded);
	}`
)

// Methods names the functions of an injected wallet object.
type Methods struct {
	HasPermissions     string
	RequestPermissions string
	GetAccounts        string
	Execute            string
}

// DefaultMethods matches wallets exposing hasPermissions,
// requestPermissions, getAccounts and signAndExecuteTransaction.
var DefaultMethods = Methods{
	HasPermissions:     "hasPermissions",
	RequestPermissions: "requestPermissions",
	GetAccounts:        "getAccounts",
	Execute:            "signAndExecuteTransaction",
}

// PageWallet is a wallet object injected into a page as a global.
type PageWallet struct {
	page    Page
	global  string
	methods Methods
}

// NewPageWallet creates a wallet backed by window[global].
func NewPageWallet(page Page, global string, methods Methods) *PageWallet {
	return &PageWallet{page: page, global: global, methods: methods}
}

// Global returns the name of the global the wallet lives in.
func (w *PageWallet) Global() string {
	return w.global
}

// Bytes wraps b so it reaches the page as a Uint8Array argument.
func Bytes(b []byte) map[string]interface{} {
	ints := make([]interface{}, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return map[string]interface{}{"__bytes": ints}
}

// Call invokes window[global][method](...args) and returns its awaited
// result.
func (w *PageWallet) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	return evaluate(ctx, w.page, callScript, []interface{}{w.global, method, args})
}

// HasPermissions implements walletkit.Wallet.
func (w *PageWallet) HasPermissions(ctx context.Context) (bool, error) {
	v, err := w.Call(ctx, w.methods.HasPermissions)
	if err != nil {
		return false, err
	}
	granted, _ := v.(bool)
	return granted, nil
}

// RequestPermissions implements walletkit.Wallet.
func (w *PageWallet) RequestPermissions(ctx context.Context) (bool, error) {
	v, err := w.Call(ctx, w.methods.RequestPermissions)
	if err != nil {
		return false, err
	}
	approved, _ := v.(bool)
	return approved, nil
}

// GetAccounts implements walletkit.Wallet.
func (w *PageWallet) GetAccounts(ctx context.Context) ([]string, error) {
	v, err := w.Call(ctx, w.methods.GetAccounts)
	if err != nil {
		return nil, err
	}

	raw, ok := v.([]interface{})
	if !ok && v != nil {
		return nil, fmt.Errorf("unexpected accounts value of type %T", v)
	}
	accounts := make([]string, 0, len(raw))
	for _, a := range raw {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected account of type %T", a)
		}
		accounts = append(accounts, s)
	}
	return accounts, nil
}

// ExecuteTransaction implements walletkit.Wallet. Errors thrown in the
// page are returned as they are.
func (w *PageWallet) ExecuteTransaction(ctx context.Context, tx walletkit.Transaction) (walletkit.TransactionResponse, error) {
	v, err := w.Call(ctx, w.methods.Execute, map[string]interface{}(tx))
	if err != nil {
		return nil, err
	}
	return ToResponse(v), nil
}

// ToResponse converts a value returned from the page into a
// TransactionResponse. Non-object values are kept under "result".
func ToResponse(v interface{}) walletkit.TransactionResponse {
	switch resp := v.(type) {
	case map[string]interface{}:
		return walletkit.TransactionResponse(resp)
	case nil:
		return walletkit.TransactionResponse{}
	default:
		return walletkit.TransactionResponse{"result": resp}
	}
}

// GlobalProbe returns a probe that succeeds once window[global] holds an
// object.
func GlobalProbe(page Page, global string, methods Methods) detector.Probe[walletkit.Wallet] {
	return func() (walletkit.Wallet, bool) {
		v, err := page.Evaluate(presentScript, global)
		if err != nil {
			return nil, false
		}
		if present, _ := v.(bool); !present {
			return nil, false
		}
		return NewPageWallet(page, global, methods), true
	}
}

var _ walletkit.Wallet = (*PageWallet)(nil)
