package walletkit

import "context"

// Wallet is the capability a detected wallet exposes.
//
// Implementations:
//   - browser.PageWallet: a wallet object injected into a browser page
//   - evm.KeyWallet: a locally provisioned secp256k1 key
//   - svm.KeypairWallet: a locally provisioned ed25519 keypair
type Wallet interface {
	// HasPermissions reports whether the host already holds permission.
	HasPermissions(ctx context.Context) (bool, error)

	// RequestPermissions asks for permission. It returns false when the
	// request was denied.
	RequestPermissions(ctx context.Context) (bool, error)

	// GetAccounts returns the accounts the host may act for.
	GetAccounts(ctx context.Context) ([]string, error)

	// ExecuteTransaction signs and submits tx.
	ExecuteTransaction(ctx context.Context, tx Transaction) (TransactionResponse, error)
}

// Strategy is the per-kind wallet integration consumed by WalletClient and
// the outer surfaces. WalletStrategy is the only implementation in this
// module; the interface exists so consumers can be tested with fakes.
type Strategy interface {
	Type() WalletType
	State() WalletState
	Accounts() []string
	Detected() bool

	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context) (bool, error)
	SignAndSubmitTransaction(ctx context.Context, tx Transaction) (TransactionResponse, error)

	OnDetect(fn func()) string
	OnConnect(fn func(WalletType)) string
	Off(id string) bool

	Close() error
}

// TransactionValidator checks a transaction before it reaches the wallet.
type TransactionValidator interface {
	Validate(tx Transaction) error
}
