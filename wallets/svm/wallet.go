package svm

import (
	"context"
	"errors"
	"fmt"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/detector"
)

// ErrPermissionNotGranted is returned when a transaction is submitted
// before the wallet granted account access.
var ErrPermissionNotGranted = errors.New("account access has not been granted")

// ChainClient fetches blockhashes and submits signed transactions.
type ChainClient interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// RPCClient adapts *rpc.Client to ChainClient.
type RPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a ChainClient for a Solana JSON-RPC endpoint.
func NewRPCClient(rpcURL string) *RPCClient {
	return &RPCClient{client: rpc.New(rpcURL)}
}

// LatestBlockhash returns the latest finalized blockhash.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	latest, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return latest.Value.Blockhash, nil
}

// SendTransaction submits tx.
func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return c.client.SendTransaction(ctx, tx)
}

// KeypairWallet is a wallet backed by a local ed25519 keypair.
type KeypairWallet struct {
	privateKey  solana.PrivateKey
	client      ChainClient
	permissions *walletkit.Permissions
}

// Option configures a KeypairWallet.
type Option func(*walletOptions)

type walletOptions struct {
	granted  bool
	approver walletkit.Approver
}

// WithPreapproved marks account access as already granted.
func WithPreapproved() Option {
	return func(o *walletOptions) {
		o.granted = true
	}
}

// WithApprover sets how permission requests are decided.
func WithApprover(approver walletkit.Approver) Option {
	return func(o *walletOptions) {
		o.approver = approver
	}
}

// NewKeypairWallet creates a wallet from a base58-encoded private key.
func NewKeypairWallet(privateKeyBase58 string, client ChainClient, opts ...Option) (*KeypairWallet, error) {
	var o walletOptions
	for _, opt := range opts {
		opt(&o)
	}

	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &KeypairWallet{
		privateKey:  privateKey,
		client:      client,
		permissions: walletkit.NewPermissions(o.granted, o.approver),
	}, nil
}

// PublicKey returns the wallet's public key.
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.privateKey.PublicKey()
}

func (w *KeypairWallet) HasPermissions(ctx context.Context) (bool, error) {
	return w.permissions.Granted(), nil
}

func (w *KeypairWallet) RequestPermissions(ctx context.Context) (bool, error) {
	return w.permissions.Request(ctx, walletkit.WalletTypeSVM, []string{w.PublicKey().String()})
}

func (w *KeypairWallet) GetAccounts(ctx context.Context) ([]string, error) {
	return []string{w.PublicKey().String()}, nil
}

// ExecuteTransaction signs and submits tx. A serialized "transaction" is
// signed as-is; a "transfer" is built against the latest blockhash with
// this wallet as fee payer.
func (w *KeypairWallet) ExecuteTransaction(ctx context.Context, tx walletkit.Transaction) (walletkit.TransactionResponse, error) {
	if !w.permissions.Granted() {
		return nil, ErrPermissionNotGranted
	}
	if w.client == nil {
		return nil, fmt.Errorf("no chain client configured")
	}

	solTx, err := w.prepare(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := w.SignTransaction(ctx, solTx); err != nil {
		return nil, err
	}

	signature, err := w.client.SendTransaction(ctx, solTx)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return walletkit.TransactionResponse{
		"signature": signature.String(),
		"from":      w.PublicKey().String(),
	}, nil
}

func (w *KeypairWallet) prepare(ctx context.Context, tx walletkit.Transaction) (*solana.Transaction, error) {
	if encoded, ok := tx["transaction"].(string); ok {
		return DecodeTransaction(encoded)
	}

	transfer, err := ParseTransfer(tx)
	if err != nil {
		return nil, err
	}
	blockhash, err := w.client.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return BuildTransfer(w.PublicKey(), transfer, blockhash)
}

// SignTransaction adds this wallet's signature at its account index,
// leaving other signatures in place.
func (w *KeypairWallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	signature, err := w.privateKey.Sign(messageBytes)
	if err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}

	accountIndex, err := tx.GetAccountIndex(w.PublicKey())
	if err != nil {
		return fmt.Errorf("failed to get account index: %w", err)
	}
	if int(accountIndex) >= int(tx.Message.Header.NumRequiredSignatures) {
		return fmt.Errorf("%s is not a signer of the transaction", w.PublicKey())
	}

	if len(tx.Signatures) <= int(accountIndex) {
		signatures := make([]solana.Signature, accountIndex+1)
		copy(signatures, tx.Signatures)
		tx.Signatures = signatures
	}
	tx.Signatures[accountIndex] = signature

	return nil
}

// KeyProbe detects a keypair provisioned in the environment variable
// keyEnv.
func KeyProbe(keyEnv string, client ChainClient, opts ...Option) detector.Probe[walletkit.Wallet] {
	return func() (walletkit.Wallet, bool) {
		key := os.Getenv(keyEnv)
		if key == "" {
			return nil, false
		}
		w, err := NewKeypairWallet(key, client, opts...)
		if err != nil {
			return nil, false
		}
		return w, true
	}
}

// NewStrategy creates a Solana strategy validating against
// TransactionSchema.
func NewStrategy(probe detector.Probe[walletkit.Wallet], opts ...walletkit.StrategyOption) *walletkit.WalletStrategy {
	opts = append([]walletkit.StrategyOption{walletkit.WithTransactionValidator(Validator())}, opts...)
	return walletkit.NewWalletStrategy(walletkit.WalletTypeSVM, probe, opts...)
}

var (
	_ walletkit.Wallet = (*KeypairWallet)(nil)
	_ ChainClient      = (*RPCClient)(nil)
)
