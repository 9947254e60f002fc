package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	walletkit "github.com/x402-foundation/walletkit"
	"github.com/x402-foundation/walletkit/detector"
)

// ErrPermissionNotGranted is returned when a transaction is submitted
// before the wallet granted account access.
var ErrPermissionNotGranted = errors.New("account access has not been granted")

// ChainClient is the subset of *ethclient.Client used for submission.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyWallet is a wallet backed by a local secp256k1 key. It signs
// EIP-1559 transactions and submits them through a ChainClient.
type KeyWallet struct {
	privateKey  *ecdsa.PrivateKey
	address     common.Address
	client      ChainClient
	permissions *walletkit.Permissions
}

// Option configures a KeyWallet.
type Option func(*walletOptions)

type walletOptions struct {
	granted  bool
	approver walletkit.Approver
}

// WithPreapproved marks account access as already granted, so a strategy
// connects as soon as the wallet is detected.
func WithPreapproved() Option {
	return func(o *walletOptions) {
		o.granted = true
	}
}

// WithApprover sets how permission requests are decided.
//
// Default: walletkit.AutoApprove
func WithApprover(approver walletkit.Approver) Option {
	return func(o *walletOptions) {
		o.approver = approver
	}
}

// NewKeyWallet creates a wallet from a hex-encoded private key, with or
// without the "0x" prefix.
func NewKeyWallet(privateKeyHex string, client ChainClient, opts ...Option) (*KeyWallet, error) {
	var o walletOptions
	for _, opt := range opts {
		opt(&o)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &KeyWallet{
		privateKey:  privateKey,
		address:     crypto.PubkeyToAddress(privateKey.PublicKey),
		client:      client,
		permissions: walletkit.NewPermissions(o.granted, o.approver),
	}, nil
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// Address returns the checksummed address of the key.
func (w *KeyWallet) Address() string {
	return w.address.Hex()
}

// HasPermissions implements walletkit.Wallet.
func (w *KeyWallet) HasPermissions(ctx context.Context) (bool, error) {
	return w.permissions.Granted(), nil
}

// RequestPermissions implements walletkit.Wallet.
func (w *KeyWallet) RequestPermissions(ctx context.Context) (bool, error) {
	return w.permissions.Request(ctx, walletkit.WalletTypeEVM, []string{w.Address()})
}

// GetAccounts implements walletkit.Wallet.
func (w *KeyWallet) GetAccounts(ctx context.Context) ([]string, error) {
	return []string{w.Address()}, nil
}

// ExecuteTransaction signs tx as a dynamic fee transaction and submits it.
// Missing nonce, fees and gas limit are taken from the chain.
func (w *KeyWallet) ExecuteTransaction(ctx context.Context, tx walletkit.Transaction) (walletkit.TransactionResponse, error) {
	if !w.permissions.Granted() {
		return nil, ErrPermissionNotGranted
	}
	if w.client == nil {
		return nil, fmt.Errorf("no chain client configured")
	}

	req, err := ParseTransaction(tx)
	if err != nil {
		return nil, err
	}

	signed, err := w.SignTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return walletkit.TransactionResponse{
		"hash":    signed.Hash().Hex(),
		"from":    w.Address(),
		"to":      req.To.Hex(),
		"nonce":   signed.Nonce(),
		"chainId": signed.ChainId().String(),
	}, nil
}

// SignTransaction fills in req from the chain and signs it.
func (w *KeyWallet) SignTransaction(ctx context.Context, req *TxRequest) (*types.Transaction, error) {
	chainID, err := w.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else if nonce, err = w.client.PendingNonceAt(ctx, w.address); err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tipCap := req.MaxPriorityFeePerGas
	if tipCap == nil {
		if tipCap, err = w.client.SuggestGasTipCap(ctx); err != nil {
			return nil, fmt.Errorf("failed to suggest gas tip: %w", err)
		}
	}

	feeCap := req.MaxFeePerGas
	if feeCap == nil {
		head, err := w.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest header: %w", err)
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		feeCap = new(big.Int).Add(tipCap, new(big.Int).Mul(baseFee, big.NewInt(2)))
	}

	gas := req.Gas
	if gas == 0 {
		to := req.To
		gas, err = w.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: req.Value,
			Data:  req.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	to := req.To
	signed, err := types.SignNewTx(w.privateKey, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     req.Value,
		Data:      req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// KeyProbe detects a key provisioned in the environment variable keyEnv.
// It keeps failing while the variable is unset or holds an invalid key.
func KeyProbe(keyEnv string, client ChainClient, opts ...Option) detector.Probe[walletkit.Wallet] {
	return func() (walletkit.Wallet, bool) {
		key := os.Getenv(keyEnv)
		if key == "" {
			return nil, false
		}
		w, err := NewKeyWallet(key, client, opts...)
		if err != nil {
			return nil, false
		}
		return w, true
	}
}

// NewStrategy creates an EVM strategy that detects a key through probe and
// validates transactions against TransactionSchema.
func NewStrategy(probe detector.Probe[walletkit.Wallet], opts ...walletkit.StrategyOption) *walletkit.WalletStrategy {
	opts = append([]walletkit.StrategyOption{walletkit.WithTransactionValidator(Validator())}, opts...)
	return walletkit.NewWalletStrategy(walletkit.WalletTypeEVM, probe, opts...)
}

var (
	_ walletkit.Wallet = (*KeyWallet)(nil)
	_ ChainClient      = (*ethclient.Client)(nil)
)
