// Package http exposes a WalletClient over REST. The same routes can be
// served by a gin engine (NewEngine) or mounted on an echo instance
// (RegisterEcho).
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	walletkit "github.com/x402-foundation/walletkit"
)

// Route paths.
const (
	PathHealth       = "/healthz"
	PathMetrics      = "/metrics"
	PathWallets      = "/v1/wallets"
	PathConnect      = "/v1/wallets/:type/connect"
	PathTransactions = "/v1/transactions"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// StatusResponse is returned by GET /v1/wallets.
type StatusResponse struct {
	Connected bool               `json:"connected"`
	Current   string             `json:"current,omitempty"`
	Accounts  []string           `json:"accounts"`
	Wallets   []walletkit.Status `json:"wallets"`
}

// ConnectResponse is returned by POST /v1/wallets/:type/connect.
type ConnectResponse struct {
	Type      walletkit.WalletType  `json:"type"`
	Connected bool                  `json:"connected"`
	State     walletkit.WalletState `json:"state"`
	Accounts  []string              `json:"accounts"`
}

// SubmitRequest is the body of POST /v1/transactions.
type SubmitRequest struct {
	Transaction walletkit.Transaction `json:"transaction"`
}

// SubmitResponse is returned by POST /v1/transactions.
type SubmitResponse struct {
	Type     walletkit.WalletType          `json:"type"`
	Response walletkit.TransactionResponse `json:"response"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Handler holds the framework-neutral route logic.
type Handler struct {
	client   *walletkit.WalletClient
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics.
//
// Default: prometheus.DefaultGatherer
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

// NewHandler creates a Handler for client.
func NewHandler(client *walletkit.WalletClient, opts ...Option) *Handler {
	h := &Handler{
		client:   client,
		logger:   slog.New(slog.DiscardHandler),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "http")
	return h
}

// Status reports every registered strategy.
func (h *Handler) Status() (int, interface{}) {
	resp := StatusResponse{
		Connected: h.client.IsConnected(),
		Accounts:  h.client.Accounts(),
		Wallets:   h.client.Statuses(),
	}
	if current, ok := h.client.Current(); ok {
		resp.Current = current.Type().String()
	}
	return http.StatusOK, resp
}

// Connect connects the strategy named by rawType.
func (h *Handler) Connect(ctx context.Context, rawType string) (int, interface{}) {
	walletType, err := walletkit.ParseWalletType(rawType)
	if err != nil {
		return errorBody(err)
	}

	connected, err := h.client.Connect(ctx, walletType)
	if err != nil {
		h.logger.Warn("connect failed", "wallet", walletType, "error", err)
		return errorBody(err)
	}

	s, _ := h.client.Strategy(walletType)
	return http.StatusOK, ConnectResponse{
		Type:      walletType,
		Connected: connected,
		State:     s.State(),
		Accounts:  s.Accounts(),
	}
}

// Submit decodes body and routes the transaction to the current wallet.
func (h *Handler) Submit(ctx context.Context, body []byte) (int, interface{}) {
	tx, err := DecodeSubmitRequest(body)
	if err != nil {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"}
	}

	resp, err := h.client.SignAndSubmitTransaction(ctx, tx)
	if err != nil {
		h.logger.Warn("submission failed", "error", err)
		return errorBody(err)
	}

	out := SubmitResponse{Response: resp}
	if current, ok := h.client.Current(); ok {
		out.Type = current.Type()
	}
	return http.StatusOK, out
}

// StatusCode maps an error to an HTTP status.
func StatusCode(err error) int {
	switch walletkit.ErrorCode(err) {
	case walletkit.ErrCodeUnsupportedWallet, walletkit.ErrCodeInvalidTransaction:
		return http.StatusBadRequest
	case walletkit.ErrCodeWalletNotDetected:
		return http.StatusNotFound
	case walletkit.ErrCodeWalletNotConnected:
		return http.StatusConflict
	case walletkit.ErrCodeWalletNotSupported:
		return http.StatusPreconditionFailed
	case walletkit.ErrCodeSignTransactionFailed:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorBody(err error) (int, interface{}) {
	resp := ErrorResponse{Error: err.Error()}
	var walletErr *walletkit.WalletError
	if errors.As(err, &walletErr) {
		resp.Code = walletErr.Code
		resp.Error = walletErr.Message
		resp.Details = walletErr.Details
	}
	return StatusCode(err), resp
}
