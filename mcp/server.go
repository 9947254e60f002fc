package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	walletkit "github.com/x402-foundation/walletkit"
)

// Tool names.
const (
	ToolStatus  = "wallet_status"
	ToolConnect = "wallet_connect"
	ToolSubmit  = "wallet_sign_and_submit_transaction"
)

// Server exposes a WalletClient as MCP tools.
type Server struct {
	client *walletkit.WalletClient
	logger *slog.Logger
	server *mcpsdk.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server with the wallet tools registered.
func NewServer(client *walletkit.WalletClient, opts ...Option) *Server {
	s := &Server{
		client: client,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")

	s.server = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "walletkit",
		Version: walletkit.Version,
	}, nil)

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolStatus,
		Description: "Report detection and connection state of every wallet",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleStatus)

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolConnect,
		Description: "Request connection permission from a wallet",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"required": ["type"],
			"properties": {"type": {"type": "string", "description": "Wallet type: sui, evm or svm"}}
		}`),
	}, s.handleConnect)

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolSubmit,
		Description: "Sign and submit a transaction through the connected wallet",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"required": ["transaction"],
			"properties": {"transaction": {"type": "object"}}
		}`),
	}, s.handleSubmit)

	return s
}

// MCP returns the underlying SDK server, for mounting on other transports.
func (s *Server) MCP() *mcpsdk.Server {
	return s.server
}

// Run serves the tools over transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	status := map[string]interface{}{
		"connected": s.client.IsConnected(),
		"accounts":  s.client.Accounts(),
		"wallets":   s.client.Statuses(),
	}
	if current, ok := s.client.Current(); ok {
		status["current"] = current.Type().String()
	}
	return toolResult(status)
}

func (s *Server) handleConnect(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Type string `json:"type"`
	}
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}

	walletType, err := walletkit.ParseWalletType(args.Type)
	if err != nil {
		return errorResult(err), nil
	}

	connected, err := s.client.Connect(ctx, walletType)
	if err != nil {
		s.logger.Warn("connect failed", "wallet", walletType, "error", err)
		return errorResult(err), nil
	}

	strategy, _ := s.client.Strategy(walletType)
	return toolResult(map[string]interface{}{
		"type":      walletType,
		"connected": connected,
		"state":     strategy.State(),
		"accounts":  strategy.Accounts(),
	})
}

func (s *Server) handleSubmit(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Transaction walletkit.Transaction `json:"transaction"`
	}
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}
	if len(args.Transaction) == 0 {
		return errorResult(walletkit.NewInvalidTransactionError([]string{"transaction is required"})), nil
	}

	resp, err := s.client.SignAndSubmitTransaction(ctx, args.Transaction)
	if err != nil {
		s.logger.Warn("submission failed", "error", err)
		return errorResult(err), nil
	}

	result := map[string]interface{}{"response": resp}
	if current, ok := s.client.Current(); ok {
		result["type"] = current.Type()
	}
	return toolResult(result)
}
