// Package mcp exposes a walletkit.WalletClient to MCP (Model Context
// Protocol) clients such as agents.
//
// Three tools are registered:
//
//   - wallet_status: detection and connection state of every wallet
//   - wallet_connect: request permission from the wallet named by "type"
//   - wallet_sign_and_submit_transaction: submit "transaction" through the
//     connected wallet
//
// Failures are returned as tool errors (IsError) whose structured content
// carries the WalletError code.
//
// # Usage
//
//	client := walletkit.NewWalletClient(walletkit.WithStrategy(strategy))
//	server := mcp.NewServer(client)
//	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
//	    log.Fatal(err)
//	}
package mcp
