package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	walletkit "github.com/x402-foundation/walletkit"
)

// decodeArguments unmarshals the raw tool arguments into v. Missing
// arguments leave v untouched.
func decodeArguments(req *mcpsdk.CallToolRequest, v interface{}) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return nil
}

// toolResult returns v both as structured content and as JSON text.
func toolResult(v interface{}) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	// Round-trip through JSON so the structured content is a plain object.
	var structured map[string]interface{}
	if err := json.Unmarshal(data, &structured); err != nil {
		return nil, fmt.Errorf("failed to unmarshal structured content: %w", err)
	}

	return &mcpsdk.CallToolResult{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		StructuredContent: structured,
	}, nil
}

// errorResult reports err as a tool error. WalletErrors keep their code.
func errorResult(err error) *mcpsdk.CallToolResult {
	structured := map[string]interface{}{"error": err.Error()}
	var walletErr *walletkit.WalletError
	if errors.As(err, &walletErr) {
		structured["code"] = walletErr.Code
		structured["error"] = walletErr.Message
		if len(walletErr.Details) > 0 {
			structured["details"] = walletErr.Details
		}
	}

	return &mcpsdk.CallToolResult{
		IsError:           true,
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		StructuredContent: structured,
	}
}
