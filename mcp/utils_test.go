package mcp

import (
	"encoding/json"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletkit "github.com/x402-foundation/walletkit"
)

func TestDecodeArguments(t *testing.T) {
	var args struct {
		Type string `json:"type"`
	}

	t.Run("No arguments", func(t *testing.T) {
		require.NoError(t, decodeArguments(&mcpsdk.CallToolRequest{}, &args))
		require.NoError(t, decodeArguments(&mcpsdk.CallToolRequest{Params: &mcpsdk.CallToolParamsRaw{}}, &args))
		assert.Empty(t, args.Type)
	})

	t.Run("Object", func(t *testing.T) {
		req := &mcpsdk.CallToolRequest{Params: &mcpsdk.CallToolParamsRaw{Arguments: json.RawMessage(`{"type":"evm"}`)}}
		require.NoError(t, decodeArguments(req, &args))
		assert.Equal(t, "evm", args.Type)
	})

	t.Run("Malformed", func(t *testing.T) {
		req := &mcpsdk.CallToolRequest{Params: &mcpsdk.CallToolParamsRaw{Arguments: json.RawMessage(`[1,2]`)}}
		assert.ErrorContains(t, decodeArguments(req, &args), "failed to unmarshal arguments")
	})
}

func TestToolResult(t *testing.T) {
	result, err := toolResult(map[string]interface{}{"connected": true, "accounts": []string{"0xabc"}})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := result.Content[0].(*mcpsdk.TextContent).Text
	assert.JSONEq(t, `{"connected":true,"accounts":["0xabc"]}`, text)
	assert.Equal(t, map[string]interface{}{
		"connected": true,
		"accounts":  []interface{}{"0xabc"},
	}, result.StructuredContent)

	_, err = toolResult(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestErrorResult(t *testing.T) {
	result := errorResult(walletkit.NewInvalidTransactionError([]string{"(root): to is required"}))
	assert.True(t, result.IsError)

	structured := result.StructuredContent.(map[string]interface{})
	assert.Equal(t, walletkit.ErrCodeInvalidTransaction, structured["code"])
	assert.NotNil(t, structured["details"])

	result = errorResult(errors.New("plain"))
	assert.Equal(t, map[string]interface{}{"error": "plain"}, result.StructuredContent)
}
