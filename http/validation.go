package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	walletkit "github.com/x402-foundation/walletkit"
)

// DecodeSubmitRequest validates and decodes the body of a submission.
// It checks that:
// - the body is a JSON object
// - "transaction" is present and is a non-empty object
//
// Schema validation of the transaction itself is left to the strategy.
func DecodeSubmitRequest(body []byte) (walletkit.Transaction, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid request body: not a JSON object - %v", err)
	}

	txRaw, exists := raw["transaction"]
	if !exists {
		return nil, fmt.Errorf("missing required field: transaction")
	}

	var tx map[string]interface{}
	if err := json.Unmarshal(txRaw, &tx); err != nil || tx == nil {
		return nil, fmt.Errorf("invalid field type: transaction must be an object")
	}
	if len(tx) == 0 {
		return nil, fmt.Errorf("invalid value: transaction must not be empty")
	}

	return walletkit.Transaction(tx), nil
}
