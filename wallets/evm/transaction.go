package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	walletkit "github.com/x402-foundation/walletkit"
)

// TransactionSchema describes the transaction map accepted by KeyWallet.
// Quantities may be JSON numbers, decimal strings or 0x-prefixed hex.
const TransactionSchema = `{
	"type": "object",
	"required": ["to"],
	"properties": {
		"to": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
		"value": {"type": ["string", "number"]},
		"data": {"type": "string", "pattern": "^0x([0-9a-fA-F]{2})*$"},
		"gas": {"type": ["string", "number"]},
		"nonce": {"type": ["string", "number"]},
		"maxFeePerGas": {"type": ["string", "number"]},
		"maxPriorityFeePerGas": {"type": ["string", "number"]}
	}
}`

var validator = walletkit.MustSchemaValidator([]byte(TransactionSchema))

// Validator returns the validator for TransactionSchema.
func Validator() *walletkit.SchemaValidator {
	return validator
}

// TxRequest is a parsed EIP-1559 transaction request. Nil fields are
// filled in from the chain before signing.
type TxRequest struct {
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	Gas                  uint64
	Nonce                *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// ParseTransaction converts a transaction map into a TxRequest.
func ParseTransaction(tx walletkit.Transaction) (*TxRequest, error) {
	to, _ := tx["to"].(string)
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid to address: %q", to)
	}
	req := &TxRequest{
		To:    common.HexToAddress(to),
		Value: new(big.Int),
	}

	var err error
	if v, ok := tx["value"]; ok {
		if req.Value, err = parseQuantity(v); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
	}
	if v, ok := tx["data"].(string); ok && v != "" {
		if req.Data, err = hexutil.Decode(v); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}
	if v, ok := tx["gas"]; ok {
		gas, err := parseQuantity(v)
		if err != nil || !gas.IsUint64() {
			return nil, fmt.Errorf("invalid gas: %v", v)
		}
		req.Gas = gas.Uint64()
	}
	if v, ok := tx["nonce"]; ok {
		nonce, err := parseQuantity(v)
		if err != nil || !nonce.IsUint64() {
			return nil, fmt.Errorf("invalid nonce: %v", v)
		}
		n := nonce.Uint64()
		req.Nonce = &n
	}
	if v, ok := tx["maxFeePerGas"]; ok {
		if req.MaxFeePerGas, err = parseQuantity(v); err != nil {
			return nil, fmt.Errorf("invalid maxFeePerGas: %w", err)
		}
	}
	if v, ok := tx["maxPriorityFeePerGas"]; ok {
		if req.MaxPriorityFeePerGas, err = parseQuantity(v); err != nil {
			return nil, fmt.Errorf("invalid maxPriorityFeePerGas: %w", err)
		}
	}

	return req, nil
}

func parseQuantity(v interface{}) (*big.Int, error) {
	switch q := v.(type) {
	case string:
		if strings.HasPrefix(q, "0x") || strings.HasPrefix(q, "0X") {
			return hexutil.DecodeBig(strings.ToLower(q))
		}
		n, ok := new(big.Int).SetString(q, 10)
		if !ok {
			return nil, fmt.Errorf("not a number: %q", q)
		}
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative quantity: %q", q)
		}
		return n, nil
	case float64:
		if q < 0 || q != float64(uint64(q)) {
			return nil, fmt.Errorf("not a non-negative integer: %v", q)
		}
		return new(big.Int).SetUint64(uint64(q)), nil
	case int:
		if q < 0 {
			return nil, fmt.Errorf("negative quantity: %d", q)
		}
		return big.NewInt(int64(q)), nil
	case int64:
		if q < 0 {
			return nil, fmt.Errorf("negative quantity: %d", q)
		}
		return big.NewInt(q), nil
	case uint64:
		return new(big.Int).SetUint64(q), nil
	default:
		return nil, fmt.Errorf("unsupported quantity type %T", v)
	}
}
