package svm

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	walletkit "github.com/x402-foundation/walletkit"
)

// TransactionSchema describes the transaction map accepted by
// KeypairWallet: either a base64 serialized transaction to sign, or a
// native SOL transfer to build.
const TransactionSchema = `{
	"type": "object",
	"oneOf": [
		{
			"required": ["transaction"],
			"properties": {
				"transaction": {"type": "string", "minLength": 1}
			}
		},
		{
			"required": ["transfer"],
			"properties": {
				"transfer": {
					"type": "object",
					"required": ["to", "lamports"],
					"properties": {
						"to": {"type": "string", "pattern": "^[1-9A-HJ-NP-Za-km-z]{32,44}$"},
						"lamports": {"type": "integer", "minimum": 1}
					}
				}
			}
		}
	]
}`

var validator = walletkit.MustSchemaValidator([]byte(TransactionSchema))

// Validator returns the validator for TransactionSchema.
func Validator() *walletkit.SchemaValidator {
	return validator
}

// Transfer is a native SOL transfer request.
type Transfer struct {
	To       solana.PublicKey
	Lamports uint64
}

// DecodeTransaction decodes a base64 serialized transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// EncodeTransaction serializes tx as base64.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ParseTransfer reads the "transfer" entry of tx.
func ParseTransfer(tx walletkit.Transaction) (*Transfer, error) {
	entry, ok := tx["transfer"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("transfer must be an object")
	}

	to, _ := entry["to"].(string)
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	var lamports uint64
	switch v := entry["lamports"].(type) {
	case float64:
		if v < 1 || v != float64(uint64(v)) {
			return nil, fmt.Errorf("invalid lamports: %v", v)
		}
		lamports = uint64(v)
	case int:
		if v < 1 {
			return nil, fmt.Errorf("invalid lamports: %d", v)
		}
		lamports = uint64(v)
	case int64:
		if v < 1 {
			return nil, fmt.Errorf("invalid lamports: %d", v)
		}
		lamports = uint64(v)
	case uint64:
		if v == 0 {
			return nil, fmt.Errorf("invalid lamports: 0")
		}
		lamports = v
	default:
		return nil, fmt.Errorf("invalid lamports: %v", entry["lamports"])
	}

	return &Transfer{To: recipient, Lamports: lamports}, nil
}

// BuildTransfer builds an unsigned transfer from payer, who also pays the fee.
func BuildTransfer(payer solana.PublicKey, transfer *Transfer, recentBlockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(transfer.Lamports, payer, transfer.To).Build(),
		},
		recentBlockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}
