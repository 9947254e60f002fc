package walletkit

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates transactions against a JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles schemaJSON.
func NewSchemaValidator(schemaJSON []byte) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile transaction schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// MustSchemaValidator is like NewSchemaValidator but panics on error. It is
// intended for package-level schemas.
func MustSchemaValidator(schemaJSON []byte) *SchemaValidator {
	v, err := NewSchemaValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns an invalid_transaction WalletError listing every schema
// violation of tx.
func (v *SchemaValidator) Validate(tx Transaction) error {
	if tx == nil {
		return NewInvalidTransactionError([]string{"transaction is required"})
	}

	doc, err := json.Marshal(tx)
	if err != nil {
		return NewInvalidTransactionError([]string{fmt.Sprintf("failed to marshal transaction: %v", err)})
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return NewInvalidTransactionError([]string{fmt.Sprintf("schema validation failed: %v", err)})
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return NewInvalidTransactionError(problems)
}

var _ TransactionValidator = (*SchemaValidator)(nil)
