package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// InvoiceMetadata is the bounded set of free text an owner may attach to an invoice
type InvoiceMetadata struct {
	Terms     string `json:"terms,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Scan implements the sql.Scanner interface for InvoiceMetadata
func (m *InvoiceMetadata) Scan(value interface{}) error {
	return scanJSONB(value, m)
}

// Value implements the driver.Valuer interface for InvoiceMetadata
func (m InvoiceMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// TransactionMetadata carries the correlation keys used during reconciliation
type TransactionMetadata struct {
	InvoiceID string `json:"invoice_id,omitempty"`
	// ContractInvoiceID is the id assigned by the settlement contract on registration
	ContractInvoiceID *int64 `json:"contract_invoice_id,omitempty"`
	IPFSHash          string `json:"ipfs_hash,omitempty"`
	// UserOpHash is the client generated operation hash used for status polling
	UserOpHash string `json:"user_op_hash,omitempty"`
	// SubmittedHash is the hash the bundler returned on submission
	SubmittedHash string `json:"submitted_hash,omitempty"`
	// ChainTxHash is the hash of the transaction that included the operation
	ChainTxHash   string `json:"chain_tx_hash,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Scan implements the sql.Scanner interface for TransactionMetadata
func (m *TransactionMetadata) Scan(value interface{}) error {
	return scanJSONB(value, m)
}

// Value implements the driver.Valuer interface for TransactionMetadata
func (m TransactionMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Payload is a raw JSONB document stored verbatim, used for webhook bodies
type Payload json.RawMessage

func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = Payload("{}")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*p = append(Payload(nil), v...)
	case string:
		*p = Payload(v)
	default:
		return fmt.Errorf("failed to scan JSONB value: %v", value)
	}
	return nil
}

func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = append(Payload(nil), data...)
	return nil
}

func scanJSONB(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
