package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds.
const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// LedgerMessage tells the export worker that a transaction needs
// mirroring (sync) or removal (delete). It carries only the id; the
// worker fetches the full record from storage, which stays the source
// of truth.
type LedgerMessage struct {
	Kind          string    `json:"kind"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewSyncMessage(transactionID string) *LedgerMessage {
	return &LedgerMessage{
		Kind:          KindSync,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewDeleteMessage(transactionID string) *LedgerMessage {
	return &LedgerMessage{
		Kind:          KindDelete,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON creates a message from JSON bytes
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
