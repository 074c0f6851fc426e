package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage announces that the ledger changed. It carries only
// the revision number; the backup worker reads the actual document from
// storage, so a burst of events collapses into one up-to-date export.
type LedgerSyncMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(revision int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
