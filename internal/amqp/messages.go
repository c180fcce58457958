package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntrySyncMessage asks a worker to archive a single stock count row.
type EntrySyncMessage struct {
	CountID   int64     `json:"count_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(countID int64) *EntrySyncMessage {
	return &EntrySyncMessage{
		CountID:   countID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry sync message: %w", err)
	}
	return data, nil
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var m EntrySyncMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry sync message: %w", err)
	}
	return &m, nil
}
