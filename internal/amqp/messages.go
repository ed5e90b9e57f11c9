package amqp

import (
	"encoding/json"
	"time"
)

// BudgetCreatedMessage announces a newly stored budget entry. It carries ids only;
// consumers fetch the full entry from the store.
type BudgetCreatedMessage struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"usuario_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetCreatedMessage(id, ownerID int64) *BudgetCreatedMessage {
	return &BudgetCreatedMessage{
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *BudgetCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetCreatedMessageFromJSON(data []byte) (*BudgetCreatedMessage, error) {
	var msg BudgetCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
