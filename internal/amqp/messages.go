package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by ExpenseChangedMessage.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpImported = "imported"
)

// ExpenseChangedMessage tells consumers that a user's record set changed.
// It carries no expense data; consumers reload from storage.
type ExpenseChangedMessage struct {
	UserID    string    `json:"userId"`
	ExpenseID string    `json:"expenseId,omitempty"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(userID, expenseID, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		UserID:    userID,
		ExpenseID: expenseID,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes a message body.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
