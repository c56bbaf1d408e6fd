package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"smartexpense/internal/core"
)

// ExpenseCreatedMessage announces a committed expense. Amount is the
// rounded 2-decimal string also returned by the API.
type ExpenseCreatedMessage struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CategoryID int64     `json:"category_id"`
	Category   string    `json:"category_name"`
	Amount     string    `json:"amount"`
	SpentAt    time.Time `json:"spent_at"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:         e.ID,
		UserID:     e.UserID,
		CategoryID: e.CategoryID,
		Category:   e.CategoryName,
		Amount:     e.Amount.String(),
		SpentAt:    e.SpentAt.UTC(),
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON decodes and sanity checks a message body.
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("message without expense id")
	}
	return &msg, nil
}
