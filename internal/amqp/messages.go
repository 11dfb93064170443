package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseRecordedMessage signals that an expense was committed to a month.
// Carries only identifiers, the worker fetches the full expense from the store.
type ExpenseRecordedMessage struct {
	MonthKey  string    `json:"month_key"`
	ExpenseID string    `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage creates a new recorded message for the given expense
func NewExpenseRecordedMessage(monthKey, expenseID string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		MonthKey:  monthKey,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON creates a message from JSON bytes
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ImportCompletedMessage announces the outcome of a statement import.
type ImportCompletedMessage struct {
	MonthKey   string    `json:"month_key"`
	Total      int       `json:"total"`
	Duplicates int       `json:"duplicates"`
	Imported   int       `json:"imported"`
	Unresolved int       `json:"unresolved"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
