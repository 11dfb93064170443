package amqp

import (
	"testing"
	"time"
)

func TestNewExpenseRecordedMessage(t *testing.T) {
	msg := NewExpenseRecordedMessage("2026-08", "abc-123")

	if msg.MonthKey != "2026-08" {
		t.Errorf("MonthKey = %v, want 2026-08", msg.MonthKey)
	}
	if msg.ExpenseID != "abc-123" {
		t.Errorf("ExpenseID = %v, want abc-123", msg.ExpenseID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestExpenseRecordedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msg := &ExpenseRecordedMessage{
		MonthKey:  "2026-08",
		ExpenseID: "abc-123",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ExpenseRecordedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ExpenseRecordedMessageFromJSON() error = %v", err)
	}

	if parsed.MonthKey != msg.MonthKey {
		t.Errorf("Parsed MonthKey = %v, want %v", parsed.MonthKey, msg.MonthKey)
	}
	if parsed.ExpenseID != msg.ExpenseID {
		t.Errorf("Parsed ExpenseID = %v, want %v", parsed.ExpenseID, msg.ExpenseID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestExpenseRecordedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"month_key": 42, "expense_id": 1}`)

	if _, err := ExpenseRecordedMessageFromJSON(invalidJSON); err == nil {
		t.Error("ExpenseRecordedMessageFromJSON() should fail with invalid JSON")
	}
}
