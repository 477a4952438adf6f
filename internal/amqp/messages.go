package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"detetive/internal/core"
)

// Action is what happened to an exported transaction.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// TransactionExportMessage represents a lightweight message for exporting a transaction.
// Contains only the IDs, the worker will fetch the full transaction from its store.
type TransactionExportMessage struct {
	Action        Action    `json:"action"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionExportMessage(action Action, userID, transactionID string) *TransactionExportMessage {
	return &TransactionExportMessage{
		Action:        action,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionExportMessageFromJSON decodes and validates a message.
func TransactionExportMessageFromJSON(data []byte) (*TransactionExportMessage, error) {
	var msg TransactionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.IsValid() {
		return nil, fmt.Errorf("invalid action %q", msg.Action)
	}
	if msg.UserID == "" || msg.TransactionID == "" {
		return nil, fmt.Errorf("message missing user or transaction id")
	}
	return &msg, nil
}

// NotificationMessage carries a newly raised notification to push consumers.
type NotificationMessage struct {
	NotificationID string                `json:"notification_id"`
	UserID         string                `json:"user_id"`
	Type           core.NotificationType `json:"type"`
	Severity       core.Severity         `json:"severity"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	EntityID       string                `json:"entity_id,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

func NewNotificationMessage(n core.Notification) *NotificationMessage {
	return &NotificationMessage{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Severity:       n.Severity,
		Title:          n.Title,
		Message:        n.Message,
		EntityID:       n.EntityID,
		Timestamp:      time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
