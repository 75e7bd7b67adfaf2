package amqp

import (
	"encoding/json"
	"time"
)

// EventKind names a change to a user's ledger or budgets.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	BudgetSet          EventKind = "budget.set"
	BudgetDeleted      EventKind = "budget.deleted"
)

// LedgerEvent is a lightweight change notification. Consumers fetch the full
// row from the API if they need it.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	UserID    int64     `json:"user_id"`
	EntityID  int64     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, userID, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
