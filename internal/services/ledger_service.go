package services

import (
	"context"
	"time"

	"spendsmart/internal/amqp"
	"spendsmart/internal/core"
)

// TransactionStore is the ledger persistence LedgerService needs.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

// TransactionInput is a new transaction as submitted by a client.
type TransactionInput struct {
	Amount   string
	Type     string
	Category string
	Date     string
}

// TransactionChanges holds the fields present in an update request. Absent
// fields are nil.
type TransactionChanges struct {
	Amount   *string
	Type     *string
	Category *string
	Date     *string
}

// LedgerService validates transactions and publishes a ledger event for every
// successful change.
type LedgerService struct {
	store  TransactionStore
	events notifier
	now    func() time.Time
}

func NewLedgerService(store TransactionStore, pub amqp.Publisher) *LedgerService {
	return &LedgerService{
		store:  store,
		events: newNotifier(pub),
		now:    time.Now,
	}
}

// List returns userID's transactions, newest date first.
func (s *LedgerService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// Add validates in and stores it for userID, returning the new id.
func (s *LedgerService) Add(ctx context.Context, userID int64, in TransactionInput) (int64, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return 0, err
	}
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return 0, err
	}
	date, err := core.NormalizeDate(in.Date, s.now())
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateTransaction(ctx, core.Transaction{
		UserID:   userID,
		Amount:   amount,
		Type:     typ,
		Category: core.NormalizeCategory(in.Category),
		Date:     date,
	})
	if err != nil {
		return 0, err
	}

	s.events.notify(ctx, amqp.TransactionCreated, userID, id)
	return id, nil
}

// Update applies the present fields of ch to transaction id. An amount that
// does not parse and a type outside the enum are skipped while the remaining
// fields still apply. A present date must be valid.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, ch TransactionChanges) (core.Transaction, error) {
	p, err := s.patch(ch)
	if err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, err
	}

	s.events.notify(ctx, amqp.TransactionUpdated, userID, id)
	return updated, nil
}

func (s *LedgerService) patch(ch TransactionChanges) (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if ch.Amount != nil {
		if amount, err := core.ParseAmount(*ch.Amount); err == nil {
			p.Amount = &amount
		}
	}
	if ch.Type != nil {
		if typ, err := core.ParseTransactionType(*ch.Type); err == nil {
			p.Type = &typ
		}
	}
	if ch.Category != nil {
		category := core.NormalizeCategory(*ch.Category)
		p.Category = &category
	}
	if ch.Date != nil {
		date, err := core.NormalizeDate(*ch.Date, s.now())
		if err != nil {
			return core.TransactionPatch{}, err
		}
		p.Date = &date
	}
	return p, nil
}

// Delete removes transaction id if it belongs to userID.
func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.events.notify(ctx, amqp.TransactionDeleted, userID, id)
	return nil
}
