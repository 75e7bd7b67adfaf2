package services

import (
	"context"

	"spendsmart/internal/amqp"
	"spendsmart/internal/core"
)

type BudgetStore interface {
	UpsertBudget(ctx context.Context, b core.Budget) (int64, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, userID, id int64) error
}

type BudgetService struct {
	store  BudgetStore
	events notifier
}

func NewBudgetService(store BudgetStore, pub amqp.Publisher) *BudgetService {
	return &BudgetService{store: store, events: newNotifier(pub)}
}

// Set creates or replaces the limit for (userID, category) and returns the
// budget id, which stays the same across updates.
func (s *BudgetService) Set(ctx context.Context, userID int64, category, limit string) (int64, error) {
	l, err := core.ParseLimit(limit)
	if err != nil {
		return 0, err
	}

	id, err := s.store.UpsertBudget(ctx, core.Budget{
		UserID:   userID,
		Category: core.NormalizeCategory(category),
		Limit:    l,
	})
	if err != nil {
		return 0, err
	}

	s.events.notify(ctx, amqp.BudgetSet, userID, id)
	return id, nil
}

// GetAll maps each of userID's categories to its limit.
func (s *BudgetService) GetAll(ctx context.Context, userID int64) (map[string]float64, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(budgets))
	for _, b := range budgets {
		out[b.Category] = b.Limit
	}
	return out, nil
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.events.notify(ctx, amqp.BudgetDeleted, userID, id)
	return nil
}
