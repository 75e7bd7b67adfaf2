package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"spendsmart/internal/core"
)

type ledgerReader interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
}

// viewDatabase prints each user followed by their transactions and budgets.
func viewDatabase(ctx context.Context, repo ledgerReader, out io.Writer) error {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "----- Users (%d) -----\n", len(users))

	for _, u := range users {
		fmt.Fprintf(w, "\nID: %d\tEmail: %s\tCreated: %s\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04"))

		txs, err := repo.ListTransactions(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("list transactions of user %d: %w", u.ID, err)
		}
		fmt.Fprintf(w, "  Transactions (%d)\n", len(txs))
		for _, t := range txs {
			fmt.Fprintf(w, "    %d\t%s\t%s\t%s\t%.2f\n", t.ID, t.Date, t.Type, t.Category, t.Amount)
		}

		budgets, err := repo.ListBudgets(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("list budgets of user %d: %w", u.ID, err)
		}
		fmt.Fprintf(w, "  Budgets (%d)\n", len(budgets))
		for _, b := range budgets {
			fmt.Fprintf(w, "    %d\t%s\t%.2f\n", b.ID, b.Category, b.Limit)
		}
	}

	return w.Flush()
}
