package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"spendsmart/internal/core"
)

// UpsertBudget sets the limit for (user, category), inserting the row if it
// does not exist yet. The returned id is stable across updates.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM budgets WHERE user_id = ? AND category = ?`, b.UserID, b.Category).Scan(&id)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, `UPDATE budgets SET limit_amount = ? WHERE id = ?`, b.Limit, id)
			if err != nil {
				return fmt.Errorf("update budget: %w", err)
			}
			return nil
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (user_id, category, limit_amount) VALUES (?, ?, ?)`,
				b.UserID, b.Category, b.Limit)
			if err != nil {
				return fmt.Errorf("insert budget: %w", err)
			}
			id, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("read budget id: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("find budget: %w", err)
		}
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", id,
		"user_id", b.UserID,
		"category", b.Category,
		"limit", b.Limit)

	return id, nil
}

// ListBudgets returns the user's budgets ordered by category.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, limit_amount FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

// DeleteBudget removes budget id after checking that it belongs to userID.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM budgets WHERE id = ?`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		if owner != userID {
			return core.ErrForbidden
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", "id", id, "user_id", userID)
	return nil
}
