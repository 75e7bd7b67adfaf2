package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"spendsmart/internal/core"
)

// ListTransactions returns the user's transactions, newest date first and,
// within a date, most recently created first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, type, category, date
		   FROM transactions
		  WHERE user_id = ?
		  ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CreateTransaction inserts t and returns its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, amount, type, category, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount, string(t.Type), t.Category, t.Date, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", t.UserID,
		"type", t.Type,
		"category", t.Category,
		"date", t.Date)

	return id, nil
}

// UpdateTransaction applies patch to transaction id after checking that it
// belongs to userID. Lookup and write share one transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getOwnedTransaction(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		updated = patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET amount = ?, type = ?, category = ?, date = ? WHERE id = ?`,
			updated.Amount, string(updated.Type), updated.Category, updated.Date, id)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "user_id", userID)
	return updated, nil
}

// DeleteTransaction removes transaction id after checking that it belongs to userID.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getOwnedTransaction(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// getOwnedTransaction distinguishes a missing id (ErrNotFound) from one owned
// by someone else (ErrForbidden).
func getOwnedTransaction(ctx context.Context, tx *sql.Tx, userID, id int64) (core.Transaction, error) {
	var t core.Transaction
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, amount, type, category, date FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != userID {
		return core.Transaction{}, core.ErrForbidden
	}
	return t, nil
}
