package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsmart/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "spendsmart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	return u
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := newTestUser(t, repo, "alice@example.com")
	assert.Positive(t, u.ID)

	_, err := repo.CreateUser(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, core.ErrDuplicateIdentity)

	got, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.GetUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListTransactionsOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice@example.com")

	var ids []int64
	for _, date := range []string{"2024-01-01", "2024-01-03", "2024-01-02", "2024-01-03"} {
		id, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Amount: 1, Type: core.Expense, Category: "Food", Date: date,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	txs, err := repo.ListTransactions(ctx, u.ID)
	require.NoError(t, err)

	var got []int64
	for _, tx := range txs {
		got = append(got, tx.ID)
	}
	assert.Equal(t, []int64{ids[3], ids[1], ids[2], ids[0]}, got)
}

func TestListTransactionsFiltersByOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: alice.ID, Amount: 10, Type: core.Income, Category: "Salary", Date: "2024-01-01",
	})
	require.NoError(t, err)

	txs, err := repo.ListTransactions(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestUpdateTransactionOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: alice.ID, Amount: 10, Type: core.Expense, Category: "Food", Date: "2024-01-01",
	})
	require.NoError(t, err)

	category := "Groceries"
	_, err = repo.UpdateTransaction(ctx, bob.ID, id, core.TransactionPatch{Category: &category})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = repo.UpdateTransaction(ctx, alice.ID, id+100, core.TransactionPatch{Category: &category})
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := repo.UpdateTransaction(ctx, alice.ID, id, core.TransactionPatch{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Category)
	assert.Equal(t, 10.0, updated.Amount)

	txs, err := repo.ListTransactions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Groceries", txs[0].Category)
}

func TestDeleteTransactionOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: alice.ID, Amount: 10, Type: core.Expense, Category: "Food", Date: "2024-01-01",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteTransaction(ctx, bob.ID, id), core.ErrForbidden)

	txs, err := repo.ListTransactions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "forbidden delete must leave the row intact")

	require.NoError(t, repo.DeleteTransaction(ctx, alice.ID, id))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, alice.ID, id), core.ErrNotFound)
}

func TestCreateTransactionRejectsInvalidType(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice@example.com")

	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID: u.ID, Amount: 1, Type: "savings", Category: "x", Date: "2024-01-01",
	})
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestUpsertBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice@example.com")

	first, err := repo.UpsertBudget(ctx, core.Budget{UserID: u.ID, Category: "Food", Limit: 100})
	require.NoError(t, err)
	second, err := repo.UpsertBudget(ctx, core.Budget{UserID: u.ID, Category: "Food", Limit: 150})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	budgets, err := repo.ListBudgets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, 150.0, budgets[0].Limit)
}

func TestUpsertBudgetConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice@example.com")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(limit float64) {
			defer wg.Done()
			_, err := repo.UpsertBudget(ctx, core.Budget{UserID: u.ID, Category: "Food", Limit: limit})
			errs <- err
		}(float64(100 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	budgets, err := repo.ListBudgets(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, budgets, 1)
}

func TestDeleteBudgetOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	id, err := repo.UpsertBudget(ctx, core.Budget{UserID: alice.ID, Category: "Rent", Limit: 900})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteBudget(ctx, bob.ID, id), core.ErrForbidden)
	assert.ErrorIs(t, repo.DeleteBudget(ctx, alice.ID, id+1), core.ErrNotFound)
	require.NoError(t, repo.DeleteBudget(ctx, alice.ID, id))

	budgets, err := repo.ListBudgets(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "alice@example.com")
	now := time.Now()

	require.NoError(t, repo.CreateSession(ctx, SessionRecord{
		Token: "live", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, repo.CreateSession(ctx, SessionRecord{
		Token: "stale", UserID: u.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	s, err := repo.GetSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)

	_, err = repo.GetSession(ctx, "stale", now)
	assert.ErrorIs(t, err, core.ErrNotFound)

	purged, err := repo.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, repo.DeleteSession(ctx, "live"))
	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSession(ctx, "live", now)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLegacySchemaRequiresExplicitReset(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "spendsmart.db")
	ctx := context.Background()

	legacy, err := sql.Open("sqlite", dsn(dbPath))
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE user (
		id INTEGER PRIMARY KEY,
		username VARCHAR(80) NOT NULL UNIQUE,
		password VARCHAR(200) NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	_, err = NewSQLiteRepository(dbPath)
	require.ErrorIs(t, err, ErrLegacySchema)

	require.NoError(t, ResetDatabase(ctx, dbPath))

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	version, dirty, err := MigrationVersion(dbPath)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(4), version)
}
