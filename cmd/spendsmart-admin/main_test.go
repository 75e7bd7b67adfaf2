package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsmart/internal/core"
	"spendsmart/internal/storage"
)

func TestViewDatabase(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.CreateUser(ctx, "alice@example.com", "hash")
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: 12.5, Type: core.Expense, Category: "Food", Date: "2024-03-01",
	})
	require.NoError(t, err)
	_, err = repo.UpsertBudget(ctx, core.Budget{UserID: u.ID, Category: "Food", Limit: 200})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, viewDatabase(ctx, repo, &out))

	got := out.String()
	assert.Contains(t, got, "Users (1)")
	assert.Contains(t, got, "alice@example.com")
	assert.Contains(t, got, "2024-03-01")
	assert.Contains(t, got, "12.50")
	assert.Contains(t, got, "200.00")
	assert.NotContains(t, got, "hash")
}

func TestRunReset(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reset.db")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, "bob@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	var out bytes.Buffer
	assert.Error(t, runReset(ctx, &out, dbPath, nil), "reset without -yes must refuse")

	require.NoError(t, runReset(ctx, &out, dbPath, []string{"-yes"}))
	assert.Contains(t, out.String(), "reset")

	repo, err = storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRunMigrate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runMigrate(&out, filepath.Join(t.TempDir(), "m.db")))
	assert.Contains(t, out.String(), "schema version")
	assert.Contains(t, out.String(), "dirty=false")
}
