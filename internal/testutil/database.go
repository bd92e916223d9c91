// Package testutil provides shared test fixtures: in-memory databases and
// canned transaction histories.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/service"
	"github.com/lucidfin/spendsage/internal/storage"
)

// TestDB wraps an in-memory migrated storage for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically handles
// migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustSaveTransactions seeds transactions or fails the test.
func (db *TestDB) MustSaveTransactions(ctx context.Context, transactions []model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(ctx, transactions); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// Monthly returns n months of categorized history for one user: one spend per
// month of the given amount plus i*step, starting at the given month. Useful
// for trend and forecast fixtures.
func Monthly(userID, category string, start time.Time, n int, amount, step float64) []model.Transaction {
	transactions := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, i, 0)
		transactions = append(transactions, model.Transaction{
			ID:          userID + "-" + category + "-" + date.Format("2006-01"),
			UserID:      userID,
			Date:        date,
			Description: category + " purchase",
			Category:    category,
			Amount:      amount + float64(i)*step,
		})
	}
	return transactions
}
