package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/service"
)

// SaveTransactions inserts transactions, skipping duplicates by ID.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, txn := range transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, user_id, date, description, amount, category, account_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, txn.ID, txn.UserID, txn.Date, txn.Description, txn.Amount,
			nullableString(txn.Category), nullableString(txn.AccountID))
		if err != nil {
			return fmt.Errorf("%w: save transaction %s: %v", common.ErrStorage, txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transactions: %v", common.ErrStorage, err)
	}
	return nil
}

// GetTransactions returns transactions matching the filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, user_id, date, description, amount,
			COALESCE(category, ''), COALESCE(account_id, '')
		FROM transactions WHERE 1=1`)
	args := []any{}

	if filter.UserID != "" {
		query.WriteString(" AND user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		query.WriteString(" AND category = ?")
		args = append(args, filter.Category)
	}
	if filter.StartDate != nil {
		query.WriteString(" AND date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query.WriteString(" AND date <= ?")
		args = append(args, *filter.EndDate)
	}
	query.WriteString(" ORDER BY date ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Date, &txn.Description,
			&txn.Amount, &txn.Category, &txn.AccountID); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", common.ErrStorage, err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", common.ErrStorage, err)
	}

	return transactions, nil
}

// GetLabeledSamples returns (description, category) pairs for all categorized
// transactions, usable as classifier training data. An empty userID returns
// samples across all users.
func (s *SQLiteStorage) GetLabeledSamples(ctx context.Context, userID string) ([]model.LabeledSample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT description, category FROM transactions
		WHERE category IS NOT NULL AND category != ''`
	args := []any{}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query labeled samples: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var samples []model.LabeledSample
	for rows.Next() {
		var sample model.LabeledSample
		if err := rows.Scan(&sample.Text, &sample.Label); err != nil {
			return nil, fmt.Errorf("%w: scan sample: %v", common.ErrStorage, err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate samples: %v", common.ErrStorage, err)
	}

	return samples, nil
}

// nullableString converts an empty string to a NULL-able value.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
