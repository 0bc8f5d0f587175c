package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/roomsplit/internal/models"
)

// SetPaymentStatus inserts or replaces the paid flag for a payment key.
func (s *SQLiteStore) SetPaymentStatus(ctx context.Context, status *models.PaymentStatus) error {
	if status.UpdatedAt == 0 {
		status.UpdatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_statuses (household_id, key, from_id, to_id, expense_id, paid, updated_at, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (household_id, key) DO UPDATE SET
		     paid = excluded.paid,
		     updated_at = excluded.updated_at,
		     updated_by = excluded.updated_by`,
		status.HouseholdID, status.Key, status.FromID, status.ToID, nullString(status.ExpenseID),
		status.Paid, status.UpdatedAt, nullString(status.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment status: %w", err)
	}
	return nil
}

// ListPaymentStatuses retrieves all payment status records of a household.
func (s *SQLiteStore) ListPaymentStatuses(ctx context.Context, householdID string) ([]*models.PaymentStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT household_id, key, from_id, to_id, expense_id, paid, updated_at, updated_by
		 FROM payment_statuses WHERE household_id = ? ORDER BY key`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*models.PaymentStatus
	for rows.Next() {
		ps := &models.PaymentStatus{}
		var expenseID, updatedBy sql.NullString
		if err := rows.Scan(&ps.HouseholdID, &ps.Key, &ps.FromID, &ps.ToID, &expenseID,
			&ps.Paid, &ps.UpdatedAt, &updatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment status: %w", err)
		}
		ps.ExpenseID = expenseID.String
		ps.UpdatedBy = updatedBy.String
		statuses = append(statuses, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment statuses: %w", err)
	}
	return statuses, nil
}
