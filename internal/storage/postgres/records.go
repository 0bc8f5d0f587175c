package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

const (
	memberColumns  = "id, household_id, COALESCE(room_id, ''), name, COALESCE(user_id, ''), created_at"
	expenseColumns = "id, household_id, description, amount, payer_id, created_at, COALESCE(created_by, '')"
	userColumns    = "id, email, display_name, password_hash, created_at, updated_at"
)

func (p *PostgresStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO members (id, household_id, room_id, name, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		member.ID, member.HouseholdID, nullString(member.RoomID), member.Name,
		nullString(member.UserID), member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	m := &models.Member{}
	err := p.pool.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE id = $1", memberID).
		Scan(&m.ID, &m.HouseholdID, &m.RoomID, &m.Name, &m.UserID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (p *PostgresStore) ListMembers(ctx context.Context, householdID string) ([]*models.Member, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+memberColumns+" FROM members WHERE household_id = $1 ORDER BY created_at, name, id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.RoomID, &m.Name, &m.UserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func (p *PostgresStore) UpdateMember(ctx context.Context, member *models.Member) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE members SET name = $1, room_id = $2, user_id = $3 WHERE id = $4",
		member.Name, nullString(member.RoomID), nullString(member.UserID), member.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", member.ID, storage.ErrNotFound)
	}
	return nil
}

func (p *PostgresStore) DeleteMember(ctx context.Context, memberID string) error {
	var paid int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses WHERE payer_id = $1", memberID).Scan(&paid); err != nil {
		return fmt.Errorf("failed to check payer references: %w", err)
	}
	if paid > 0 {
		return fmt.Errorf("member %s (%d expenses): %w", memberID, paid, storage.ErrMemberIsPayer)
	}

	var shared int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expense_shares WHERE member_id = $1", memberID).Scan(&shared); err != nil {
		return fmt.Errorf("failed to check share references: %w", err)
	}
	if shared > 0 {
		return fmt.Errorf("member %s (%d shares): %w", memberID, shared, storage.ErrMemberHasShares)
	}
	return p.deleteByID(ctx, "members", memberID)
}

func (p *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO expenses (id, household_id, description, amount, payer_id, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		expense.ID, expense.HouseholdID, expense.Description, expense.Amount,
		expense.PayerID, expense.CreatedAt, nullString(expense.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	if err := insertShares(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	e := &models.Expense{}
	err := p.pool.QueryRow(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", expenseID).
		Scan(&e.ID, &e.HouseholdID, &e.Description, &e.Amount, &e.PayerID, &e.CreatedAt, &e.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	shares, err := p.queryShares(ctx,
		"SELECT expense_id, member_id, weight FROM expense_shares WHERE expense_id = $1 ORDER BY member_id",
		expenseID,
	)
	if err != nil {
		return nil, err
	}
	e.Shares = shares[expenseID]
	return e, nil
}

func (p *PostgresStore) ListExpenses(ctx context.Context, householdID string) ([]*models.Expense, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE household_id = $1 ORDER BY created_at DESC, id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Expense, error) {
		e := &models.Expense{}
		err := row.Scan(&e.ID, &e.HouseholdID, &e.Description, &e.Amount, &e.PayerID, &e.CreatedAt, &e.CreatedBy)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}

	shares, err := p.queryShares(ctx,
		`SELECT s.expense_id, s.member_id, s.weight
		 FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.household_id = $1
		 ORDER BY s.expense_id, s.member_id`,
		householdID,
	)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		e.Shares = shares[e.ID]
	}
	return expenses, nil
}

func (p *PostgresStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE expenses SET description = $1, amount = $2, payer_id = $3, created_at = $4 WHERE id = $5",
		expense.Description, expense.Amount, expense.PayerID, expense.CreatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM expense_shares WHERE expense_id = $1", expense.ID); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	if err := insertShares(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteExpense(ctx context.Context, expenseID string) error {
	return p.deleteByID(ctx, "expenses", expenseID)
}

func (p *PostgresStore) SetPaymentStatus(ctx context.Context, status *models.PaymentStatus) error {
	if status.UpdatedAt == 0 {
		status.UpdatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO payment_statuses (household_id, key, from_id, to_id, expense_id, paid, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (household_id, key) DO UPDATE SET
		     paid = EXCLUDED.paid,
		     updated_at = EXCLUDED.updated_at,
		     updated_by = EXCLUDED.updated_by`,
		status.HouseholdID, status.Key, status.FromID, status.ToID, nullString(status.ExpenseID),
		status.Paid, status.UpdatedAt, nullString(status.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment status: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListPaymentStatuses(ctx context.Context, householdID string) ([]*models.PaymentStatus, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT household_id, key, from_id, to_id, COALESCE(expense_id, ''), paid, updated_at, COALESCE(updated_by, '')
		 FROM payment_statuses WHERE household_id = $1 ORDER BY key`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment statuses: %w", err)
	}

	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.PaymentStatus, error) {
		ps := &models.PaymentStatus{}
		err := row.Scan(&ps.HouseholdID, &ps.Key, &ps.FromID, &ps.ToID, &ps.ExpenseID, &ps.Paid, &ps.UpdatedAt, &ps.UpdatedBy)
		return ps, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment statuses: %w", err)
	}
	return statuses, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, "email", email)
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, "id", id)
}

func (p *PostgresStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := p.pool.Query(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// getUser looks a user up by a unique column; nil, nil when absent.
func (p *PostgresStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	u := &models.User{}
	err := p.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = $1", value).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return u, nil
}

func (p *PostgresStore) queryShares(ctx context.Context, query string, arg string) (map[string][]models.Share, error) {
	rows, err := p.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	shares := make(map[string][]models.Share)
	for rows.Next() {
		var expenseID string
		var share models.Share
		if err := rows.Scan(&expenseID, &share.MemberID, &share.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares[expenseID] = append(shares[expenseID], share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

func insertShares(ctx context.Context, tx pgx.Tx, expense *models.Expense) error {
	for _, share := range expense.Shares {
		_, err := tx.Exec(ctx,
			"INSERT INTO expense_shares (expense_id, member_id, weight) VALUES ($1, $2, $3)",
			expense.ID, share.MemberID, share.ShareWeight(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}
