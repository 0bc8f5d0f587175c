package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

const memberColumns = "id, household_id, room_id, name, user_id, created_at"

// CreateMember persists a new member.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		member.ID, member.HouseholdID, nullString(member.RoomID), member.Name,
		nullString(member.UserID), member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", memberID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves the members of a household in the order they joined.
func (s *SQLiteStore) ListMembers(ctx context.Context, householdID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE household_id = ? ORDER BY created_at, name, id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// UpdateMember updates the name, room and linked user of a member.
func (s *SQLiteStore) UpdateMember(ctx context.Context, member *models.Member) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET name = ?, room_id = ?, user_id = ? WHERE id = ?",
		member.Name, nullString(member.RoomID), nullString(member.UserID), member.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", member.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteMember removes a member unless an expense still references them,
// either as payer or as participant.
func (s *SQLiteStore) DeleteMember(ctx context.Context, memberID string) error {
	var paid int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE payer_id = ?", memberID,
	).Scan(&paid)
	if err != nil {
		return fmt.Errorf("failed to check payer references: %w", err)
	}
	if paid > 0 {
		return fmt.Errorf("member %s (%d expenses): %w", memberID, paid, storage.ErrMemberIsPayer)
	}

	var shared int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expense_shares WHERE member_id = ?", memberID,
	).Scan(&shared)
	if err != nil {
		return fmt.Errorf("failed to check share references: %w", err)
	}
	if shared > 0 {
		return fmt.Errorf("member %s (%d shares): %w", memberID, shared, storage.ErrMemberHasShares)
	}
	return s.deleteByID(ctx, "members", memberID)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var roomID, userID sql.NullString
	if err := row.Scan(&m.ID, &m.HouseholdID, &roomID, &m.Name, &userID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.RoomID = roomID.String
	m.UserID = userID.String
	return m, nil
}
