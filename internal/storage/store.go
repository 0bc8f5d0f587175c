// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/roomsplit/internal/models"
)

var (
	// ErrNotFound is wrapped by every lookup that finds no row.
	ErrNotFound = errors.New("not found")
	// ErrMemberIsPayer is returned when deleting a member that still paid
	// for at least one expense.
	ErrMemberIsPayer = errors.New("member is the payer of existing expenses")
	// ErrMemberHasShares is returned when deleting a member that still
	// participates in at least one expense.
	ErrMemberHasShares = errors.New("member participates in existing expenses")
)

// Store defines the interface for household storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore

	// CreateHousehold persists a new household. ID and CreatedAt are
	// populated by the store when empty.
	CreateHousehold(ctx context.Context, household *models.Household) error
	GetHousehold(ctx context.Context, householdID string) (*models.Household, error)
	// ListHouseholdsForUser returns households the user created or is a
	// linked member of, oldest first.
	ListHouseholdsForUser(ctx context.Context, userID string) ([]*models.Household, error)
	// DeleteHousehold removes the household and everything it owns.
	DeleteHousehold(ctx context.Context, householdID string) error

	CreateRoom(ctx context.Context, room *models.Room) error
	ListRooms(ctx context.Context, householdID string) ([]*models.Room, error)
	// DeleteRoom removes a room; its members become unassigned.
	DeleteRoom(ctx context.Context, roomID string) error

	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	ListMembers(ctx context.Context, householdID string) ([]*models.Member, error)
	UpdateMember(ctx context.Context, member *models.Member) error
	// DeleteMember removes a member that no expense references. Returns
	// ErrMemberIsPayer if any expense names them as payer and
	// ErrMemberHasShares if any expense lists them as a participant.
	DeleteMember(ctx context.Context, memberID string) error

	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	// ListExpenses returns the household's expenses newest first, with shares.
	ListExpenses(ctx context.Context, householdID string) ([]*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, expenseID string) error

	// SetPaymentStatus inserts or replaces the record for (HouseholdID, Key).
	SetPaymentStatus(ctx context.Context, status *models.PaymentStatus) error
	ListPaymentStatuses(ctx context.Context, householdID string) ([]*models.PaymentStatus, error)

	// Close releases any resources held by the store.
	Close() error
}

// UserStore holds user accounts. It matches auth.UserStorage.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns nil, nil when no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs omits ids with no user from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}
