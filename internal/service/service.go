// Package service implements the roomsplit Connect services on top of a
// storage.Store. Balances and settlements are never stored; every call that
// needs them loads a fresh snapshot and runs package ledger over it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/roomsplit/internal/auth"
	"github.com/mmynk/roomsplit/internal/ledger"
	"github.com/mmynk/roomsplit/internal/middleware"
	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

var (
	errAccessDenied      = errors.New("not a member of this household")
	errCreatorOnly       = errors.New("only the household creator can do this")
	errWrongHousehold    = errors.New("does not belong to this household")
	errUserAlreadyLinked = errors.New("user is already linked to a member of this household")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateMsg runs the struct tags of a request message.
func validateMsg(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// currentUser returns the caller's user ID.
func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// toConnectError maps store and ledger errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrMemberIsPayer), errors.Is(err, storage.ErrMemberHasShares),
		errors.Is(err, ledger.ErrUnbalancedLedger):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ledger.ErrUnknownMember), errors.Is(err, ledger.ErrInvalidWeight),
		errors.Is(err, ledger.ErrAmountOutOfRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// householdAccess is what an authorized household call has already loaded.
type householdAccess struct {
	userID    string
	household *models.Household
	members   []*models.Member
}

// member returns the household member with id, or nil.
func (a *householdAccess) member(id string) *models.Member {
	for _, m := range a.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// authorize loads the household and its members and checks that the caller
// created it or is linked to one of its members.
func authorize(ctx context.Context, store storage.Store, householdID string) (*householdAccess, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	household, err := store.GetHousehold(ctx, householdID)
	if err != nil {
		return nil, toConnectError(err)
	}

	members, err := store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, toConnectError(err)
	}

	access := &householdAccess{userID: userID, household: household, members: members}
	if household.CreatedBy == userID {
		return access, nil
	}
	for _, m := range members {
		if m.UserID == userID {
			return access, nil
		}
	}
	return nil, connect.NewError(connect.CodePermissionDenied, errAccessDenied)
}

// snapshot converts stored records into the ledger's view, expanding
// expenses without shares to the payer's room.
func snapshot(members []*models.Member, expenses []*models.Expense) ledger.Snapshot {
	s := ledger.Snapshot{
		Members:  make([]ledger.Member, 0, len(members)),
		Expenses: make([]ledger.Expense, 0, len(expenses)),
	}
	for _, m := range members {
		s.Members = append(s.Members, ledger.Member{ID: m.ID, Name: m.Name, RoomID: m.RoomID})
	}
	for _, e := range expenses {
		shares := make([]ledger.Share, 0, len(e.Shares))
		for _, sh := range e.Shares {
			shares = append(shares, ledger.Share{MemberID: sh.MemberID, Weight: float64(sh.Weight)})
		}
		s.Expenses = append(s.Expenses, ledger.Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			PayerID:     e.PayerID,
			Shares:      shares,
			Date:        time.Unix(e.CreatedAt, 0),
		})
	}
	return s.Expanded()
}

// memberNames indexes member display names by ID.
func memberNames(members []*models.Member) map[string]string {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names
}

func wrongHousehold(kind, id string) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s %s %w", kind, id, errWrongHousehold))
}
