package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/roomsplit/internal/api"
	"github.com/mmynk/roomsplit/internal/events"
	"github.com/mmynk/roomsplit/internal/ledger"
	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

var (
	errNonPositiveAmount = errors.New("amount must be at least 1 after rounding")
	errDuplicateShare    = errors.New("member appears more than once in shares")
)

// ExpenseService implements api.ExpenseServiceHandler.
type ExpenseService struct {
	store     storage.Store
	publisher events.Publisher
}

// NewExpenseService creates an ExpenseService with the given storage
// backend. A nil publisher drops events.
func NewExpenseService(store storage.Store, publisher events.Publisher) *ExpenseService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ExpenseService{store: store, publisher: publisher}
}

// CreateExpense records an expense. The amount is rounded half-up to whole
// units; an empty share list splits it across the payer's room.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	slog.Info("CreateExpense request received",
		"household_id", req.Msg.HouseholdID,
		"description", req.Msg.Description,
		"amount", req.Msg.Amount,
		"shares", len(req.Msg.Shares),
	)

	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		HouseholdID: req.Msg.HouseholdID,
		Description: req.Msg.Description,
		CreatedAt:   req.Msg.Date,
		CreatedBy:   access.userID,
	}
	if err := applyExpenseFields(access, expense, req.Msg.Amount, req.Msg.PayerID, req.Msg.Shares); err != nil {
		return nil, err
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense created", "expense_id", expense.ID, "amount", expense.Amount)
	s.emitExpense(ctx, events.ExpenseCreated, access.userID, expense)

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: s.expenseToAPI(ctx, expense)}), nil
}

// GetExpense retrieves an expense by ID.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	expense, _, err := s.loadExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: s.expenseToAPI(ctx, expense)}), nil
}

// ListExpenses returns all expenses of a household, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, req.Msg.HouseholdID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, req.Msg.HouseholdID)
	if err != nil {
		slog.Error("ListExpenses failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	names := s.creatorNames(ctx, expenses)
	out := make([]*api.Expense, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseToAPI(e, names[e.CreatedBy]))
	}

	slog.Info("ListExpenses successful", "household_id", req.Msg.HouseholdID, "count", len(out))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// UpdateExpense replaces description, amount, payer and shares of an
// expense. A zero Date keeps the stored date.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	expense, access, err := s.loadExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}

	expense.Description = req.Msg.Description
	if req.Msg.Date != 0 {
		expense.CreatedAt = req.Msg.Date
	}
	if err := applyExpenseFields(access, expense, req.Msg.Amount, req.Msg.PayerID, req.Msg.Shares); err != nil {
		return nil, err
	}

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense updated", "expense_id", expense.ID, "amount", expense.Amount)
	s.emitExpense(ctx, events.ExpenseUpdated, access.userID, expense)

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: s.expenseToAPI(ctx, expense)}), nil
}

// DeleteExpense removes an expense. Balances change accordingly on the next
// read.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	expense, access, err := s.loadExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense deleted", "expense_id", expense.ID)
	s.emitExpense(ctx, events.ExpenseDeleted, access.userID, expense)

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetBalances returns every member's net balance, in member order.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	snap, access, err := s.loadSnapshot(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}

	balances := snap.Balances()
	out := make([]*api.MemberBalance, 0, len(access.members))
	for _, m := range access.members {
		out = append(out, &api.MemberBalance{
			MemberID:   m.ID,
			MemberName: m.Name,
			Balance:    balances[m.ID],
		})
	}

	slog.Info("GetBalances successful", "household_id", req.Msg.HouseholdID, "members", len(out))
	return connect.NewResponse(&api.GetBalancesResponse{Balances: out}), nil
}

// GetSettlement computes the transfers that settle the household, with the
// stored paid flags overlaid.
func (s *ExpenseService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	snap, access, err := s.loadSnapshot(ctx, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}

	transfers, err := snap.Transfers()
	if err != nil {
		var unbalanced *ledger.UnbalancedError
		if errors.As(err, &unbalanced) {
			slog.Error("GetSettlement: ledger does not balance",
				"household_id", req.Msg.HouseholdID,
				"residual", unbalanced.Residual,
				"tolerance", unbalanced.Tolerance,
			)
		}
		return nil, toConnectError(err)
	}

	statuses, err := s.store.ListPaymentStatuses(ctx, req.Msg.HouseholdID)
	if err != nil {
		slog.Error("GetSettlement: listing payment statuses failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}
	paid := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		paid[st.Key] = st.Paid
	}

	names := memberNames(access.members)
	out := make([]*api.Transfer, 0, len(transfers))
	for _, t := range transfers {
		key := ledger.PaymentKey(t.From, t.To, "")
		transfer := &api.Transfer{
			FromID:   t.From,
			FromName: names[t.From],
			ToID:     t.To,
			ToName:   names[t.To],
			Amount:   t.Amount,
			Key:      key,
			Paid:     paid[key],
		}
		if req.Msg.IncludeBreakdown {
			for _, c := range t.Breakdown {
				ckey := ledger.PaymentKey(t.From, t.To, c.ExpenseID)
				transfer.Breakdown = append(transfer.Breakdown, &api.Contribution{
					ExpenseID:   c.ExpenseID,
					Description: c.Description,
					Date:        c.Date.Unix(),
					Amount:      c.Amount,
					Key:         ckey,
					Paid:        paid[ckey],
				})
			}
		}
		out = append(out, transfer)
	}

	slog.Info("GetSettlement successful", "household_id", req.Msg.HouseholdID, "transfers", len(out))
	return connect.NewResponse(&api.GetSettlementResponse{Transfers: out}), nil
}

// SetPaymentStatus records whether a transfer, or one expense inside it,
// has been paid. The flag is advisory and does not change balances.
func (s *ExpenseService) SetPaymentStatus(ctx context.Context, req *connect.Request[api.SetPaymentStatusRequest]) (*connect.Response[api.SetPaymentStatusResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{req.Msg.FromID, req.Msg.ToID} {
		if access.member(id) == nil {
			return nil, wrongHousehold("member", id)
		}
	}
	if req.Msg.ExpenseID != "" {
		expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
		if err != nil {
			return nil, toConnectError(err)
		}
		if expense.HouseholdID != req.Msg.HouseholdID {
			return nil, wrongHousehold("expense", req.Msg.ExpenseID)
		}
	}

	status := &models.PaymentStatus{
		HouseholdID: req.Msg.HouseholdID,
		Key:         ledger.PaymentKey(req.Msg.FromID, req.Msg.ToID, req.Msg.ExpenseID),
		FromID:      req.Msg.FromID,
		ToID:        req.Msg.ToID,
		ExpenseID:   req.Msg.ExpenseID,
		Paid:        req.Msg.Paid,
		UpdatedAt:   time.Now().Unix(),
		UpdatedBy:   access.userID,
	}
	if err := s.store.SetPaymentStatus(ctx, status); err != nil {
		slog.Error("SetPaymentStatus failed", "key", status.Key, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Payment status set", "household_id", status.HouseholdID, "key", status.Key, "paid", status.Paid)
	event := events.New(events.PaymentStatusChanged, status.HouseholdID, access.userID, status.Key)
	event.Paid = status.Paid
	events.Emit(ctx, s.publisher, event)

	return connect.NewResponse(&api.SetPaymentStatusResponse{Status: paymentStatusToAPI(status)}), nil
}

func (s *ExpenseService) ListPaymentStatuses(ctx context.Context, req *connect.Request[api.ListPaymentStatusesRequest]) (*connect.Response[api.ListPaymentStatusesResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, req.Msg.HouseholdID); err != nil {
		return nil, err
	}

	statuses, err := s.store.ListPaymentStatuses(ctx, req.Msg.HouseholdID)
	if err != nil {
		slog.Error("ListPaymentStatuses failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.PaymentStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, paymentStatusToAPI(st))
	}
	return connect.NewResponse(&api.ListPaymentStatusesResponse{Statuses: out}), nil
}

// loadExpense fetches an expense and authorizes the caller for its household.
func (s *ExpenseService) loadExpense(ctx context.Context, expenseID string) (*models.Expense, *householdAccess, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		slog.Warn("Expense lookup failed", "expense_id", expenseID, "error", err)
		return nil, nil, toConnectError(err)
	}
	access, err := authorize(ctx, s.store, expense.HouseholdID)
	if err != nil {
		return nil, nil, err
	}
	return expense, access, nil
}

// loadSnapshot authorizes the caller and builds the ledger snapshot of the
// household's current members and expenses.
func (s *ExpenseService) loadSnapshot(ctx context.Context, householdID string) (ledger.Snapshot, *householdAccess, error) {
	access, err := authorize(ctx, s.store, householdID)
	if err != nil {
		return ledger.Snapshot{}, nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, householdID)
	if err != nil {
		slog.Error("Loading expenses failed", "household_id", householdID, "error", err)
		return ledger.Snapshot{}, nil, toConnectError(err)
	}

	return snapshot(access.members, expenses), access, nil
}

// applyExpenseFields validates and sets amount, payer and shares.
func applyExpenseFields(access *householdAccess, expense *models.Expense, amount float64, payerID string, shares []*api.Share) error {
	rounded, err := ledger.RoundAmount(amount)
	if err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if rounded <= 0 {
		return connect.NewError(connect.CodeInvalidArgument, errNonPositiveAmount)
	}
	if access.member(payerID) == nil {
		return wrongHousehold("payer", payerID)
	}

	seen := make(map[string]bool, len(shares))
	out := make([]models.Share, 0, len(shares))
	for _, sh := range shares {
		if access.member(sh.MemberID) == nil {
			return wrongHousehold("member", sh.MemberID)
		}
		if seen[sh.MemberID] {
			return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %s", errDuplicateShare, sh.MemberID))
		}
		seen[sh.MemberID] = true
		out = append(out, models.Share{MemberID: sh.MemberID, Weight: sh.Weight})
	}

	expense.Amount = rounded
	expense.PayerID = payerID
	expense.Shares = out
	return nil
}

func (s *ExpenseService) emitExpense(ctx context.Context, t events.Type, actorID string, e *models.Expense) {
	event := events.New(t, e.HouseholdID, actorID, e.ID)
	event.Amount = e.Amount
	events.Emit(ctx, s.publisher, event)
}

// creatorNames resolves the display names of the users who recorded
// expenses. Lookup failures only cost the names.
func (s *ExpenseService) creatorNames(ctx context.Context, expenses []*models.Expense) map[string]string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range expenses {
		if e.CreatedBy != "" && !seen[e.CreatedBy] {
			seen[e.CreatedBy] = true
			ids = append(ids, e.CreatedBy)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		slog.Warn("Failed to resolve expense creators", "error", err)
		return names
	}
	for id, u := range users {
		names[id] = u.DisplayName
	}
	return names
}

func (s *ExpenseService) expenseToAPI(ctx context.Context, e *models.Expense) *api.Expense {
	return expenseToAPI(e, s.creatorNames(ctx, []*models.Expense{e})[e.CreatedBy])
}

func expenseToAPI(e *models.Expense, createdByName string) *api.Expense {
	shares := make([]*api.Share, 0, len(e.Shares))
	for _, sh := range e.Shares {
		shares = append(shares, &api.Share{MemberID: sh.MemberID, Weight: sh.ShareWeight()})
	}
	return &api.Expense{
		ID:            e.ID,
		HouseholdID:   e.HouseholdID,
		Description:   e.Description,
		Amount:        e.Amount,
		PayerID:       e.PayerID,
		Shares:        shares,
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
		CreatedByName: createdByName,
	}
}

func paymentStatusToAPI(st *models.PaymentStatus) *api.PaymentStatus {
	return &api.PaymentStatus{
		Key:       st.Key,
		FromID:    st.FromID,
		ToID:      st.ToID,
		ExpenseID: st.ExpenseID,
		Paid:      st.Paid,
		UpdatedAt: st.UpdatedAt,
		UpdatedBy: st.UpdatedBy,
	}
}
