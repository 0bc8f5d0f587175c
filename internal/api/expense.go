package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService.
const ExpenseServiceName = "roomsplit.v1.ExpenseService"

const (
	ExpenseServiceCreateExpenseProcedure       = "/roomsplit.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure          = "/roomsplit.v1.ExpenseService/GetExpense"
	ExpenseServiceListExpensesProcedure        = "/roomsplit.v1.ExpenseService/ListExpenses"
	ExpenseServiceUpdateExpenseProcedure       = "/roomsplit.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure       = "/roomsplit.v1.ExpenseService/DeleteExpense"
	ExpenseServiceGetBalancesProcedure         = "/roomsplit.v1.ExpenseService/GetBalances"
	ExpenseServiceGetSettlementProcedure       = "/roomsplit.v1.ExpenseService/GetSettlement"
	ExpenseServiceSetPaymentStatusProcedure    = "/roomsplit.v1.ExpenseService/SetPaymentStatus"
	ExpenseServiceListPaymentStatusesProcedure = "/roomsplit.v1.ExpenseService/ListPaymentStatuses"
)

type Share struct {
	MemberID string `json:"member_id" validate:"required"`
	// Weight defaults to 1 when omitted.
	Weight int `json:"weight,omitempty" validate:"gte=0,lte=1000"`
}

type Expense struct {
	ID            string   `json:"id"`
	HouseholdID   string   `json:"household_id"`
	Description   string   `json:"description"`
	Amount        int64    `json:"amount"`
	PayerID       string   `json:"payer_id"`
	Shares        []*Share `json:"shares"`
	CreatedAt     int64    `json:"created_at"`
	CreatedBy     string   `json:"created_by,omitempty"`
	CreatedByName string   `json:"created_by_name,omitempty"`
}

type CreateExpenseRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	Description string `json:"description" validate:"required,max=200"`
	// Amount is rounded to whole currency units.
	Amount  float64 `json:"amount" validate:"gt=0,lte=1e15"`
	PayerID string  `json:"payer_id" validate:"required"`
	// Shares empty means everyone in the payer's room.
	Shares []*Share `json:"shares" validate:"dive,required"`
	// Date is a Unix timestamp; 0 means now.
	Date int64 `json:"date,omitempty" validate:"gte=0"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type UpdateExpenseRequest struct {
	ExpenseID   string   `json:"expense_id" validate:"required"`
	Description string   `json:"description" validate:"required,max=200"`
	Amount      float64  `json:"amount" validate:"gt=0,lte=1e15"`
	PayerID     string   `json:"payer_id" validate:"required"`
	Shares      []*Share `json:"shares" validate:"dive,required"`
	// Date 0 keeps the current date.
	Date int64 `json:"date,omitempty" validate:"gte=0"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type DeleteExpenseResponse struct{}

type MemberBalance struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	// Balance > 0 means the member is owed money.
	Balance int64 `json:"balance"`
}

type GetBalancesRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type GetBalancesResponse struct {
	Balances []*MemberBalance `json:"balances"`
}

type Contribution struct {
	ExpenseID   string `json:"expense_id"`
	Description string `json:"description"`
	Date        int64  `json:"date"`
	Amount      int64  `json:"amount"`
	Key         string `json:"key"`
	Paid        bool   `json:"paid"`
}

type Transfer struct {
	FromID    string          `json:"from_id"`
	FromName  string          `json:"from_name"`
	ToID      string          `json:"to_id"`
	ToName    string          `json:"to_name"`
	Amount    int64           `json:"amount"`
	Key       string          `json:"key"`
	Paid      bool            `json:"paid"`
	Breakdown []*Contribution `json:"breakdown,omitempty"`
}

type GetSettlementRequest struct {
	HouseholdID      string `json:"household_id" validate:"required"`
	IncludeBreakdown bool   `json:"include_breakdown,omitempty"`
}

type GetSettlementResponse struct {
	Transfers []*Transfer `json:"transfers"`
}

type PaymentStatus struct {
	Key       string `json:"key"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	ExpenseID string `json:"expense_id,omitempty"`
	Paid      bool   `json:"paid"`
	UpdatedAt int64  `json:"updated_at"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

type SetPaymentStatusRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	FromID      string `json:"from_id" validate:"required"`
	ToID        string `json:"to_id" validate:"required,nefield=FromID"`
	ExpenseID   string `json:"expense_id,omitempty"`
	Paid        bool   `json:"paid"`
}

type SetPaymentStatusResponse struct {
	Status *PaymentStatus `json:"status"`
}

type ListPaymentStatusesRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type ListPaymentStatusesResponse struct {
	Statuses []*PaymentStatus `json:"statuses"`
}

// ExpenseServiceHandler is implemented by service.ExpenseService.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	GetSettlement(context.Context, *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error)
	SetPaymentStatus(context.Context, *connect.Request[SetPaymentStatusRequest]) (*connect.Response[SetPaymentStatusResponse], error)
	ListPaymentStatuses(context.Context, *connect.Request[ListPaymentStatusesRequest]) (*connect.Response[ListPaymentStatusesResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for the ExpenseService and
// returns the path prefix to mount it on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	handle(mux, ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts)
	handle(mux, ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts)
	handle(mux, ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts)
	handle(mux, ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts)
	handle(mux, ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts)
	handle(mux, ExpenseServiceGetBalancesProcedure, svc.GetBalances, opts)
	handle(mux, ExpenseServiceGetSettlementProcedure, svc.GetSettlement, opts)
	handle(mux, ExpenseServiceSetPaymentStatusProcedure, svc.SetPaymentStatus, opts)
	handle(mux, ExpenseServiceListPaymentStatusesProcedure, svc.ListPaymentStatuses, opts)
	return "/" + ExpenseServiceName + "/", mux
}

// ExpenseServiceClient calls the ExpenseService.
type ExpenseServiceClient struct {
	createExpense       *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense          *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses        *connect.Client[ListExpensesRequest, ListExpensesResponse]
	updateExpense       *connect.Client[UpdateExpenseRequest, UpdateExpenseResponse]
	deleteExpense       *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	getBalances         *connect.Client[GetBalancesRequest, GetBalancesResponse]
	getSettlement       *connect.Client[GetSettlementRequest, GetSettlementResponse]
	setPaymentStatus    *connect.Client[SetPaymentStatusRequest, SetPaymentStatusResponse]
	listPaymentStatuses *connect.Client[ListPaymentStatusesRequest, ListPaymentStatusesResponse]
}

// NewExpenseServiceClient creates a client for the ExpenseService at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	return &ExpenseServiceClient{
		createExpense:       newClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL, ExpenseServiceCreateExpenseProcedure, opts),
		getExpense:          newClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL, ExpenseServiceGetExpenseProcedure, opts),
		listExpenses:        newClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL, ExpenseServiceListExpensesProcedure, opts),
		updateExpense:       newClient[UpdateExpenseRequest, UpdateExpenseResponse](httpClient, baseURL, ExpenseServiceUpdateExpenseProcedure, opts),
		deleteExpense:       newClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL, ExpenseServiceDeleteExpenseProcedure, opts),
		getBalances:         newClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL, ExpenseServiceGetBalancesProcedure, opts),
		getSettlement:       newClient[GetSettlementRequest, GetSettlementResponse](httpClient, baseURL, ExpenseServiceGetSettlementProcedure, opts),
		setPaymentStatus:    newClient[SetPaymentStatusRequest, SetPaymentStatusResponse](httpClient, baseURL, ExpenseServiceSetPaymentStatusProcedure, opts),
		listPaymentStatuses: newClient[ListPaymentStatusesRequest, ListPaymentStatusesResponse](httpClient, baseURL, ExpenseServiceListPaymentStatusesProcedure, opts),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) SetPaymentStatus(ctx context.Context, req *connect.Request[SetPaymentStatusRequest]) (*connect.Response[SetPaymentStatusResponse], error) {
	return c.setPaymentStatus.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListPaymentStatuses(ctx context.Context, req *connect.Request[ListPaymentStatusesRequest]) (*connect.Response[ListPaymentStatusesResponse], error) {
	return c.listPaymentStatuses.CallUnary(ctx, req)
}
