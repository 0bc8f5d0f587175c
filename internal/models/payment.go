package models

// PaymentStatus is the persisted paid flag for a computed transfer, or for
// one expense within a transfer. It is advisory: balances are always
// recomputed from expenses and never read from here.
type PaymentStatus struct {
	HouseholdID string

	// Key is ledger.PaymentKey(FromID, ToID, ExpenseID).
	Key string

	FromID    string
	ToID      string
	ExpenseID string // empty for a whole-transfer flag

	Paid      bool
	UpdatedAt int64
	UpdatedBy string
}
