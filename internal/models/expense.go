package models

// DefaultWeight is the share weight used when none is given.
const DefaultWeight = 1

// Expense is a shared cost paid by one member.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// HouseholdID is the owning household.
	HouseholdID string

	// Description is free text (e.g., "Groceries").
	Description string

	// Amount is the cost in whole currency units, always positive.
	Amount int64

	// PayerID is the member who paid.
	PayerID string

	// Shares lists who owes a part of the expense and with which weight.
	// Empty means "everyone in the payer's room"; see ledger.ExpandParticipants.
	Shares []Share

	// CreatedAt is the Unix timestamp of the expense date.
	CreatedAt int64

	// CreatedBy is the user who recorded the expense. Empty for expenses
	// recorded before creators were tracked.
	CreatedBy string
}

// Share is one participant's weight in an expense.
type Share struct {
	MemberID string
	Weight   int
}

// ShareWeight returns the weight, falling back to DefaultWeight when unset.
func (s Share) ShareWeight() int {
	if s.Weight == 0 {
		return DefaultWeight
	}
	return s.Weight
}
