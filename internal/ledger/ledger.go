// Package ledger computes who owes whom inside a household.
//
// Everything here is a pure function over an in-memory Snapshot of members
// and expenses. Balances and transfers are never persisted; callers recompute
// them from the current snapshot every time they are needed.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnbalancedLedger is returned when settlement leaves a residual larger
	// than rounding can explain.
	ErrUnbalancedLedger = errors.New("unbalanced ledger")
	// ErrUnknownMember is returned by CheckReferences for payer or share ids
	// that are not part of the member list.
	ErrUnknownMember = errors.New("unknown member")
	// ErrInvalidWeight is returned by CheckWeights for negative share weights.
	ErrInvalidWeight = errors.New("share weight must be positive")
	// ErrAmountOutOfRange is returned by RoundAmount for amounts whose
	// magnitude exceeds MaxAmount or that are not finite.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// MaxAmount is the largest expense amount, in whole currency units, that
// RoundAmount accepts. Household totals stay far inside int64.
const MaxAmount int64 = 1_000_000_000_000_000

// Member is the minimal view of a roommate needed for balance calculations.
type Member struct {
	ID     string
	Name   string
	RoomID string
}

// Share assigns a relative weight of an expense to one member.
// A zero Weight means "unspecified" and counts as 1.
type Share struct {
	MemberID string
	Weight   float64
}

// Expense is the minimal view of an expense needed for balance calculations.
// Amount is in whole currency units.
type Expense struct {
	ID          string
	Description string
	Amount      int64
	PayerID     string
	Shares      []Share
	Date        time.Time
}

// Contribution is one expense's part of a transfer.
type Contribution struct {
	ExpenseID   string
	Description string
	Date        time.Time
	Amount      int64
}

// Transfer is a payment instruction from a debtor to a creditor.
type Transfer struct {
	From      string
	To        string
	Amount    int64
	Breakdown []Contribution
}

// UnbalancedError reports the amount left over after settlement.
type UnbalancedError struct {
	Residual  int64
	Tolerance int64
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("%s: residual %d exceeds tolerance %d", ErrUnbalancedLedger, e.Residual, e.Tolerance)
}

func (e *UnbalancedError) Unwrap() error {
	return ErrUnbalancedLedger
}

// Snapshot is a consistent, read-only view of one household's members and
// expenses.
type Snapshot struct {
	Members  []Member
	Expenses []Expense
}

// Expanded returns a copy of the snapshot with every empty share set
// replaced by the payer's room. See ExpandParticipants.
func (s Snapshot) Expanded() Snapshot {
	expenses := make([]Expense, len(s.Expenses))
	for i, e := range s.Expenses {
		expenses[i] = ExpandParticipants(s.Members, e)
	}
	return Snapshot{Members: s.Members, Expenses: expenses}
}

// Balances is ComputeBalances over the snapshot.
func (s Snapshot) Balances() map[string]int64 {
	return ComputeBalances(s.Members, s.Expenses)
}

// Transfers is ComputeSettlementTransfers over the snapshot.
func (s Snapshot) Transfers() ([]Transfer, error) {
	return ComputeSettlementTransfers(s.Members, s.Expenses)
}

// ExpandParticipants resolves the household default for an expense with no
// explicit shares: everyone living in the payer's room, each with weight 1.
// Expenses that already have shares, or whose payer is not a known member,
// are returned unchanged.
func ExpandParticipants(members []Member, e Expense) Expense {
	if len(e.Shares) > 0 {
		return e
	}

	room, ok := "", false
	for _, m := range members {
		if m.ID == e.PayerID {
			room, ok = m.RoomID, true
			break
		}
	}
	if !ok {
		return e
	}

	shares := make([]Share, 0, len(members))
	for _, m := range members {
		if m.RoomID == room {
			shares = append(shares, Share{MemberID: m.ID, Weight: 1})
		}
	}
	e.Shares = shares
	return e
}

// CheckReferences reports payer or share ids that are not in members.
// ComputeBalances itself ignores such ids; callers that prefer to reject them
// run this first.
func CheckReferences(members []Member, expenses []Expense) error {
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}
	for _, e := range expenses {
		if !known[e.PayerID] {
			return fmt.Errorf("%w: expense %s payer %s", ErrUnknownMember, e.ID, e.PayerID)
		}
		for _, s := range e.Shares {
			if !known[s.MemberID] {
				return fmt.Errorf("%w: expense %s participant %s", ErrUnknownMember, e.ID, s.MemberID)
			}
		}
	}
	return nil
}

// CheckWeights reports the first share with a negative weight.
func CheckWeights(expenses []Expense) error {
	for _, e := range expenses {
		for _, s := range e.Shares {
			if s.Weight < 0 {
				return fmt.Errorf("%w: expense %s participant %s has weight %v", ErrInvalidWeight, e.ID, s.MemberID, s.Weight)
			}
		}
	}
	return nil
}

// PaymentKey derives the identifier under which the paid flag of a transfer
// (or of one expense inside a transfer) is stored.
func PaymentKey(from, to, expenseID string) string {
	if expenseID == "" {
		return from + ":" + to
	}
	return from + ":" + to + ":" + expenseID
}
