package ledger

import "sort"

// party is a debtor or creditor with the magnitude still to settle.
type party struct {
	id     string
	amount int64
}

// ComputeSettlementTransfers computes balances and turns them into transfer
// instructions, each annotated with the expenses that contributed to it.
//
// The transfers are returned even when the error is an *UnbalancedError so
// callers can still show them.
func ComputeSettlementTransfers(members []Member, expenses []Expense) ([]Transfer, error) {
	transfers, err := SettleBalances(ComputeBalances(members, expenses))
	AttachBreakdown(transfers, expenses)
	return transfers, err
}

// SettleBalances pairs debtors with creditors using greedy matching.
//
// Algorithm:
//   - debtors (balance < 0) sorted most negative first
//   - creditors (balance > 0) sorted most positive first
//   - ties broken by member id so output is reproducible
//   - two pointers walk both lists; each step settles min(debt, credit)
//     and advances whichever side reached zero
//
// Every step advances at least one pointer, so the loop runs at most
// len(debtors)+len(creditors) times and emits at most N-1 transfers for N
// nonzero balances. Whatever is left when one side runs out is the residual;
// a residual above rounding tolerance yields an *UnbalancedError.
func SettleBalances(balances map[string]int64) ([]Transfer, error) {
	var debtors, creditors []party
	for id, b := range balances {
		switch {
		case b < 0:
			debtors = append(debtors, party{id: id, amount: -b})
		case b > 0:
			creditors = append(creditors, party{id: id, amount: b})
		}
	}
	sortParties(debtors)
	sortParties(creditors)

	transfers := make([]Transfer, 0)
	limit := len(debtors) + len(creditors)
	i, j := 0, 0
	for step := 0; i < len(debtors) && j < len(creditors) && step < limit; step++ {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		if amount > 0 {
			transfers = append(transfers, Transfer{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		if debtors[i].amount < 1 {
			i++
		}
		if creditors[j].amount < 1 {
			j++
		}
	}

	var residual int64
	for ; i < len(debtors); i++ {
		residual += debtors[i].amount
	}
	for ; j < len(creditors); j++ {
		residual += creditors[j].amount
	}
	if tol := tolerance(len(balances)); residual > tol {
		return transfers, &UnbalancedError{Residual: residual, Tolerance: tol}
	}
	return transfers, nil
}

// AttachBreakdown fills in, for each transfer, the expenses paid by the
// creditor in which the debtor took part, with the debtor's share of each.
// Shares that round to 0 are left out.
func AttachBreakdown(transfers []Transfer, expenses []Expense) {
	for i := range transfers {
		t := &transfers[i]
		t.Breakdown = nil
		for _, e := range expenses {
			if e.PayerID != t.To {
				continue
			}
			amount := ShareOf(e, t.From)
			if amount <= 0 {
				continue
			}
			t.Breakdown = append(t.Breakdown, Contribution{
				ExpenseID:   e.ID,
				Description: e.Description,
				Date:        e.Date,
				Amount:      amount,
			})
		}
	}
}

func sortParties(ps []party) {
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].amount != ps[b].amount {
			return ps[a].amount > ps[b].amount
		}
		return ps[a].id < ps[b].id
	})
}

// tolerance is the largest residual per-member rounding can produce:
// each balance moves by at most half a unit.
func tolerance(members int) int64 {
	tol := int64((members + 1) / 2)
	if tol < 1 {
		tol = 1
	}
	return tol
}
