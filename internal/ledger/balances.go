package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var half = decimal.New(5, -1)

// ComputeBalances reduces expenses into a signed balance per member.
// Positive means the member is owed money, negative means they owe.
//
// Algorithm:
//   - every member starts at 0, so members without expenses still appear
//   - for each expense with shares: payer += amount,
//     each participant -= amount * weight / total_weight
//   - expenses with no shares contribute nothing
//   - each balance is rounded half-up once, after summation
//
// Ids that are not in members are ignored: the payer credit or participant
// debit attached to them is dropped. Use CheckReferences to reject them.
func ComputeBalances(members []Member, expenses []Expense) map[string]int64 {
	totals := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		totals[m.ID] = decimal.Zero
	}

	for _, e := range expenses {
		if len(e.Shares) == 0 {
			continue
		}
		total := totalWeight(e.Shares)
		if !total.IsPositive() {
			continue
		}

		amount := decimal.NewFromInt(e.Amount)
		if cur, ok := totals[e.PayerID]; ok {
			totals[e.PayerID] = cur.Add(amount)
		}
		for _, s := range e.Shares {
			cur, ok := totals[s.MemberID]
			if !ok {
				continue
			}
			totals[s.MemberID] = cur.Sub(amount.Mul(weightOf(s)).Div(total))
		}
	}

	balances := make(map[string]int64, len(totals))
	for id, v := range totals {
		balances[id] = roundHalfUp(v)
	}
	return balances
}

// ShareOf returns memberID's weighted share of one expense, rounded half-up.
// Returns 0 when the member does not take part in the expense.
func ShareOf(e Expense, memberID string) int64 {
	total := totalWeight(e.Shares)
	if !total.IsPositive() {
		return 0
	}
	for _, s := range e.Shares {
		if s.MemberID == memberID {
			return roundHalfUp(decimal.NewFromInt(e.Amount).Mul(weightOf(s)).Div(total))
		}
	}
	return 0
}

func weightOf(s Share) decimal.Decimal {
	if s.Weight == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(s.Weight)
}

func totalWeight(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(weightOf(s))
	}
	return total
}

// roundHalfUp rounds to the nearest whole unit, ties toward +inf.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

var maxAmount = decimal.NewFromInt(MaxAmount)

// RoundAmount rounds a user-entered amount to whole currency units the same
// way balances are rounded. Amounts beyond ±MaxAmount return
// ErrAmountOutOfRange instead of wrapping.
func RoundAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%v: %w", amount, ErrAmountOutOfRange)
	}
	rounded := decimal.NewFromFloat(amount).Add(half).Floor()
	if rounded.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%s exceeds %d: %w", rounded, MaxAmount, ErrAmountOutOfRange)
	}
	return rounded.IntPart(), nil
}
