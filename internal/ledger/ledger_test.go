package ledger

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = Member{ID: "a", Name: "Alice", RoomID: "r1"}
	bob   = Member{ID: "b", Name: "Bob", RoomID: "r1"}
	carol = Member{ID: "c", Name: "Carol", RoomID: "r2"}
	dave  = Member{ID: "d", Name: "Dave", RoomID: "r2"}
)

func TestComputeBalances(t *testing.T) {
	members := []Member{alice, bob, carol}

	tests := []struct {
		name     string
		members  []Member
		expenses []Expense
		want     map[string]int64
	}{
		{
			name:    "equal split with payer participating",
			members: members,
			expenses: []Expense{{
				ID: "e1", Amount: 9000, PayerID: "a",
				Shares: []Share{{MemberID: "a", Weight: 1}, {MemberID: "b", Weight: 1}, {MemberID: "c", Weight: 1}},
			}},
			want: map[string]int64{"a": 6000, "b": -3000, "c": -3000},
		},
		{
			name:    "weighted split with payer not participating",
			members: members,
			expenses: []Expense{{
				ID: "e1", Amount: 9000, PayerID: "c",
				Shares: []Share{{MemberID: "a", Weight: 1}, {MemberID: "b", Weight: 2}},
			}},
			want: map[string]int64{"a": -3000, "b": -6000, "c": 9000},
		},
		{
			name:    "unspecified weight counts as one",
			members: members,
			expenses: []Expense{{
				ID: "e1", Amount: 600, PayerID: "a",
				Shares: []Share{{MemberID: "b"}, {MemberID: "c", Weight: 2}},
			}},
			want: map[string]int64{"a": 600, "b": -200, "c": -400},
		},
		{
			name:    "empty participants is a no-op",
			members: members,
			expenses: []Expense{{
				ID: "e1", Amount: 9000, PayerID: "a",
			}},
			want: map[string]int64{"a": 0, "b": 0, "c": 0},
		},
		{
			name:     "members without expenses appear at zero",
			members:  []Member{alice, bob, carol, dave},
			expenses: nil,
			want:     map[string]int64{"a": 0, "b": 0, "c": 0, "d": 0},
		},
		{
			name:    "rounding happens once after summation",
			members: members,
			expenses: []Expense{
				{ID: "e1", Amount: 100, PayerID: "a", Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "c"}}},
				{ID: "e2", Amount: 100, PayerID: "a", Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "c"}}},
			},
			// b owes 66.67 in total, not 33 + 33
			want: map[string]int64{"a": 133, "b": -67, "c": -67},
		},
		{
			name:    "unknown participant is dropped",
			members: []Member{alice, bob},
			expenses: []Expense{{
				ID: "e1", Amount: 900, PayerID: "a",
				Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "ghost"}},
			}},
			want: map[string]int64{"a": 600, "b": -300},
		},
		{
			name:    "unknown payer is dropped",
			members: []Member{alice, bob},
			expenses: []Expense{{
				ID: "e1", Amount: 900, PayerID: "ghost",
				Shares: []Share{{MemberID: "a"}, {MemberID: "b"}},
			}},
			want: map[string]int64{"a": -450, "b": -450},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalances(tt.members, tt.expenses)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeBalances_Conservation(t *testing.T) {
	members := []Member{alice, bob, carol, dave}
	expenses := []Expense{
		{ID: "e1", Amount: 1001, PayerID: "a", Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "c"}}},
		{ID: "e2", Amount: 77, PayerID: "b", Shares: []Share{{MemberID: "c", Weight: 3}, {MemberID: "d", Weight: 7}}},
		{ID: "e3", Amount: 4999, PayerID: "d", Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "c"}, {MemberID: "d"}}},
		{ID: "e4", Amount: 13, PayerID: "c", Shares: []Share{{MemberID: "a", Weight: 2}, {MemberID: "d", Weight: 5}}},
	}

	var sum int64
	for _, b := range ComputeBalances(members, expenses) {
		sum += b
	}
	if sum < 0 {
		sum = -sum
	}
	assert.LessOrEqual(t, sum, int64(len(expenses)))
}

func TestComputeBalances_Idempotent(t *testing.T) {
	members := []Member{alice, bob, carol}
	expenses := []Expense{
		{ID: "e1", Amount: 1234, PayerID: "b", Shares: []Share{{MemberID: "a"}, {MemberID: "c", Weight: 4}}},
	}

	first := ComputeBalances(members, expenses)
	second := ComputeBalances(members, expenses)
	assert.Equal(t, first, second)
}

func TestShareOf(t *testing.T) {
	e := Expense{Amount: 1000, Shares: []Share{{MemberID: "a", Weight: 1}, {MemberID: "b", Weight: 2}}}

	assert.Equal(t, int64(333), ShareOf(e, "a"))
	assert.Equal(t, int64(667), ShareOf(e, "b"))
	assert.Equal(t, int64(0), ShareOf(e, "c"))
	assert.Equal(t, int64(0), ShareOf(Expense{Amount: 10}, "a"))
}

func TestRoundAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{12.4, 12},
		{12.5, 13},
		{12.6, 13},
		{1999.99, 2000},
		{0.4, 0},
		{-0.5, 0},
	}
	for _, tt := range tests {
		got, err := RoundAmount(tt.in)
		require.NoError(t, err, "RoundAmount(%v)", tt.in)
		assert.Equal(t, tt.want, got, "RoundAmount(%v)", tt.in)
	}

	got, err := RoundAmount(float64(MaxAmount))
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, got)

	for _, in := range []float64{2e19, 1e20, 9.3e18, -1e20, 1e15 + 1, math.NaN(), math.Inf(1)} {
		_, err := RoundAmount(in)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, "RoundAmount(%v)", in)
	}
}

func TestExpandParticipants(t *testing.T) {
	members := []Member{alice, bob, carol, dave}

	t.Run("empty shares expand to payer's room", func(t *testing.T) {
		got := ExpandParticipants(members, Expense{ID: "e1", Amount: 100, PayerID: "c"})
		assert.Equal(t, []Share{{MemberID: "c", Weight: 1}, {MemberID: "d", Weight: 1}}, got.Shares)
	})

	t.Run("explicit shares are kept", func(t *testing.T) {
		shares := []Share{{MemberID: "a", Weight: 3}}
		got := ExpandParticipants(members, Expense{ID: "e1", Amount: 100, PayerID: "c", Shares: shares})
		assert.Equal(t, shares, got.Shares)
	})

	t.Run("unknown payer stays empty", func(t *testing.T) {
		got := ExpandParticipants(members, Expense{ID: "e1", Amount: 100, PayerID: "ghost"})
		assert.Empty(t, got.Shares)
	})

	t.Run("snapshot expansion feeds balances", func(t *testing.T) {
		snap := Snapshot{
			Members:  members,
			Expenses: []Expense{{ID: "e1", Amount: 800, PayerID: "a"}},
		}.Expanded()
		assert.Equal(t, map[string]int64{"a": 400, "b": -400, "c": 0, "d": 0}, snap.Balances())
	})
}

func TestCheckReferences(t *testing.T) {
	members := []Member{alice, bob}

	require.NoError(t, CheckReferences(members, []Expense{
		{ID: "e1", PayerID: "a", Shares: []Share{{MemberID: "b"}}},
	}))

	err := CheckReferences(members, []Expense{{ID: "e1", PayerID: "ghost"}})
	assert.ErrorIs(t, err, ErrUnknownMember)

	err = CheckReferences(members, []Expense{{ID: "e1", PayerID: "a", Shares: []Share{{MemberID: "ghost"}}}})
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestCheckWeights(t *testing.T) {
	require.NoError(t, CheckWeights([]Expense{{Shares: []Share{{MemberID: "a", Weight: 2}, {MemberID: "b"}}}}))
	assert.ErrorIs(t, CheckWeights([]Expense{{Shares: []Share{{MemberID: "a", Weight: -1}}}}), ErrInvalidWeight)
}

func TestSettleBalances(t *testing.T) {
	t.Run("two debtors one creditor", func(t *testing.T) {
		balances := map[string]int64{"a": -500, "b": -300, "c": 800}

		transfers, err := SettleBalances(balances)
		require.NoError(t, err)
		assert.Equal(t, []Transfer{
			{From: "a", To: "c", Amount: 500},
			{From: "b", To: "c", Amount: 300},
		}, transfers)

		again, err := SettleBalances(balances)
		require.NoError(t, err)
		assert.Equal(t, transfers, again)
	})

	t.Run("ties are broken by member id", func(t *testing.T) {
		balances := map[string]int64{"z": -100, "y": -100, "x": 100, "w": 100}

		transfers, err := SettleBalances(balances)
		require.NoError(t, err)
		assert.Equal(t, []Transfer{
			{From: "y", To: "w", Amount: 100},
			{From: "z", To: "x", Amount: 100},
		}, transfers)
	})

	t.Run("largest debt meets largest credit", func(t *testing.T) {
		balances := map[string]int64{"a": -100, "b": -700, "c": 300, "d": 500}

		transfers, err := SettleBalances(balances)
		require.NoError(t, err)
		assert.Equal(t, []Transfer{
			{From: "b", To: "d", Amount: 500},
			{From: "b", To: "c", Amount: 200},
			{From: "a", To: "c", Amount: 100},
		}, transfers)
	})

	t.Run("no debtors", func(t *testing.T) {
		transfers, err := SettleBalances(map[string]int64{"a": 0, "b": 0})
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})

	t.Run("empty input", func(t *testing.T) {
		transfers, err := SettleBalances(nil)
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})

	t.Run("rounding residual is tolerated", func(t *testing.T) {
		transfers, err := SettleBalances(map[string]int64{"a": 67, "b": -33, "c": -33})
		require.NoError(t, err)
		assert.Equal(t, []Transfer{
			{From: "b", To: "a", Amount: 33},
			{From: "c", To: "a", Amount: 33},
		}, transfers)
	})

	t.Run("large residual is an unbalanced ledger", func(t *testing.T) {
		transfers, err := SettleBalances(map[string]int64{"a": -500, "c": 800})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnbalancedLedger))

		var unbalanced *UnbalancedError
		require.ErrorAs(t, err, &unbalanced)
		assert.Equal(t, int64(300), unbalanced.Residual)
		assert.Equal(t, []Transfer{{From: "a", To: "c", Amount: 500}}, transfers)
	})
}

func TestSettleBalances_Termination(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(12)
		balances := make(map[string]int64, n)
		var sum int64
		for i := 0; i < n-1; i++ {
			b := rng.Int63n(2000) - 1000
			if b == 0 {
				b = 1
			}
			balances[string(rune('a'+i))] = b
			sum += b
		}
		if sum == 0 {
			sum = 1
			balances["a"]++
		}
		balances[string(rune('a'+n-1))] = -sum

		nonzero := 0
		for _, b := range balances {
			if b != 0 {
				nonzero++
			}
		}

		transfers, err := SettleBalances(balances)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(transfers), nonzero-1)

		settled := make(map[string]int64, n)
		for id, b := range balances {
			settled[id] = b
		}
		for _, tr := range transfers {
			assert.Positive(t, tr.Amount)
			settled[tr.From] += tr.Amount
			settled[tr.To] -= tr.Amount
		}
		for id, b := range settled {
			assert.Zero(t, b, "member %s left unsettled", id)
		}
	}
}

func TestComputeSettlementTransfers_Breakdown(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	members := []Member{alice, bob, carol}
	expenses := []Expense{
		{ID: "rent", Description: "Rent", Amount: 900, PayerID: "c", Date: day,
			Shares: []Share{{MemberID: "a"}, {MemberID: "b"}, {MemberID: "c"}}},
		{ID: "wifi", Description: "Wifi", Amount: 60, PayerID: "c", Date: day.AddDate(0, 0, 1),
			Shares: []Share{{MemberID: "a", Weight: 1}, {MemberID: "c", Weight: 2}}},
		{ID: "soap", Description: "Soap", Amount: 30, PayerID: "a", Date: day,
			Shares: []Share{{MemberID: "b"}}},
	}

	transfers, err := ComputeSettlementTransfers(members, expenses)
	require.NoError(t, err)

	// a: -300 - 20 + 30 = -290, b: -300 - 30 = -330, c: +620
	assert.Equal(t, []Transfer{
		{From: "b", To: "c", Amount: 330, Breakdown: []Contribution{
			{ExpenseID: "rent", Description: "Rent", Date: day, Amount: 300},
		}},
		{From: "a", To: "c", Amount: 290, Breakdown: []Contribution{
			{ExpenseID: "rent", Description: "Rent", Date: day, Amount: 300},
			{ExpenseID: "wifi", Description: "Wifi", Date: day.AddDate(0, 0, 1), Amount: 20},
		}},
	}, transfers)
}

func TestPaymentKey(t *testing.T) {
	assert.Equal(t, "a:b", PaymentKey("a", "b", ""))
	assert.Equal(t, "a:b:e1", PaymentKey("a", "b", "e1"))
	assert.NotEqual(t, PaymentKey("a", "b", ""), PaymentKey("b", "a", ""))
}
