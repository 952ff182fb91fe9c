package calculator

import (
	"math"
	"testing"

	"github.com/jmolina/divvy/internal/models"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name     string
		people   []string
		balances map[string]float64
		want     []Payment
	}{
		{
			name:     "two debtors one creditor",
			people:   []string{"A", "B", "C"},
			balances: map[string]float64{"A": 60, "B": -30, "C": -30},
			want: []Payment{
				{From: "B", To: "A", Amount: 30},
				{From: "C", To: "A", Amount: 30},
			},
		},
		{
			name:     "single pair",
			people:   []string{"A", "B"},
			balances: map[string]float64{"A": 25, "B": -25},
			want:     []Payment{{From: "B", To: "A", Amount: 25}},
		},
		{
			name:     "debtor split across creditors in roster order",
			people:   []string{"A", "B", "C"},
			balances: map[string]float64{"A": 10, "B": 40, "C": -50},
			want: []Payment{
				{From: "C", To: "A", Amount: 10},
				{From: "C", To: "B", Amount: 40},
			},
		},
		{
			name:     "all settled",
			people:   []string{"A", "B"},
			balances: map[string]float64{"A": 0, "B": 0.005},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Settle(tt.people, tt.balances)
			if len(got) != len(tt.want) {
				t.Fatalf("Settle() = %v, want %v", got, tt.want)
			}
			for i, p := range got {
				w := tt.want[i]
				if p.From != w.From || p.To != w.To || math.Abs(p.Amount-w.Amount) > Epsilon {
					t.Errorf("payment %d = %+v, want %+v", i, p, w)
				}
			}
		})
	}
}

// Applying the settlement payments back onto the balances must zero every
// position, and no payment may be a self-payment. That pair of properties is
// the real contract; the specific pairing is incidental.
func TestSettle_ReproducesBalances(t *testing.T) {
	people := []string{"Ana", "Bruno", "Carla", "Dani", "Eva"}
	transactions := []models.Transaction{
		{ID: 1, Type: models.TypeExpense, Amount: 100, Payer: "Ana", Shares: EqualShares(100, people)},
		{ID: 2, Type: models.TypeExpense, Amount: 73.4, Payer: "Carla", Shares: EqualShares(73.4, []string{"Bruno", "Carla", "Eva"})},
		{ID: 3, Type: models.TypeAdjustment, Amount: 18, Beneficiary: "Dani", Contributors: []string{"Ana", "Eva"}},
		{ID: 4, Type: models.TypeTransfer, Amount: 12.25, From: "Bruno", To: "Ana"},
	}

	balances, err := Balances(people, transactions)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}

	payments := Settle(people, balances)

	remaining := make(map[string]float64, len(balances))
	for p, b := range balances {
		remaining[p] = b
	}
	for _, payment := range payments {
		if payment.From == payment.To {
			t.Fatalf("self-payment: %+v", payment)
		}
		if payment.Amount <= 0 {
			t.Fatalf("non-positive payment: %+v", payment)
		}
		remaining[payment.From] += payment.Amount
		remaining[payment.To] -= payment.Amount
	}
	for person, b := range remaining {
		if math.Abs(b) > Epsilon {
			t.Errorf("%s left with balance %v after settlement", person, b)
		}
	}
}

func TestSettle_Empty(t *testing.T) {
	if got := Settle(nil, map[string]float64{}); len(got) != 0 {
		t.Errorf("Settle() on empty balances = %v, want none", got)
	}
}
