package summary

import (
	"strings"
	"testing"

	"github.com/jmolina/divvy/internal/calculator"
	"github.com/jmolina/divvy/internal/models"
)

func TestShort(t *testing.T) {
	t.Run("with debts", func(t *testing.T) {
		got := Short([]calculator.Payment{
			{From: "Bruno", To: "Ana", Amount: 30},
			{From: "Carla", To: "Ana", Amount: 12.5},
		})
		for _, line := range []string{"Bruno -> Ana: 30.00", "Carla -> Ana: 12.50"} {
			if !strings.Contains(got, line) {
				t.Errorf("summary missing %q:\n%s", line, got)
			}
		}
	})

	t.Run("settled", func(t *testing.T) {
		got := Short(nil)
		if !strings.Contains(got, "All settled") {
			t.Errorf("summary missing settled message:\n%s", got)
		}
	})
}

func TestDetailed(t *testing.T) {
	transactions := []models.Transaction{
		{ID: 1, Type: models.TypeExpense, Description: "Dinner", Amount: 40, Payer: "Ana"},
		{ID: 2, Type: models.TypeAdjustment, Description: "Refund", Amount: 10, Beneficiary: "Carla"},
		{ID: 3, Type: models.TypeTransfer, Amount: 5, From: "Bruno", To: "Ana"},
	}
	debts := []calculator.Payment{{From: "Bruno", To: "Ana", Amount: 15}}

	got, err := Detailed(transactions, debts)
	if err != nil {
		t.Fatalf("Detailed failed: %v", err)
	}
	for _, line := range []string{
		"Bruno pays Ana: 15.00",
		"Expense: Dinner (40.00) paid by Ana",
		"Adjustment: Refund (10.00) in favor of Carla",
		"Transfer: Bruno sent 5.00 to Ana",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("summary missing %q:\n%s", line, got)
		}
	}
}

func TestDetailed_UnknownType(t *testing.T) {
	_, err := Detailed([]models.Transaction{{ID: 9, Type: "loan"}}, nil)
	if err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}
