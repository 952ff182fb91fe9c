// Package summary renders plain-text reports of a division, suitable for
// pasting into a chat. The engine produces the bytes; sharing them is the
// caller's problem.
package summary

import (
	"fmt"
	"strings"

	"github.com/jmolina/divvy/internal/calculator"
	"github.com/jmolina/divvy/internal/models"
)

// Short renders the debts-only summary.
func Short(debts []calculator.Payment) string {
	var b strings.Builder
	b.WriteString("Debt summary\n")
	b.WriteString("------------------------\n\n")
	if len(debts) == 0 {
		b.WriteString("All settled! No outstanding debts.\n")
		return b.String()
	}
	b.WriteString("To settle up:\n")
	for _, d := range debts {
		fmt.Fprintf(&b, "- %s -> %s: %.2f\n", d.From, d.To, d.Amount)
	}
	return b.String()
}

// Detailed renders the debts plus the full transaction history. It fails on
// a transaction with an unknown type tag rather than skipping it.
func Detailed(transactions []models.Transaction, debts []calculator.Payment) (string, error) {
	var b strings.Builder
	b.WriteString("Detailed expense summary\n")
	b.WriteString("========================\n\n")

	b.WriteString("WHO PAYS WHOM\n")
	if len(debts) == 0 {
		b.WriteString("- Everyone is settled up. No debts.\n")
	} else {
		for _, d := range debts {
			fmt.Fprintf(&b, "- %s pays %s: %.2f\n", d.From, d.To, d.Amount)
		}
	}

	b.WriteString("\nFULL HISTORY\n")
	for _, tx := range transactions {
		switch tx.Type {
		case models.TypeExpense:
			fmt.Fprintf(&b, "- Expense: %s (%.2f) paid by %s\n", tx.Description, tx.Amount, tx.Payer)
		case models.TypeAdjustment:
			fmt.Fprintf(&b, "- Adjustment: %s (%.2f) in favor of %s\n", tx.Description, tx.Amount, tx.Beneficiary)
		case models.TypeTransfer:
			fmt.Fprintf(&b, "- Transfer: %s sent %.2f to %s\n", tx.From, tx.Amount, tx.To)
		default:
			return "", fmt.Errorf("unknown transaction type %q (id %d)", tx.Type, tx.ID)
		}
	}

	return b.String(), nil
}
