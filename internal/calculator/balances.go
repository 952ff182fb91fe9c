package calculator

import (
	"fmt"

	"github.com/jmolina/divvy/internal/models"
)

// MemberTotals is the per-person payment summary shown alongside balances.
type MemberTotals struct {
	// PaidNet is what the person put in out of pocket: expense totals they
	// paid, plus transfers sent, minus transfers received.
	PaidNet map[string]float64

	// Share is the person's consumed portion: the sum of their expense shares.
	Share map[string]float64
}

// Balances folds the transaction log into each participant's net position.
// Positive means the person is owed money, negative means they owe.
//
// Every current participant starts at zero, so people with no transactions
// still appear in the result. The fold is order-independent; list order is
// kept only because transactions are processed as recorded.
func Balances(people []string, transactions []models.Transaction) (map[string]float64, error) {
	balances := make(map[string]float64, len(people))
	for _, p := range people {
		balances[p] = 0
	}

	for _, tx := range transactions {
		switch tx.Type {
		case models.TypeExpense:
			balances[tx.Payer] += tx.Amount
			for _, share := range tx.Shares {
				balances[share.Person] -= share.Amount
			}
		case models.TypeAdjustment:
			balances[tx.Beneficiary] += tx.Amount
			costPer := tx.Amount / float64(len(tx.Contributors))
			for _, c := range tx.Contributors {
				balances[c] -= costPer
			}
		case models.TypeTransfer:
			balances[tx.From] -= tx.Amount
			balances[tx.To] += tx.Amount
		default:
			return nil, fmt.Errorf("unknown transaction type %q (id %d)", tx.Type, tx.ID)
		}
	}

	return balances, nil
}

// Totals computes the per-person paid/consumed summary.
//
// Adjustments move balances but represent corrections rather than spending,
// so they count toward neither total.
func Totals(people []string, transactions []models.Transaction) (MemberTotals, error) {
	totals := MemberTotals{
		PaidNet: make(map[string]float64, len(people)),
		Share:   make(map[string]float64, len(people)),
	}
	for _, p := range people {
		totals.PaidNet[p] = 0
		totals.Share[p] = 0
	}

	for _, tx := range transactions {
		switch tx.Type {
		case models.TypeExpense:
			totals.PaidNet[tx.Payer] += tx.Amount
			for _, share := range tx.Shares {
				totals.Share[share.Person] += share.Amount
			}
		case models.TypeAdjustment:
			// excluded on purpose
		case models.TypeTransfer:
			totals.PaidNet[tx.From] += tx.Amount
			totals.PaidNet[tx.To] -= tx.Amount
		default:
			return MemberTotals{}, fmt.Errorf("unknown transaction type %q (id %d)", tx.Type, tx.ID)
		}
	}

	return totals, nil
}
