package calculator

// Payment is one settling transfer: From pays To the given amount.
type Payment struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Settle reduces balances to a short sequence of payments that zeroes every
// position.
//
// Participants are partitioned into debtors and creditors in roster order,
// then matched greedily: the first debtor pays the first creditor the
// smaller of their two remainders, and whichever side drops below Epsilon is
// popped. The pairing therefore depends on roster insertion order, not
// amount magnitude; given the same roster the output is deterministic.
// Callers should rely on the payments reproducing the balances, not on any
// particular pairing.
func Settle(people []string, balances map[string]float64) []Payment {
	type position struct {
		person string
		amount float64
	}

	var debtors, creditors []position
	for _, p := range people {
		switch b := balances[p]; {
		case b < -Epsilon:
			debtors = append(debtors, position{person: p, amount: -b})
		case b > Epsilon:
			creditors = append(creditors, position{person: p, amount: b})
		}
	}

	var payments []Payment
	for len(debtors) > 0 && len(creditors) > 0 {
		debtor, creditor := &debtors[0], &creditors[0]

		amount := debtor.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}
		payments = append(payments, Payment{From: debtor.person, To: creditor.person, Amount: amount})

		debtor.amount -= amount
		creditor.amount -= amount
		if debtor.amount < Epsilon {
			debtors = debtors[1:]
		}
		if creditor.amount < Epsilon {
			creditors = creditors[1:]
		}
	}

	return payments
}
