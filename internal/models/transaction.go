package models

// TransactionType discriminates the transaction variants.
type TransactionType string

const (
	// TypeExpense is an amount paid by one person and owed back in shares.
	TypeExpense TransactionType = "expense"

	// TypeAdjustment is an amount credited to a beneficiary and funded
	// equally by a set of contributors.
	TypeAdjustment TransactionType = "adjustment"

	// TypeTransfer is a direct payment from one person to another.
	TypeTransfer TransactionType = "transfer"
)

// Share is one participant's slice of an expense, computed at creation time.
type Share struct {
	// Person is the participant name this share belongs to.
	Person string `json:"person"`

	// Amount is what this person owes of the expense total.
	Amount float64 `json:"amount"`
}

// Transaction represents one recorded monetary event.
//
// It is a tagged union: Type selects the variant, and only that variant's
// fields are meaningful. ID doubles as a stable sort key and as the address
// for edit/delete, so it is strictly increasing in creation order.
type Transaction struct {
	// ID is the unique, monotonically-issued identifier (Unix milliseconds,
	// bumped when two transactions land in the same millisecond).
	ID int64 `json:"id"`

	// Type is the variant tag: expense, adjustment or transfer.
	Type TransactionType `json:"type"`

	// Description is the human-readable label for the event.
	Description string `json:"description,omitempty"`

	// Amount is the positive total of the event.
	Amount float64 `json:"amount"`

	// Payer is the person who paid (expense only).
	Payer string `json:"payer,omitempty"`

	// Shares is the per-person breakdown of the expense (expense only).
	Shares []Share `json:"shares,omitempty"`

	// Beneficiary is the person credited (adjustment only).
	Beneficiary string `json:"beneficiary,omitempty"`

	// Contributors fund the adjustment equally (adjustment only). The
	// beneficiary may appear here too.
	Contributors []string `json:"contributors,omitempty"`

	// From is the sender (transfer only).
	From string `json:"from,omitempty"`

	// To is the receiver (transfer only). Always distinct from From.
	To string `json:"to,omitempty"`
}

// References reports whether the transaction mentions name in any role.
func (t Transaction) References(name string) bool {
	switch t.Type {
	case TypeExpense:
		if t.Payer == name {
			return true
		}
		for _, s := range t.Shares {
			if s.Person == name {
				return true
			}
		}
	case TypeAdjustment:
		if t.Beneficiary == name {
			return true
		}
		for _, c := range t.Contributors {
			if c == name {
				return true
			}
		}
	case TypeTransfer:
		if t.From == name || t.To == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Shares != nil {
		c.Shares = make([]Share, len(t.Shares))
		copy(c.Shares, t.Shares)
	}
	if t.Contributors != nil {
		c.Contributors = make([]string, len(t.Contributors))
		copy(c.Contributors, t.Contributors)
	}
	return c
}

// CloneTransactions deep-copies a transaction list.
func CloneTransactions(txs []Transaction) []Transaction {
	if txs == nil {
		return nil
	}
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}
