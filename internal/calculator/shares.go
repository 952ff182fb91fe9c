// Package calculator derives balances, totals and settlements from a
// division's transaction log. Everything here is a pure function of its
// inputs; the ledger calls in after each mutation rather than caching.
package calculator

import (
	"errors"

	"github.com/jmolina/divvy/internal/models"
)

// Epsilon is the tolerance used wherever a balance is compared against zero.
// Shares come from floating-point division, so exact cancellation never holds.
const Epsilon = 0.01

// ErrInvalidSplit is returned when custom split weights sum to zero or less.
var ErrInvalidSplit = errors.New("custom split weights must sum to more than zero")

// EqualShares splits amount evenly across participants.
//
// Each person owes amount/n. No remainder redistribution is attempted; the
// sub-cent drift this leaves is covered by Epsilon everywhere balances are
// compared.
func EqualShares(amount float64, participants []string) []models.Share {
	shares := make([]models.Share, len(participants))
	per := amount / float64(len(participants))
	for i, p := range participants {
		shares[i] = models.Share{Person: p, Amount: per}
	}
	return shares
}

// CustomShares splits amount across participants proportionally to their
// weights. A participant missing from weights counts as weight zero.
func CustomShares(amount float64, participants []string, weights map[string]float64) ([]models.Share, error) {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, ErrInvalidSplit
	}
	shares := make([]models.Share, len(participants))
	for i, p := range participants {
		shares[i] = models.Share{Person: p, Amount: weights[p] / total * amount}
	}
	return shares, nil
}
