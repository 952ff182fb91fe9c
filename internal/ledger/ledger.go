// Package ledger owns the canonical in-memory state of a division: the
// participant roster, the ordered transaction log and the saved-division
// history.
//
// Every mutation validates before touching state, so a failed call leaves
// the ledger exactly as it was. The ledger is not safe for concurrent use;
// callers that share one across goroutines must serialize access themselves,
// because rename and removal cascades are multi-step and must never be
// observed half-applied.
package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/jmolina/divvy/internal/calculator"
	"github.com/jmolina/divvy/internal/migrate"
	"github.com/jmolina/divvy/internal/models"
)

var (
	ErrEmptyName      = errors.New("name must not be empty")
	ErrDuplicateName  = errors.New("this name already exists")
	ErrUnknownPerson  = errors.New("person is not a participant")
	ErrMissingFields  = errors.New("all required fields must be set")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrNoParticipants = errors.New("at least one participant is required")
	ErrSelfTransfer   = errors.New("a person cannot transfer to themselves")
)

// SplitType selects how an expense is divided among its participants.
type SplitType string

const (
	// SplitEqual divides the amount evenly.
	SplitEqual SplitType = "equal"

	// SplitCustom divides the amount proportionally to per-person weights.
	SplitCustom SplitType = "custom"
)

// ExpenseParams carries the user-supplied fields of an expense.
type ExpenseParams struct {
	Description  string
	Amount       float64
	Payer        string
	Participants []string
	SplitType    SplitType
	// Weights holds the custom split weights, keyed by participant name.
	// Only consulted when SplitType is SplitCustom.
	Weights map[string]float64
}

// AdjustmentParams carries the user-supplied fields of an adjustment.
type AdjustmentParams struct {
	Description  string
	Amount       float64
	Beneficiary  string
	Contributors []string
}

// TransferParams carries the user-supplied fields of a transfer.
type TransferParams struct {
	From        string
	To          string
	Amount      float64
	Description string
}

// Ledger is the mutable division state.
type Ledger struct {
	people       []string
	transactions []models.Transaction
	history      []models.HistoryEntry
	lastID       int64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// FromSnapshot builds a ledger from a decoded snapshot. The id counter is
// seeded past every existing id so fresh transactions stay unique.
func FromSnapshot(s models.Snapshot) *Ledger {
	s = s.Clone()
	l := &Ledger{
		people:       s.People,
		transactions: s.Transactions,
		history:      s.History,
	}
	for _, tx := range l.transactions {
		if tx.ID > l.lastID {
			l.lastID = tx.ID
		}
	}
	for _, h := range l.history {
		if h.ID > l.lastID {
			l.lastID = h.ID
		}
	}
	return l
}

// Snapshot renders the ledger as the current-version persisted shape.
func (l *Ledger) Snapshot() models.Snapshot {
	s := models.Snapshot{
		Version:      migrate.CurrentVersion,
		People:       l.people,
		Transactions: l.transactions,
		History:      l.history,
	}
	s = s.Clone()
	if s.People == nil {
		s.People = []string{}
	}
	if s.Transactions == nil {
		s.Transactions = []models.Transaction{}
	}
	if s.History == nil {
		s.History = []models.HistoryEntry{}
	}
	return s
}

// People returns the roster in insertion order.
func (l *Ledger) People() []string {
	out := make([]string, len(l.people))
	copy(out, l.people)
	return out
}

// Transactions returns the transaction log in recorded order.
func (l *Ledger) Transactions() []models.Transaction {
	return models.CloneTransactions(l.transactions)
}

// History returns the saved divisions, newest first.
func (l *Ledger) History() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(l.history))
	for i, h := range l.history {
		out[i] = h.Clone()
	}
	return out
}

// nextID issues a strictly increasing identifier. Ids are Unix milliseconds,
// bumped by one when two events land in the same millisecond.
func (l *Ledger) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

func (l *Ledger) isMember(name string) bool {
	for _, p := range l.people {
		if p == name {
			return true
		}
	}
	return false
}

// AddPerson appends a participant. The name is trimmed; empty and duplicate
// names are rejected.
func (l *Ledger) AddPerson(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if l.isMember(name) {
		return ErrDuplicateName
	}
	l.people = append(l.people, name)
	return nil
}

// RemovePerson removes a participant along with every transaction that
// references them in any role. Unknown names are a no-op.
func (l *Ledger) RemovePerson(name string) {
	kept := l.people[:0]
	for _, p := range l.people {
		if p != name {
			kept = append(kept, p)
		}
	}
	l.people = kept

	txs := l.transactions[:0]
	for _, tx := range l.transactions {
		if !tx.References(name) {
			txs = append(txs, tx)
		}
	}
	l.transactions = txs
}

// RenamePerson changes a participant's name and rewrites every reference in
// the transaction log, preserving transaction identity and order. Renaming
// to the same name is a no-op; an empty or colliding new name fails with the
// log untouched.
func (l *Ledger) RenamePerson(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	if newName == oldName {
		return nil
	}
	if l.isMember(newName) {
		return ErrDuplicateName
	}

	found := false
	for i, p := range l.people {
		if p == oldName {
			l.people[i] = newName
			found = true
			break
		}
	}
	if !found {
		return ErrUnknownPerson
	}

	for i := range l.transactions {
		tx := &l.transactions[i]
		switch tx.Type {
		case models.TypeExpense:
			if tx.Payer == oldName {
				tx.Payer = newName
			}
			for j := range tx.Shares {
				if tx.Shares[j].Person == oldName {
					tx.Shares[j].Person = newName
				}
			}
		case models.TypeAdjustment:
			if tx.Beneficiary == oldName {
				tx.Beneficiary = newName
			}
			for j, c := range tx.Contributors {
				if c == oldName {
					tx.Contributors[j] = newName
				}
			}
		case models.TypeTransfer:
			if tx.From == oldName {
				tx.From = newName
			}
			if tx.To == oldName {
				tx.To = newName
			}
		}
	}
	return nil
}

// buildExpense validates params and computes the shares. The returned
// transaction has no id; callers assign one or keep an existing one.
func (l *Ledger) buildExpense(p ExpenseParams) (models.Transaction, error) {
	if p.Description == "" || p.Payer == "" {
		return models.Transaction{}, ErrMissingFields
	}
	if p.Amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if len(p.Participants) == 0 {
		return models.Transaction{}, ErrNoParticipants
	}
	if !l.isMember(p.Payer) {
		return models.Transaction{}, ErrUnknownPerson
	}
	for _, name := range p.Participants {
		if !l.isMember(name) {
			return models.Transaction{}, ErrUnknownPerson
		}
	}

	var shares []models.Share
	if p.SplitType == SplitCustom {
		var err error
		shares, err = calculator.CustomShares(p.Amount, p.Participants, p.Weights)
		if err != nil {
			return models.Transaction{}, err
		}
	} else {
		shares = calculator.EqualShares(p.Amount, p.Participants)
	}

	return models.Transaction{
		Type:        models.TypeExpense,
		Description: p.Description,
		Amount:      p.Amount,
		Payer:       p.Payer,
		Shares:      shares,
	}, nil
}

// AddExpense records a new expense and returns it with its assigned id.
func (l *Ledger) AddExpense(p ExpenseParams) (models.Transaction, error) {
	tx, err := l.buildExpense(p)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.ID = l.nextID()
	l.transactions = append(l.transactions, tx)
	return tx.Clone(), nil
}

// UpdateExpense replaces the fields of an existing expense in place. An
// unknown id, or an id belonging to another variant, is a silent no-op;
// invalid params fail before anything changes.
func (l *Ledger) UpdateExpense(id int64, p ExpenseParams) error {
	tx, err := l.buildExpense(p)
	if err != nil {
		return err
	}
	l.replace(id, models.TypeExpense, tx)
	return nil
}

func (l *Ledger) buildAdjustment(p AdjustmentParams) (models.Transaction, error) {
	if p.Description == "" || p.Beneficiary == "" {
		return models.Transaction{}, ErrMissingFields
	}
	if p.Amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if len(p.Contributors) == 0 {
		return models.Transaction{}, ErrNoParticipants
	}
	if !l.isMember(p.Beneficiary) {
		return models.Transaction{}, ErrUnknownPerson
	}
	for _, name := range p.Contributors {
		if !l.isMember(name) {
			return models.Transaction{}, ErrUnknownPerson
		}
	}

	contributors := make([]string, len(p.Contributors))
	copy(contributors, p.Contributors)
	return models.Transaction{
		Type:         models.TypeAdjustment,
		Description:  p.Description,
		Amount:       p.Amount,
		Beneficiary:  p.Beneficiary,
		Contributors: contributors,
	}, nil
}

// AddAdjustment records a new adjustment. The beneficiary may appear among
// the contributors; confirming that oddity with the user is a UI concern.
func (l *Ledger) AddAdjustment(p AdjustmentParams) (models.Transaction, error) {
	tx, err := l.buildAdjustment(p)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.ID = l.nextID()
	l.transactions = append(l.transactions, tx)
	return tx.Clone(), nil
}

// UpdateAdjustment replaces the fields of an existing adjustment in place.
func (l *Ledger) UpdateAdjustment(id int64, p AdjustmentParams) error {
	tx, err := l.buildAdjustment(p)
	if err != nil {
		return err
	}
	l.replace(id, models.TypeAdjustment, tx)
	return nil
}

func (l *Ledger) buildTransfer(p TransferParams) (models.Transaction, error) {
	if p.From == "" || p.To == "" {
		return models.Transaction{}, ErrMissingFields
	}
	if p.Amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if p.From == p.To {
		return models.Transaction{}, ErrSelfTransfer
	}
	if !l.isMember(p.From) || !l.isMember(p.To) {
		return models.Transaction{}, ErrUnknownPerson
	}

	description := p.Description
	if description == "" {
		description = "Transfer"
	}
	return models.Transaction{
		Type:        models.TypeTransfer,
		Description: description,
		Amount:      p.Amount,
		From:        p.From,
		To:          p.To,
	}, nil
}

// AddTransfer records a direct payment between two distinct participants.
func (l *Ledger) AddTransfer(p TransferParams) (models.Transaction, error) {
	tx, err := l.buildTransfer(p)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.ID = l.nextID()
	l.transactions = append(l.transactions, tx)
	return tx.Clone(), nil
}

// UpdateTransfer replaces the fields of an existing transfer in place.
func (l *Ledger) UpdateTransfer(id int64, p TransferParams) error {
	tx, err := l.buildTransfer(p)
	if err != nil {
		return err
	}
	l.replace(id, models.TypeTransfer, tx)
	return nil
}

// replace swaps the fields of the transaction with the given id, keeping its
// id and position. Nothing happens when the id is unknown or the variant
// does not match.
func (l *Ledger) replace(id int64, typ models.TransactionType, tx models.Transaction) {
	for i := range l.transactions {
		if l.transactions[i].ID == id && l.transactions[i].Type == typ {
			tx.ID = id
			l.transactions[i] = tx
			return
		}
	}
}

// RemoveTransaction deletes the transaction with the given id. Unknown ids
// are a silent no-op.
func (l *Ledger) RemoveTransaction(id int64) {
	kept := l.transactions[:0]
	for _, tx := range l.transactions {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	l.transactions = kept
}

// Clear empties the current division (people and transactions) without
// touching the saved history.
func (l *Ledger) Clear() {
	l.people = nil
	l.transactions = nil
}

// Reset wipes everything, history included.
func (l *Ledger) Reset() {
	l.people = nil
	l.transactions = nil
	l.history = nil
}

// SaveHistory archives the current division under the given name and
// prepends it to the history. The archive is a deep copy: later edits to the
// live division never alter it.
func (l *Ledger) SaveHistory(name string) (models.HistoryEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.HistoryEntry{}, ErrEmptyName
	}
	if len(l.people) == 0 {
		return models.HistoryEntry{}, ErrNoParticipants
	}

	entry := models.HistoryEntry{
		ID:   l.nextID(),
		Date: time.Now().UTC().Format(time.RFC3339),
		Name: name,
		Data: models.DivisionData{
			People:       l.people,
			Transactions: l.transactions,
		},
	}
	entry.Data = entry.Data.Clone()
	if entry.Data.People == nil {
		entry.Data.People = []string{}
	}
	if entry.Data.Transactions == nil {
		entry.Data.Transactions = []models.Transaction{}
	}

	l.history = append([]models.HistoryEntry{entry}, l.history...)
	return entry.Clone(), nil
}

// LoadHistory replaces the live division with a deep copy of the named
// archive. It reports whether the id was found; unknown ids change nothing.
func (l *Ledger) LoadHistory(id int64) bool {
	for _, h := range l.history {
		if h.ID == id {
			data := h.Data.Clone()
			l.people = data.People
			l.transactions = data.Transactions
			return true
		}
	}
	return false
}

// RemoveHistory deletes a history entry. Unknown ids are a silent no-op.
func (l *Ledger) RemoveHistory(id int64) {
	kept := l.history[:0]
	for _, h := range l.history {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	l.history = kept
}
