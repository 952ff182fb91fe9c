package models

// DivisionData is the live part of a division: the roster and its
// transactions. History entries archive exactly this shape.
type DivisionData struct {
	// People is the participant roster, in insertion order. Order matters:
	// settlement pairing walks participants in this order.
	People []string `json:"people"`

	// Transactions is the ordered event log.
	Transactions []Transaction `json:"transactions"`
}

// Clone returns a deep copy of the division data.
func (d DivisionData) Clone() DivisionData {
	out := DivisionData{
		Transactions: CloneTransactions(d.Transactions),
	}
	if d.People != nil {
		out.People = make([]string, len(d.People))
		copy(out.People, d.People)
	}
	return out
}

// HistoryEntry is an archived division. It is deep-copied on creation and
// never mutated afterwards; editing the live division leaves it untouched.
type HistoryEntry struct {
	// ID is the save timestamp in Unix milliseconds, unique per entry.
	ID int64 `json:"id"`

	// Date is the save time in RFC 3339 form.
	Date string `json:"date"`

	// Name is the label the user saved the division under.
	Name string `json:"name"`

	// Data is the frozen roster and transaction list.
	Data DivisionData `json:"data"`
}

// Clone returns a deep copy of the history entry.
func (h HistoryEntry) Clone() HistoryEntry {
	c := h
	c.Data = h.Data.Clone()
	return c
}

// Snapshot is the complete persisted and shareable state.
//
// Version follows a dotted numeric scheme ("1.1.0") compared segment-by
// -segment as integers, never as strings.
type Snapshot struct {
	Version      string         `json:"version"`
	People       []string       `json:"people"`
	Transactions []Transaction  `json:"transactions"`
	History      []HistoryEntry `json:"history"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version}
	if s.People != nil {
		out.People = make([]string, len(s.People))
		copy(out.People, s.People)
	}
	out.Transactions = CloneTransactions(s.Transactions)
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		for i, h := range s.History {
			out.History[i] = h.Clone()
		}
	}
	return out
}
