// Package codec serializes snapshots for storage and for share links.
//
// Both forms carry the same JSON document; the share form wraps it in base64
// so it survives inside a URL fragment. Decoding distinguishes "corrupt" from
// "absent": callers fall back to the next data source on ErrCorrupt.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmolina/divvy/internal/models"
)

// ErrCorrupt marks snapshot data that is present but unusable: malformed
// base64, malformed JSON, or a document without the required fields.
var ErrCorrupt = errors.New("corrupt snapshot data")

// Marshal renders a snapshot as its JSON document.
func Marshal(s models.Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(raw), nil
}

// Unmarshal parses a stored JSON snapshot. A document without a version is
// foreign data and reported as corrupt; missing people/transactions/history
// arrays default to empty, as old clients omitted them.
func Unmarshal(raw string) (models.Snapshot, error) {
	var s models.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Version == "" {
		return models.Snapshot{}, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if s.People == nil {
		s.People = []string{}
	}
	if s.Transactions == nil {
		s.Transactions = []models.Transaction{}
	}
	if s.History == nil {
		s.History = []models.HistoryEntry{}
	}
	return s, nil
}

// EncodeBlob renders a snapshot as the base64 text used in share links.
func EncodeBlob(s models.Snapshot) (string, error) {
	raw, err := Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// DecodeBlob parses a share-link blob. On top of the stored-snapshot checks
// it requires the people array to be present, matching what the web client
// validated before trusting a link.
func DecodeBlob(blob string) (models.Snapshot, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var probe struct {
		Version string          `json:"version"`
		People  json.RawMessage `json:"people"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if probe.Version == "" {
		return models.Snapshot{}, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if len(probe.People) == 0 || probe.People[0] != '[' {
		return models.Snapshot{}, fmt.Errorf("%w: people is not an array", ErrCorrupt)
	}

	return Unmarshal(string(raw))
}
