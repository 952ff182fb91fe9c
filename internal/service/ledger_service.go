// Package service exposes the ledger engine over JSON HTTP and owns the
// load/migrate/save pipeline around it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/jmolina/divvy/internal/calculator"
	"github.com/jmolina/divvy/internal/codec"
	"github.com/jmolina/divvy/internal/ledger"
	"github.com/jmolina/divvy/internal/middleware"
	"github.com/jmolina/divvy/internal/migrate"
	"github.com/jmolina/divvy/internal/models"
	"github.com/jmolina/divvy/internal/storage"
	"github.com/jmolina/divvy/internal/summary"
)

// LedgerService serves one ledger per authenticated user, persisted in the
// store under the user's snapshot key.
//
// Mutations serialize through a single mutex: rename and removal cascades
// are multi-step, and a reader must never compute balances against a
// half-updated log.
type LedgerService struct {
	mu    sync.Mutex
	store storage.Store
}

// NewLedgerService creates a LedgerService with the given storage backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

func snapshotKey(userID string) string {
	return "snapshot:" + userID
}

// load builds the user's ledger from the stored snapshot. A corrupt stored
// snapshot is discarded (the empty state replaces it); an older one is
// migrated and re-saved immediately.
func (s *LedgerService) load(ctx context.Context, userID string) (*ledger.Ledger, error) {
	raw, ok, err := s.store.GetSnapshot(ctx, snapshotKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		return ledger.New(), nil
	}

	snap, err := codec.Unmarshal(raw)
	if err != nil {
		slog.Warn("discarding corrupt stored snapshot", "user_id", userID, "error", err)
		if derr := s.store.DeleteSnapshot(ctx, snapshotKey(userID)); derr != nil {
			return nil, fmt.Errorf("failed to discard corrupt snapshot: %w", derr)
		}
		return ledger.New(), nil
	}

	if migrate.Compare(snap.Version, migrate.CurrentVersion) < 0 {
		snap = migrate.Run(snap)
		l := ledger.FromSnapshot(snap)
		if err := s.save(ctx, userID, l); err != nil {
			return nil, err
		}
		slog.Info("snapshot migrated", "user_id", userID, "version", snap.Version)
		return l, nil
	}

	return ledger.FromSnapshot(snap), nil
}

func (s *LedgerService) save(ctx context.Context, userID string, l *ledger.Ledger) error {
	raw, err := codec.Marshal(l.Snapshot())
	if err != nil {
		return err
	}
	if err := s.store.SetSnapshot(ctx, snapshotKey(userID), raw); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// mutate runs fn against the user's ledger and persists the result when fn
// succeeds. A failed fn leaves the stored snapshot untouched.
func (s *LedgerService) mutate(ctx context.Context, userID string, fn func(*ledger.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.save(ctx, userID, l)
}

// view runs fn against a fresh read of the user's ledger. Derived views are
// recomputed per call, never cached.
func (s *LedgerService) view(ctx context.Context, userID string, fn func(*ledger.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	return fn(l)
}

// Import replaces the user's state with a decoded share blob. Corrupt blobs
// are rejected with codec.ErrCorrupt and change nothing.
func (s *LedgerService) Import(ctx context.Context, userID, blob string) error {
	snap, err := codec.DecodeBlob(blob)
	if err != nil {
		return err
	}
	snap = migrate.Run(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, userID, ledger.FromSnapshot(snap))
}

// Routes registers the ledger endpoints on mux. Callers wrap the mux with
// the auth middleware; every handler here assumes an authenticated context.
func (s *LedgerService) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ledger", s.handleGetLedger)
	mux.HandleFunc("POST /api/v1/ledger/import", s.handleImport)
	mux.HandleFunc("GET /api/v1/ledger/share", s.handleShare)
	mux.HandleFunc("POST /api/v1/ledger/clear", s.handleClear)
	mux.HandleFunc("POST /api/v1/ledger/reset", s.handleReset)

	mux.HandleFunc("POST /api/v1/people", s.handleAddPerson)
	mux.HandleFunc("POST /api/v1/people/rename", s.handleRenamePerson)
	mux.HandleFunc("DELETE /api/v1/people/{name}", s.handleRemovePerson)

	mux.HandleFunc("POST /api/v1/transactions/expense", s.handleAddExpense)
	mux.HandleFunc("PUT /api/v1/transactions/expense/{id}", s.handleUpdateExpense)
	mux.HandleFunc("POST /api/v1/transactions/adjustment", s.handleAddAdjustment)
	mux.HandleFunc("PUT /api/v1/transactions/adjustment/{id}", s.handleUpdateAdjustment)
	mux.HandleFunc("POST /api/v1/transactions/transfer", s.handleAddTransfer)
	mux.HandleFunc("PUT /api/v1/transactions/transfer/{id}", s.handleUpdateTransfer)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.handleRemoveTransaction)

	mux.HandleFunc("GET /api/v1/balances", s.handleBalances)
	mux.HandleFunc("GET /api/v1/settlements", s.handleSettlements)
	mux.HandleFunc("GET /api/v1/totals", s.handleTotals)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)

	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("POST /api/v1/history", s.handleSaveHistory)
	mux.HandleFunc("POST /api/v1/history/{id}/load", s.handleLoadHistory)
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.handleRemoveHistory)
}

func (s *LedgerService) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var snap models.Snapshot
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		snap = l.Snapshot()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *LedgerService) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blob string `json:"blob"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := s.Import(r.Context(), userID, req.Blob); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("snapshot imported from share blob", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *LedgerService) handleShare(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var blob string
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		blob, err = codec.EncodeBlob(l.Snapshot())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"blob": blob})
}

func (s *LedgerService) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.Clear()
		return nil
	})
}

func (s *LedgerService) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.Reset()
		return nil
	})
}

func (s *LedgerService) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		return l.AddPerson(req.Name)
	})
}

func (s *LedgerService) handleRenamePerson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		return l.RenamePerson(req.OldName, req.NewName)
	})
}

func (s *LedgerService) handleRemovePerson(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.RemovePerson(name)
		return nil
	})
}

// expenseRequest is the wire form of ExpenseParams.
type expenseRequest struct {
	Description  string             `json:"description"`
	Amount       float64            `json:"amount"`
	Payer        string             `json:"payer"`
	Participants []string           `json:"participants"`
	SplitType    string             `json:"split_type"`
	Weights      map[string]float64 `json:"weights"`
}

func (req expenseRequest) params() ledger.ExpenseParams {
	split := ledger.SplitEqual
	if req.SplitType == string(ledger.SplitCustom) {
		split = ledger.SplitCustom
	}
	return ledger.ExpenseParams{
		Description:  req.Description,
		Amount:       req.Amount,
		Payer:        req.Payer,
		Participants: req.Participants,
		SplitType:    split,
		Weights:      req.Weights,
	}
}

func (s *LedgerService) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	var tx models.Transaction
	err := s.mutate(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		tx, err = l.AddExpense(req.params())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *LedgerService) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		return l.UpdateExpense(id, req.params())
	})
}

type adjustmentRequest struct {
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Beneficiary  string   `json:"beneficiary"`
	Contributors []string `json:"contributors"`
}

func (req adjustmentRequest) params() ledger.AdjustmentParams {
	return ledger.AdjustmentParams{
		Description:  req.Description,
		Amount:       req.Amount,
		Beneficiary:  req.Beneficiary,
		Contributors: req.Contributors,
	}
}

func (s *LedgerService) handleAddAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	var tx models.Transaction
	err := s.mutate(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		tx, err = l.AddAdjustment(req.params())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *LedgerService) handleUpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		return l.UpdateAdjustment(id, req.params())
	})
}

type transferRequest struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (req transferRequest) params() ledger.TransferParams {
	return ledger.TransferParams{
		From:        req.From,
		To:          req.To,
		Amount:      req.Amount,
		Description: req.Description,
	}
}

func (s *LedgerService) handleAddTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	var tx models.Transaction
	err := s.mutate(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		tx, err = l.AddTransfer(req.params())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *LedgerService) handleUpdateTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		return l.UpdateTransfer(id, req.params())
	})
}

func (s *LedgerService) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.RemoveTransaction(id)
		return nil
	})
}

func (s *LedgerService) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var balances map[string]float64
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		balances, err = calculator.Balances(l.People(), l.Transactions())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (s *LedgerService) handleSettlements(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var payments []calculator.Payment
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		balances, err := calculator.Balances(l.People(), l.Transactions())
		if err != nil {
			return err
		}
		payments = calculator.Settle(l.People(), balances)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if payments == nil {
		payments = []calculator.Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": payments})
}

func (s *LedgerService) handleTotals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var totals calculator.MemberTotals
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		totals, err = calculator.Totals(l.People(), l.Transactions())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_paid_net": totals.PaidNet,
		"total_share":    totals.Share,
	})
}

func (s *LedgerService) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	detailed := r.URL.Query().Get("detail") == "full"

	var text string
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		balances, err := calculator.Balances(l.People(), l.Transactions())
		if err != nil {
			return err
		}
		debts := calculator.Settle(l.People(), balances)
		if detailed {
			text, err = summary.Detailed(l.Transactions(), debts)
			return err
		}
		text = summary.Short(debts)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": text})
}

func (s *LedgerService) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var entries []models.HistoryEntry
	err := s.view(r.Context(), userID, func(l *ledger.Ledger) error {
		entries = l.History()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *LedgerService) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	var entry models.HistoryEntry
	err := s.mutate(r.Context(), userID, func(l *ledger.Ledger) error {
		var err error
		entry, err = l.SaveHistory(req.Name)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *LedgerService) handleLoadHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.LoadHistory(id)
		return nil
	})
}

func (s *LedgerService) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mutation(w, r, func(l *ledger.Ledger) error {
		l.RemoveHistory(id)
		return nil
	})
}

// mutation runs fn through mutate and writes the standard no-body response.
func (s *LedgerService) mutation(w http.ResponseWriter, r *http.Request, fn func(*ledger.Ledger) error) {
	userID := middleware.GetUserID(r.Context())
	if err := s.mutate(r.Context(), userID, fn); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// validationErrs are caller mistakes surfaced as 400s; anything else is a 500.
var validationErrs = []error{
	ledger.ErrEmptyName,
	ledger.ErrDuplicateName,
	ledger.ErrUnknownPerson,
	ledger.ErrMissingFields,
	ledger.ErrInvalidAmount,
	ledger.ErrNoParticipants,
	ledger.ErrSelfTransfer,
	calculator.ErrInvalidSplit,
	codec.ErrCorrupt,
}

func writeError(w http.ResponseWriter, err error) {
	for _, verr := range validationErrs {
		if errors.Is(err, verr) {
			writeBadRequest(w, err.Error())
			return
		}
	}
	slog.Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
