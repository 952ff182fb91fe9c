package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jmolina/divvy/internal/auth"
	"github.com/jmolina/divvy/internal/calculator"
	"github.com/jmolina/divvy/internal/codec"
	"github.com/jmolina/divvy/internal/middleware"
	"github.com/jmolina/divvy/internal/migrate"
	"github.com/jmolina/divvy/internal/models"
	"github.com/jmolina/divvy/internal/storage/sqlite"
)

// testAuth injects a fixed identity, standing in for the JWT middleware.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), "test-user", "test@example.com")))
	})
}

// setupTestServer creates a ledger API server over a temp sqlite database.
func setupTestServer(t *testing.T) (*httptest.Server, *sqlite.SQLiteStore, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	mux := http.NewServeMux()
	NewLedgerService(store).Routes(mux)
	server := httptest.NewServer(testAuth(mux))

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return server, store, cleanup
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func addPerson(t *testing.T, baseURL, name string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/people", map[string]string{"name": name})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add person %q: status %d", name, resp.StatusCode)
	}
}

func TestExpenseFlow(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	for _, name := range []string{"A", "B", "C"} {
		addPerson(t, server.URL, name)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transactions/expense", map[string]any{
		"description":  "Dinner",
		"amount":       90,
		"payer":        "A",
		"participants": []string{"A", "B", "C"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add expense: status %d", resp.StatusCode)
	}
	tx := decodeBody[models.Transaction](t, resp)
	if tx.ID == 0 || tx.Type != models.TypeExpense {
		t.Fatalf("created transaction = %+v", tx)
	}

	// Balances: A +60, B -30, C -30.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/balances", nil)
	balances := decodeBody[struct {
		Balances map[string]float64 `json:"balances"`
	}](t, resp)
	want := map[string]float64{"A": 60, "B": -30, "C": -30}
	for person, amount := range want {
		if math.Abs(balances.Balances[person]-amount) > calculator.Epsilon {
			t.Errorf("%s balance = %v, want %v", person, balances.Balances[person], amount)
		}
	}

	// Settlement pairs B then C against A, in roster order.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/settlements", nil)
	settlements := decodeBody[struct {
		Settlements []calculator.Payment `json:"settlements"`
	}](t, resp)
	if len(settlements.Settlements) != 2 {
		t.Fatalf("settlements = %+v, want 2 payments", settlements.Settlements)
	}
	first := settlements.Settlements[0]
	if first.From != "B" || first.To != "A" || math.Abs(first.Amount-30) > calculator.Epsilon {
		t.Errorf("first settlement = %+v, want B pays A 30", first)
	}
}

func TestValidationErrors(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	addPerson(t, server.URL, "A")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{
			"self transfer", http.MethodPost, "/api/v1/transactions/transfer",
			map[string]any{"from": "A", "to": "A", "amount": 5},
		},
		{
			"duplicate person", http.MethodPost, "/api/v1/people",
			map[string]string{"name": "A"},
		},
		{
			"zero amount expense", http.MethodPost, "/api/v1/transactions/expense",
			map[string]any{"description": "x", "amount": 0, "payer": "A", "participants": []string{"A"}},
		},
		{
			"corrupt import", http.MethodPost, "/api/v1/ledger/import",
			map[string]string{"blob": "!!! not base64 !!!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, server.URL+tt.path, tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	// Failed mutations must leave the stored state untouched.
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	snap := decodeBody[models.Snapshot](t, resp)
	if len(snap.People) != 1 || len(snap.Transactions) != 0 {
		t.Errorf("state changed by failed mutations: %+v", snap)
	}
}

func TestShareImportRoundTrip(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	addPerson(t, server.URL, "Ana")
	addPerson(t, server.URL, "Bruno")
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transactions/transfer", map[string]any{
		"from": "Ana", "to": "Bruno", "amount": 12.5,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger/share", nil)
	share := decodeBody[struct {
		Blob string `json:"blob"`
	}](t, resp)

	// Wipe, then import the blob back.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/ledger/reset", nil)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/ledger/import", map[string]string{"blob": share.Blob})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("import: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	snap := decodeBody[models.Snapshot](t, resp)
	if len(snap.People) != 2 || len(snap.Transactions) != 1 {
		t.Fatalf("imported snapshot = %+v", snap)
	}
	if snap.Transactions[0].Type != models.TypeTransfer || snap.Transactions[0].Amount != 12.5 {
		t.Errorf("imported transaction = %+v", snap.Transactions[0])
	}
}

func TestLoad_CorruptStoredSnapshot(t *testing.T) {
	server, store, cleanup := setupTestServer(t)
	defer cleanup()

	ctx := t.Context()
	if err := store.SetSnapshot(ctx, "snapshot:test-user", "{ this is not json"); err != nil {
		t.Fatalf("SetSnapshot failed: %v", err)
	}

	// Corrupt stored data falls back to the empty state and is discarded.
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	snap := decodeBody[models.Snapshot](t, resp)
	if len(snap.People) != 0 {
		t.Errorf("snapshot = %+v, want empty state", snap)
	}

	if _, ok, err := store.GetSnapshot(ctx, "snapshot:test-user"); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	} else if ok {
		t.Error("corrupt snapshot was not discarded")
	}
}

func TestLoad_MigratesOldSnapshot(t *testing.T) {
	server, store, cleanup := setupTestServer(t)
	defer cleanup()

	old, err := codec.Marshal(models.Snapshot{
		Version: "1.0.0",
		People:  []string{"Ana"},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// Snapshots written before 1.1.0 had no history field at all.
	if err := store.SetSnapshot(t.Context(), "snapshot:test-user", old); err != nil {
		t.Fatalf("SetSnapshot failed: %v", err)
	}

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	snap := decodeBody[models.Snapshot](t, resp)
	if snap.Version != migrate.CurrentVersion {
		t.Errorf("version = %q, want %q", snap.Version, migrate.CurrentVersion)
	}
	if snap.History == nil {
		t.Error("history not defaulted by migration")
	}
	if len(snap.People) != 1 || snap.People[0] != "Ana" {
		t.Errorf("people = %v, want [Ana]", snap.People)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	addPerson(t, server.URL, "Ana")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/history", map[string]string{"name": "trip"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save history: status %d", resp.StatusCode)
	}
	entry := decodeBody[models.HistoryEntry](t, resp)
	if entry.Name != "trip" || entry.ID == 0 {
		t.Fatalf("entry = %+v", entry)
	}

	// Clear the live division, then restore it from history.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/ledger/clear", nil)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/history/%d/load", server.URL, entry.ID), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("load history: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	snap := decodeBody[models.Snapshot](t, resp)
	if len(snap.People) != 1 || snap.People[0] != "Ana" {
		t.Errorf("people after restore = %v, want [Ana]", snap.People)
	}
	if len(snap.History) != 1 {
		t.Errorf("history = %+v, want the saved entry", snap.History)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/history/%d", server.URL, entry.ID), nil)
	resp.Body.Close()
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/history", nil)
	history := decodeBody[struct {
		History []models.HistoryEntry `json:"history"`
	}](t, resp)
	if len(history.History) != 0 {
		t.Errorf("history after delete = %+v, want empty", history.History)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	addPerson(t, server.URL, "Ana")
	addPerson(t, server.URL, "Bruno")
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/transactions/expense", map[string]any{
		"description": "Dinner", "amount": 40, "payer": "Ana", "participants": []string{"Ana", "Bruno"},
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/summary", nil)
	short := decodeBody[struct {
		Summary string `json:"summary"`
	}](t, resp)
	if !bytes.Contains([]byte(short.Summary), []byte("Bruno -> Ana: 20.00")) {
		t.Errorf("short summary missing debt line:\n%s", short.Summary)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/summary?detail=full", nil)
	full := decodeBody[struct {
		Summary string `json:"summary"`
	}](t, resp)
	if !bytes.Contains([]byte(full.Summary), []byte("Expense: Dinner (40.00) paid by Ana")) {
		t.Errorf("detailed summary missing history line:\n%s", full.Summary)
	}
}

func TestAuthEndpoints(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager).Routes(mux)

	api := http.NewServeMux()
	NewLedgerService(store).Routes(api)
	mux.Handle("/api/v1/", middleware.RequireAuth(jwtManager)(api))

	server := httptest.NewServer(mux)
	defer server.Close()

	// Unauthenticated requests are rejected.
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/ledger", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	// Register, then use the token.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", map[string]string{
		"email": "ana@example.com", "name": "Ana", "password": "long enough",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	reg := decodeBody[struct {
		Token string `json:"token"`
	}](t, resp)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/ledger", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed request failed: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("authed status = %d, want 200", authed.StatusCode)
	}

	// Wrong password is rejected.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
}
