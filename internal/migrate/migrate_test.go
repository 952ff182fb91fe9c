package migrate

import (
	"reflect"
	"testing"

	"github.com/jmolina/divvy/internal/models"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int // sign only
	}{
		{"1.0.0", "1.1.0", -1},
		{"1.1.0", "1.1.0", 0},
		{"1.2.0", "1.10.0", -1}, // numeric, not lexicographic
		{"1.10.0", "1.2.0", 1},
		{"2.0", "1.9.9", 1},
		{"1.1", "1.1.0", 0}, // missing segments are zero
		{"0.9", "1.0.0", -1},
	}

	for _, tt := range tests {
		got := Compare(tt.a, tt.b)
		switch {
		case tt.want < 0 && got >= 0,
			tt.want == 0 && got != 0,
			tt.want > 0 && got <= 0:
			t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		snapshot     models.Snapshot
		validateFunc func(t *testing.T, got models.Snapshot)
	}{
		{
			name:     "unversioned data passes through unchanged",
			snapshot: models.Snapshot{People: []string{"A"}},
			validateFunc: func(t *testing.T, got models.Snapshot) {
				if got.Version != "" {
					t.Errorf("version = %q, want empty", got.Version)
				}
				if got.History != nil {
					t.Errorf("history defaulted on unversioned data: %v", got.History)
				}
			},
		},
		{
			name:     "1.0.0 gains an empty history and the current version",
			snapshot: models.Snapshot{Version: "1.0.0", People: []string{"A", "B"}},
			validateFunc: func(t *testing.T, got models.Snapshot) {
				if got.Version != CurrentVersion {
					t.Errorf("version = %q, want %q", got.Version, CurrentVersion)
				}
				if got.History == nil {
					t.Error("history not defaulted")
				}
				if len(got.History) != 0 {
					t.Errorf("history = %v, want empty", got.History)
				}
			},
		},
		{
			name: "existing history is kept",
			snapshot: models.Snapshot{
				Version: "1.0.0",
				History: []models.HistoryEntry{{ID: 7, Name: "trip"}},
			},
			validateFunc: func(t *testing.T, got models.Snapshot) {
				if len(got.History) != 1 || got.History[0].Name != "trip" {
					t.Errorf("history = %v, want the original entry", got.History)
				}
			},
		},
		{
			name:     "current version is untouched",
			snapshot: models.Snapshot{Version: CurrentVersion, People: []string{"A"}},
			validateFunc: func(t *testing.T, got models.Snapshot) {
				if got.History != nil {
					t.Errorf("history defaulted on current-version data: %v", got.History)
				}
			},
		},
		{
			name:     "newer version passes through unchanged",
			snapshot: models.Snapshot{Version: "9.0.0", People: []string{"A"}},
			validateFunc: func(t *testing.T, got models.Snapshot) {
				if got.Version != "9.0.0" {
					t.Errorf("version = %q, want 9.0.0", got.Version)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Run(tt.snapshot)
			tt.validateFunc(t, got)
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	in := models.Snapshot{
		Version:      "1.0.0",
		People:       []string{"A", "B"},
		Transactions: []models.Transaction{{ID: 1, Type: models.TypeTransfer, Amount: 5, From: "A", To: "B"}},
	}

	once := Run(in)
	twice := Run(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Run is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
