// Package migrate upgrades persisted snapshots across schema versions.
//
// Versions are dotted numerics ("1.1.0") compared segment-by-segment as
// integers. String comparison would order "1.10.0" before "1.2.0", so it is
// never used here.
package migrate

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jmolina/divvy/internal/models"
)

// CurrentVersion is the snapshot schema version this build writes.
const CurrentVersion = "1.1.0"

// migrations maps a target version to the transform that upgrades a snapshot
// from any older shape to that version. Transforms must be idempotent: each
// checks field presence before defaulting, so re-running on already-migrated
// data changes nothing.
var migrations = map[string]func(models.Snapshot) models.Snapshot{
	"1.1.0": func(s models.Snapshot) models.Snapshot {
		if s.History == nil {
			s.History = []models.HistoryEntry{}
		}
		return s
	},
}

// Compare orders two dotted numeric versions. It returns a negative number
// if a < b, zero if equal, positive if a > b. Missing segments count as zero,
// so "1.1" equals "1.1.0".
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

// Run upgrades a snapshot to the current schema version.
//
// An unversioned snapshot is foreign data and passes through unchanged; so
// does one whose version is current or newer (newer only gets a warning —
// rejecting it would strand user data on a rollback). Older snapshots get
// every applicable transform in ascending version order, and the version is
// forced to CurrentVersion afterwards in case the target list stops short.
func Run(s models.Snapshot) models.Snapshot {
	if s.Version == "" {
		return s
	}
	if cmp := Compare(s.Version, CurrentVersion); cmp >= 0 {
		if cmp > 0 {
			slog.Warn("snapshot version is newer than this build, leaving as-is",
				"snapshot_version", s.Version,
				"current_version", CurrentVersion,
			)
		}
		return s
	}

	targets := make([]string, 0, len(migrations))
	for v := range migrations {
		targets = append(targets, v)
	}
	sort.Slice(targets, func(i, j int) bool { return Compare(targets[i], targets[j]) < 0 })

	for _, target := range targets {
		if Compare(s.Version, target) < 0 {
			s = migrations[target](s)
			s.Version = target
		}
	}
	s.Version = CurrentVersion
	return s
}
