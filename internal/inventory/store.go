// Package inventory is the reconciliation and aggregation core. It converges
// provider snapshots into the store via mark-then-merge (one transaction per
// batch), attaches out-of-band metric/security patches, and serves read-side
// roll-ups over active rows only.
//
// Single logical writer: batches for different scopes may run concurrently,
// but callers must not run an attach for a scope while that scope is being
// mark-then-merged, and must not run two top-level syncs for the same
// provider at once. The store offers no mutual exclusion beyond the
// transaction boundary.
package inventory

import (
	"strings"
	"time"

	"github.com/quarterhill/stratus/internal/logging"
	"gorm.io/gorm"
)

type Store struct {
	db  *gorm.DB
	log logging.Logger
}

func New(gdb *gorm.DB, logger logging.Logger) *Store {
	return &Store{db: gdb, log: logger}
}

// now is the batch-timestamp source; one value is taken per batch and shared
// by every row written in it.
func now() time.Time { return time.Now().UTC() }

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time { return &t }

// Datetime columns lose their declared affinity inside aggregate expressions
// (MAX, subquery aliases), so the driver hands them back as raw text. Report
// queries scan those columns into *string and parse here. Layouts follow the
// storage formats SQLite accepts.
var aggregateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseAggregateTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSuffix(strings.TrimSpace(*s), "Z")
	for _, layout := range aggregateTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}
