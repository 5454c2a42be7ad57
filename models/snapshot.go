package models

import "time"

type SnapshotReason string

const (
	SnapshotReasonManual      SnapshotReason = "manual"
	SnapshotReasonPreRecalc   SnapshotReason = "pre-recalculation"
	SnapshotReasonPostRestore SnapshotReason = "post-restore"
	SnapshotReasonScheduled   SnapshotReason = "scheduled"
)

func (r SnapshotReason) Valid() bool {
	switch r {
	case SnapshotReasonManual, SnapshotReasonPreRecalc, SnapshotReasonPostRestore, SnapshotReasonScheduled:
		return true
	}
	return false
}

// Snapshot is an immutable point-in-time capture of a competition's table.
// Entries are stored verbatim, positions included, so a restore reproduces
// the table exactly.
type Snapshot struct {
	ID            string         `json:"id" db:"id"`
	CompetitionID int            `json:"competition_id" db:"competition_id"`
	SeasonID      int            `json:"season_id" db:"season_id"`
	Reason        SnapshotReason `json:"reason" db:"reason"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	Entries       []*TableEntry  `json:"entries" db:"-"`
}
