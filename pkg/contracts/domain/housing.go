package domain

import (
	"time"
)

// Defaults substituted by the row normalizer when an optional column is
// missing from the source export or its cell is blank.
const (
	DefaultRoomType = "Unknown"
	DefaultGender   = "All"
)

// Row represents a single (building, room type, gender) bed count captured
// by one ingestion. A Row is immutable once constructed and belongs to
// exactly one Snapshot. JSON field names match the persisted document
// layout and must not change.
type Row struct {
	Building  string `json:"building" validate:"required"`
	RoomType  string `json:"roomType"`
	Gender    string `json:"gender"`
	BedSpaces int    `json:"bedSpaces" validate:"min=0"`
}

// Snapshot represents one point-in-time capture of every row produced by a
// single ingestion. Row order is the source file order and carries no
// meaning beyond iteration.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Rows      []Row     `json:"rows"`
}

// HousingHistory is the persisted aggregate: every snapshot in insertion
// order plus the timestamp of the most recent one. The snapshot store is
// its single owner; insertion order equals chronological order for a
// correctly-ordered feed, and readers re-sort defensively rather than
// trusting it.
type HousingHistory struct {
	Snapshots   []Snapshot `json:"snapshots"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// Empty reports whether the history contains no snapshots.
func (h HousingHistory) Empty() bool {
	return len(h.Snapshots) == 0
}

// GroupKey identifies one (building, roomType) aggregation bucket. It is a
// comparable struct rather than a joined string so values containing
// delimiter characters can never collide.
type GroupKey struct {
	Building string `json:"building"`
	RoomType string `json:"roomType"`
}

// GroupedRow is the derived, per-(building, roomType) view of the latest
// snapshot under the active filter. Change is nil when the key has no
// counterpart in the previous filtered snapshot; "no prior data" must stay
// distinguishable from "no change".
type GroupedRow struct {
	Key         GroupKey       `json:"key"`
	Building    string         `json:"building"`
	RoomType    string         `json:"roomType"`
	TotalBeds   int            `json:"totalBeds"`
	ByGender    map[string]int `json:"byGender"`
	Change      *int           `json:"change,omitempty"`
	InitialBeds int            `json:"initialBeds"`
	FillRatio   float64        `json:"fillRatio"`
}

// TrendPoint is one snapshot's contribution to the historical series for a
// fixed group. ByGender is populated only when no gender filter is active.
type TrendPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	TotalBeds int            `json:"totalBeds"`
	ByGender  map[string]int `json:"byGender,omitempty"`
}
