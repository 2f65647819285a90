// Package testutil provides shared fixtures and logging helpers for tests.
package testutil

import (
	"time"

	"bedpulse/pkg/contracts/domain"
)

// SampleCSV is a minimal well-formed export with every column present.
const SampleCSV = "Building,Room Type,Gender,Bed Spaces,Last Updated\n" +
	"Hedrick,Double,Female,10,3/8/2026 9:00 AM\n" +
	"Hedrick,Double,Male,5,3/8/2026 9:00 AM\n" +
	"Rieber,Triple,Female,7,3/8/2026 9:00 AM\n"

// SampleCSVNoTimestamp lacks an updated-at column, forcing the wall-clock
// fallback path.
const SampleCSVNoTimestamp = "Building,Gender,Beds\n" +
	"Hedrick,Female,10\n" +
	"Hedrick,Male,5\n"

// Instant builds a fixed timestamp in the feed's daylight offset.
func Instant(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.FixedZone("", -7*3600))
}

// Snap builds a snapshot at the given timestamp.
func Snap(ts time.Time, rows ...domain.Row) domain.Snapshot {
	return domain.Snapshot{Timestamp: ts, Rows: rows}
}

// History builds a housing history from snapshots, maintaining LastUpdated
// the way the store does on append.
func History(snapshots ...domain.Snapshot) domain.HousingHistory {
	h := domain.HousingHistory{Snapshots: snapshots}
	if len(snapshots) > 0 {
		last := snapshots[len(snapshots)-1].Timestamp
		h.LastUpdated = &last
	}
	return h
}

// R is shorthand for constructing a Row in table-driven tests.
func R(building, roomType, gender string, beds int) domain.Row {
	return domain.Row{Building: building, RoomType: roomType, Gender: gender, BedSpaces: beds}
}
