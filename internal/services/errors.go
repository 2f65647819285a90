package services

import "errors"

// Service-level sentinel errors. Handlers and the fetcher match these with
// errors.Is to produce distinct, human-readable outcomes: "couldn't find
// required columns" is not "storage write failed" is not "duplicate,
// already have this snapshot".
var (
	// ErrNoData means the export parsed cleanly but produced zero rows
	// (fewer than two lines, or every data line blank).
	ErrNoData = errors.New("no rows found in export")

	// ErrMissingColumns means the building or bed-space column could not
	// be inferred from the header row; nothing was imported.
	ErrMissingColumns = errors.New("required building and bed-space columns could not be resolved")

	// ErrDuplicateSnapshot means a snapshot with the exact same timestamp
	// already exists. Idempotent retries are expected to hit this; it is a
	// no-op, not a failure.
	ErrDuplicateSnapshot = errors.New("duplicate snapshot timestamp, ingestion skipped")

	// ErrStoreWrite means the backing store rejected the write. The
	// attempted snapshot was not persisted and the caller should retry.
	ErrStoreWrite = errors.New("storage write failed")
)
