// Package dataprocessing turns raw housing exports into canonical rows and
// derives the grouped views served to the presentation layer.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Parser: splits delimited text (or an XLSX workbook), infers column
// roles from arbitrary header names, and normalizes cells into Rows
// 2. Timestamp resolver: parses a free-text "last updated" field into a
// timezone-aware instant under a fixed, configurable DST rule
// 3. Aggregator: groups the latest snapshot by (building, roomType),
// computes per-gender breakdowns, change against the previous snapshot,
// baseline fill ratios, and historical trend series
//
// # Data Flow
//
//	Raw export → Parser → Rows (+ resolved timestamp) → Snapshot
//	HousingHistory → Aggregator → GroupedRows / TrendPoints
//
// # Error Handling
//
// The parser is deliberately lenient. Field-level defects (a malformed bed
// count, a blank optional cell, an unparsable timestamp) coerce to safe
// defaults so one bad row never poisons an ingestion. Only two conditions
// are structural: an input of fewer than two lines yields an empty result,
// and an unresolvable building or bed-space column fails the whole parse
// with ErrColumnsUnresolved.
package dataprocessing
