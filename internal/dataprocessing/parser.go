package dataprocessing

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"bedpulse/pkg/contracts/domain"
)

// ErrColumnsUnresolved is returned when the building or bed-space column
// cannot be located in the header row. These two roles are load-bearing;
// without them no row can be trusted, so the whole document is rejected
// with no partial rows.
var ErrColumnsUnresolved = errors.New("required building and bed-space columns not found in header")

// ColumnMap holds the resolved column index for each logical role.
// An index of -1 means the role could not be mapped to any header.
type ColumnMap struct {
	Building  int
	RoomType  int
	Gender    int
	BedSpaces int
	UpdatedAt int
}

// Resolved reports whether the two required roles were mapped.
func (c ColumnMap) Resolved() bool {
	return c.Building >= 0 && c.BedSpaces >= 0
}

// Keyword sets for heuristic column inference, in priority order per role.
// Matching is case-insensitive substring matching against trimmed,
// quote-stripped headers; the first header containing any keyword for a
// role wins.
var (
	buildingKeywords  = []string{"building", "location", "hall", "residence"}
	roomTypeKeywords  = []string{"room type", "roomtype", "type", "unit"}
	genderKeywords    = []string{"gender", "sex", "assignment"}
	bedSpacesKeywords = []string{"bed", "spaces", "available", "count"}
	updatedAtKeywords = []string{"last updated", "lastupdated", "updated"}
)

// ParseResult carries everything extracted from one export document.
type ParseResult struct {
	Rows      []domain.Row
	UpdatedAt *time.Time
	Columns   ColumnMap
}

// Parser converts raw delimited or workbook housing exports into canonical
// rows. It is tolerant by design: field-level defects coerce to safe
// defaults, only whole-document structural failures return an error.
type Parser struct {
	logger *slog.Logger
	dst    DSTRule
}

// NewParser creates a parser using the given DST offset rule for resolving
// free-text "last updated" values.
func NewParser(logger *slog.Logger, dst DSTRule) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger.With(slog.String("component", "parser")),
		dst:    dst,
	}
}

// ParseCSV parses a raw comma-delimited export. Fewer than two lines is not
// an error: it yields an empty result meaning "no data". An unresolvable
// building or bed-space column returns ErrColumnsUnresolved with no
// partial rows.
func (p *Parser) ParseCSV(raw string) (*ParseResult, error) {
	headers, records := SplitDocument(raw, ',')
	return p.parse(headers, records)
}

// ParseWorkbook parses an XLSX export by locating the first sheet with a
// resolvable header row and feeding it through the same inference and
// normalization path as ParseCSV.
func (p *Parser) ParseWorkbook(data []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		if cols := InferColumns(rows[0]); cols.Resolved() {
			p.logger.Debug("workbook sheet selected", slog.String("sheet", name))
			return p.parse(rows[0], rows[1:])
		}
	}
	return nil, ErrColumnsUnresolved
}

// parse maps headers to roles and normalizes each record into a Row.
func (p *Parser) parse(headers []string, records [][]string) (*ParseResult, error) {
	if len(headers) == 0 {
		// Fewer than two lines in the source. Not fatal, just no data.
		return &ParseResult{Columns: emptyColumnMap()}, nil
	}

	cols := InferColumns(headers)
	if !cols.Resolved() {
		p.logger.Warn("column inference failed",
			slog.Any("headers", headers))
		return nil, ErrColumnsUnresolved
	}

	// Log the inferred mapping on every ingestion so a silently mis-mapped
	// column (two headers matching the same keyword set) is auditable.
	p.logger.Info("columns inferred",
		slog.Int("building", cols.Building),
		slog.Int("room_type", cols.RoomType),
		slog.Int("gender", cols.Gender),
		slog.Int("bed_spaces", cols.BedSpaces),
		slog.Int("updated_at", cols.UpdatedAt))

	result := &ParseResult{Columns: cols}
	for _, record := range records {
		row, ok := normalizeRow(record, cols)
		if !ok {
			continue // blank building cell, a separator line
		}
		result.Rows = append(result.Rows, row)

		if result.UpdatedAt == nil && cols.UpdatedAt >= 0 {
			if ts, ok := ResolveTimestamp(cell(record, cols.UpdatedAt), p.dst); ok {
				result.UpdatedAt = &ts
			}
		}
	}
	return result, nil
}

// SplitDocument splits raw text into a header line and data records using
// delimiter-aware, quote-honoring cell splitting. Empty input or a single
// line yields empty results.
func SplitDocument(raw string, delim rune) (headers []string, records [][]string) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	// Drop trailing blank lines so a final newline does not produce a
	// phantom record.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return nil, nil
	}

	headers = SplitLine(lines[0], delim)
	for _, line := range lines[1:] {
		records = append(records, SplitLine(line, delim))
	}
	return headers, records
}

// SplitLine splits one line on the delimiter while honoring double-quote
// escaping: delimiters between quotes are literal, and the quote characters
// themselves are stripped from the cell value. A line with no delimiter
// yields a single cell.
func SplitLine(line string, delim rune) []string {
	var (
		cells    []string
		cell     strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	cells = append(cells, cell.String())
	return cells
}

// InferColumns maps logical roles onto arbitrary header names via keyword
// matching. For each role the headers are scanned in order and the first
// header containing any of the role's keywords wins, so an ambiguous header
// set resolves deterministically to the earliest match.
func InferColumns(headers []string) ColumnMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(h, `"`, "")))
	}

	find := func(keywords []string) int {
		for i, header := range normalized {
			for _, kw := range keywords {
				if strings.Contains(header, kw) {
					return i
				}
			}
		}
		return -1
	}

	return ColumnMap{
		Building:  find(buildingKeywords),
		RoomType:  find(roomTypeKeywords),
		Gender:    find(genderKeywords),
		BedSpaces: find(bedSpacesKeywords),
		UpdatedAt: find(updatedAtKeywords),
	}
}

// normalizeRow builds a canonical Row from one record. It returns ok=false
// when the building cell is blank; blank separator lines are common in
// these exports and are skipped, not treated as errors. Unresolved optional
// columns fall back to their defaults and a malformed bed count coerces
// to zero.
func normalizeRow(record []string, cols ColumnMap) (domain.Row, bool) {
	building := strings.TrimSpace(cell(record, cols.Building))
	if building == "" {
		return domain.Row{}, false
	}

	roomType := strings.TrimSpace(cell(record, cols.RoomType))
	if roomType == "" {
		roomType = domain.DefaultRoomType
	}
	gender := strings.TrimSpace(cell(record, cols.Gender))
	if gender == "" {
		gender = domain.DefaultGender
	}

	return domain.Row{
		Building:  building,
		RoomType:  roomType,
		Gender:    gender,
		BedSpaces: parseBedCount(cell(record, cols.BedSpaces)),
	}, true
}

// cell safely fetches a column value, returning "" when the index is
// unresolved or the record is too short.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parseBedCount parses a bed-space cell as a non-negative integer. Any
// unparsable or negative value means "no data for this cell" and coerces
// to zero rather than failing the ingestion.
func parseBedCount(raw string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func emptyColumnMap() ColumnMap {
	return ColumnMap{Building: -1, RoomType: -1, Gender: -1, BedSpaces: -1, UpdatedAt: -1}
}
