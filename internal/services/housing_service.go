package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bedpulse/internal/dataprocessing"
	"bedpulse/internal/store"
	"bedpulse/pkg/contracts/domain"
)

// HousingService ties parsing, the snapshot store and aggregation together.
// It is the single ingestion component shared by the interactive upload
// handler and the scheduled fetcher, so the two entry points can never
// drift behaviorally.
type HousingService struct {
	parser *dataprocessing.Parser
	agg    *dataprocessing.Aggregator
	store  *store.Store
	logger *slog.Logger
	tracer trace.Tracer
	clock  func() time.Time
}

// NewHousingService creates the service. The clock defaults to time.Now
// and exists so tests can pin the wall-clock fallback timestamp.
func NewHousingService(parser *dataprocessing.Parser, agg *dataprocessing.Aggregator, st *store.Store, logger *slog.Logger) *HousingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HousingService{
		parser: parser,
		agg:    agg,
		store:  st,
		logger: logger.With(slog.String("component", "housing_service")),
		tracer: otel.Tracer("bedpulse/services"),
		clock:  time.Now,
	}
}

// WithClock overrides the wall-clock source. Test hook.
func (s *HousingService) WithClock(clock func() time.Time) *HousingService {
	s.clock = clock
	return s
}

// IngestResult reports one successful ingestion back to the caller.
type IngestResult struct {
	IngestionID   string    `json:"ingestionId"`
	RowsImported  int       `json:"rowsImported"`
	SnapshotCount int       `json:"snapshotCount"`
	Timestamp     time.Time `json:"timestamp"`
}

// Ingest parses raw export bytes, builds one snapshot and appends it to the
// history. XLSX payloads are dispatched on the filename extension; anything
// else is treated as delimited text. Failures map to the service sentinel
// errors; a duplicate timestamp returns ErrDuplicateSnapshot with nothing
// written.
func (s *HousingService) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "housing.ingest",
		trace.WithAttributes(
			attribute.String("filename", filename),
			attribute.Int("bytes", len(data)),
		))
	defer span.End()

	ingestionID := uuid.New().String()
	logger := s.logger.With(slog.String("ingestion_id", ingestionID))

	result, err := s.parse(filename, data)
	if err != nil {
		if errors.Is(err, dataprocessing.ErrColumnsUnresolved) {
			ingestTotal.WithLabelValues(resultMissingColumns).Inc()
			logger.WarnContext(ctx, "ingestion rejected: columns unresolved",
				slog.String("filename", filename))
			return nil, fmt.Errorf("%w: %v", ErrMissingColumns, err)
		}
		ingestTotal.WithLabelValues(resultNoData).Inc()
		logger.WarnContext(ctx, "ingestion rejected: unreadable export",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if len(result.Rows) == 0 {
		ingestTotal.WithLabelValues(resultNoData).Inc()
		logger.WarnContext(ctx, "ingestion rejected: no rows",
			slog.String("filename", filename))
		return nil, ErrNoData
	}

	// A committed snapshot never has an absent timestamp: when the export
	// carries no resolvable "last updated" value, the ingestion wall clock
	// stands in.
	timestamp := s.clock()
	if result.UpdatedAt != nil {
		timestamp = *result.UpdatedAt
	}

	snapshot := domain.Snapshot{Timestamp: timestamp, Rows: result.Rows}
	history, err := s.store.Append(ctx, snapshot)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTimestamp) {
			ingestTotal.WithLabelValues(resultDuplicate).Inc()
			logger.InfoContext(ctx, "ingestion skipped: duplicate snapshot",
				slog.Time("timestamp", timestamp))
			return nil, fmt.Errorf("%w (timestamp %s)", ErrDuplicateSnapshot, timestamp.Format(time.RFC3339))
		}
		ingestTotal.WithLabelValues(resultStoreError).Inc()
		logger.ErrorContext(ctx, "ingestion failed: store write",
			slog.Time("timestamp", timestamp),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	ingestTotal.WithLabelValues(resultOK).Inc()
	ingestedRows.Add(float64(len(result.Rows)))
	snapshotCount.Set(float64(len(history.Snapshots)))

	logger.InfoContext(ctx, "ingestion complete",
		slog.Time("timestamp", timestamp),
		slog.Int("rows_imported", len(result.Rows)),
		slog.Int("snapshot_count", len(history.Snapshots)))

	return &IngestResult{
		IngestionID:   ingestionID,
		RowsImported:  len(result.Rows),
		SnapshotCount: len(history.Snapshots),
		Timestamp:     timestamp,
	}, nil
}

// parse dispatches on the filename extension.
func (s *HousingService) parse(filename string, data []byte) (*dataprocessing.ParseResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return s.parser.ParseWorkbook(data)
	default:
		return s.parser.ParseCSV(string(data))
	}
}

// History returns the full housing history. Empty or absent state is a
// success with zero snapshots, never an error.
func (s *HousingService) History(ctx context.Context) (domain.HousingHistory, error) {
	return s.store.Load(ctx)
}

// GroupedView loads the history and derives the filtered, sorted grouped
// rows for the latest snapshot.
func (s *HousingService) GroupedView(ctx context.Context, filter dataprocessing.Filter, spec dataprocessing.SortSpec) ([]domain.GroupedRow, error) {
	history, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.GroupedView(history, filter, spec), nil
}

// Trend loads the history and derives the chronological series for one
// (building, roomType) group.
func (s *HousingService) Trend(ctx context.Context, key domain.GroupKey, gender string) ([]domain.TrendPoint, error) {
	history, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.TrendSeries(history, key, gender), nil
}
