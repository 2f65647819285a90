package http

import (
	"context"

	"bedpulse/internal/dataprocessing"
	"bedpulse/internal/services"
	"bedpulse/pkg/contracts/domain"
)

// HousingServiceInterface defines what the handlers need from the housing
// service, so tests can substitute a stub.
type HousingServiceInterface interface {
	Ingest(ctx context.Context, filename string, data []byte) (*services.IngestResult, error)
	History(ctx context.Context) (domain.HousingHistory, error)
	GroupedView(ctx context.Context, filter dataprocessing.Filter, spec dataprocessing.SortSpec) ([]domain.GroupedRow, error)
	Trend(ctx context.Context, key domain.GroupKey, gender string) ([]domain.TrendPoint, error)
}
