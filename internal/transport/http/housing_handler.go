package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"bedpulse/internal/dataprocessing"
	apierrors "bedpulse/internal/errors"
	"bedpulse/internal/services"
	"bedpulse/pkg/contracts/domain"
)

// HousingHandler serves the housing read and write API.
type HousingHandler struct {
	service      HousingServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
	maxBodyBytes int64
}

// NewHousingHandler creates the handler. maxBodyBytes bounds upload sizes.
func NewHousingHandler(service HousingServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxBodyBytes int64) *HousingHandler {
	return &HousingHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "housing_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
		maxBodyBytes: maxBodyBytes,
	}
}

// Routes returns the housing routes.
func (h *HousingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Get("/history", h.GetHistory)
	r.Get("/grouped", h.GetGrouped)
	r.Get("/trend", h.GetTrend)

	return r
}

// UploadResponse reports the outcome of one ingestion to the caller.
type UploadResponse struct {
	Status        string `json:"status"` // "ok" or "duplicate"
	Message       string `json:"message,omitempty"`
	IngestionID   string `json:"ingestionId,omitempty"`
	RowsImported  int    `json:"rowsImported"`
	SnapshotCount int    `json:"snapshotCount,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// Upload handles POST /api/housing/upload. The export arrives either as a
// multipart "file" part or as the raw request body. A duplicate snapshot
// is a 200 no-op so automated retries stay idempotent.
func (h *HousingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	filename, data, err := h.readExport(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Ingest(r.Context(), filename, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateSnapshot):
			render.JSON(w, r, UploadResponse{
				Status:  "duplicate",
				Message: "duplicate timestamp, ingestion skipped",
			})
		case errors.Is(err, services.ErrMissingColumns):
			h.errorHandler.HandleError(w, r, apierrors.ErrMissingColumns)
		case errors.Is(err, services.ErrNoData):
			h.errorHandler.HandleError(w, r, apierrors.ErrNoData)
		case errors.Is(err, services.ErrStoreWrite):
			h.errorHandler.HandleError(w, r, apierrors.ErrStoreWrite)
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		Status:        "ok",
		IngestionID:   result.IngestionID,
		RowsImported:  result.RowsImported,
		SnapshotCount: result.SnapshotCount,
		Timestamp:     result.Timestamp.Format(timestampFormat),
	})
}

const timestampFormat = "2006-01-02T15:04:05-07:00"

// readExport extracts the export bytes from a multipart form or the raw
// body.
func (h *HousingHandler) readExport(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, apierrors.ErrNoFileProvided
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, apierrors.ErrInvalidRequest
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, apierrors.ErrInvalidRequest
	}
	if len(data) == 0 {
		return "", nil, apierrors.ErrNoFileProvided
	}
	return "export.csv", data, nil
}

// GetHistory handles GET /api/housing/history, returning the full history
// document. Absent state is a success with zero snapshots.
func (h *HousingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, history)
}

// groupedQuery binds and validates GET /api/housing/grouped parameters.
type groupedQuery struct {
	Gender   string `validate:"max=64"`
	Building string `validate:"max=128"`
	RoomType string `validate:"max=128"`
	Search   string `validate:"max=128"`
	Sort     string `validate:"omitempty,oneof=building roomType totalBeds change"`
	Dir      string `validate:"omitempty,oneof=asc desc"`
}

// GroupedResponse wraps the grouped view rows.
type GroupedResponse struct {
	Groups []domain.GroupedRow `json:"groups"`
	Count  int                 `json:"count"`
}

// GetGrouped handles GET /api/housing/grouped with filter, search and
// sort parameters.
func (h *HousingHandler) GetGrouped(w http.ResponseWriter, r *http.Request) {
	q := groupedQuery{
		Gender:   r.URL.Query().Get("gender"),
		Building: r.URL.Query().Get("building"),
		RoomType: r.URL.Query().Get("roomType"),
		Search:   r.URL.Query().Get("q"),
		Sort:     r.URL.Query().Get("sort"),
		Dir:      r.URL.Query().Get("dir"),
	}
	if err := h.validate.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return
	}

	filter := dataprocessing.Filter{
		Gender:   q.Gender,
		Building: q.Building,
		RoomType: q.RoomType,
		Search:   q.Search,
	}
	spec := dataprocessing.SortSpec{
		Field: dataprocessing.SortField(q.Sort),
		Desc:  q.Dir == "desc",
	}

	groups, err := h.service.GroupedView(r.Context(), filter, spec)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if groups == nil {
		groups = []domain.GroupedRow{}
	}
	render.JSON(w, r, GroupedResponse{Groups: groups, Count: len(groups)})
}

// trendQuery binds and validates GET /api/housing/trend parameters.
type trendQuery struct {
	Building string `validate:"required,max=128"`
	RoomType string `validate:"required,max=128"`
	Gender   string `validate:"max=64"`
}

// TrendResponse wraps the trend series for one group.
type TrendResponse struct {
	Key    domain.GroupKey    `json:"key"`
	Gender string             `json:"gender,omitempty"`
	Points []domain.TrendPoint `json:"points"`
}

// GetTrend handles GET /api/housing/trend for one (building, roomType)
// group.
func (h *HousingHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	q := trendQuery{
		Building: r.URL.Query().Get("building"),
		RoomType: r.URL.Query().Get("roomType"),
		Gender:   r.URL.Query().Get("gender"),
	}
	if err := h.validate.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("query", "building and roomType are required"))
		return
	}

	key := domain.GroupKey{Building: q.Building, RoomType: q.RoomType}
	points, err := h.service.Trend(r.Context(), key, q.Gender)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if points == nil {
		points = []domain.TrendPoint{}
	}
	render.JSON(w, r, TrendResponse{Key: key, Gender: q.Gender, Points: points})
}
