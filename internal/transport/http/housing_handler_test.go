package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedpulse/internal/dataprocessing"
	apierrors "bedpulse/internal/errors"
	"bedpulse/internal/services"
	"bedpulse/internal/shared/testutil"
	"bedpulse/pkg/contracts/domain"
)

// stubService lets each test script the service layer.
type stubService struct {
	ingestResult *services.IngestResult
	ingestErr    error
	history      domain.HousingHistory
	grouped      []domain.GroupedRow
	trend        []domain.TrendPoint

	lastFilename string
	lastFilter   dataprocessing.Filter
	lastSpec     dataprocessing.SortSpec
	lastKey      domain.GroupKey
	lastGender   string
}

func (s *stubService) Ingest(_ context.Context, filename string, _ []byte) (*services.IngestResult, error) {
	s.lastFilename = filename
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	return s.ingestResult, nil
}

func (s *stubService) History(context.Context) (domain.HousingHistory, error) {
	return s.history, nil
}

func (s *stubService) GroupedView(_ context.Context, filter dataprocessing.Filter, spec dataprocessing.SortSpec) ([]domain.GroupedRow, error) {
	s.lastFilter = filter
	s.lastSpec = spec
	return s.grouped, nil
}

func (s *stubService) Trend(_ context.Context, key domain.GroupKey, gender string) ([]domain.TrendPoint, error) {
	s.lastKey = key
	s.lastGender = gender
	return s.trend, nil
}

func newTestHandler(t *testing.T, svc *stubService) *HousingHandler {
	t.Helper()
	logger, _ := testutil.NewCaptureLogger()
	return NewHousingHandler(svc, logger, apierrors.NewErrorHandler(logger), 1<<20)
}

func TestUploadRawBody(t *testing.T) {
	svc := &stubService{ingestResult: &services.IngestResult{
		IngestionID:   "ing-1",
		RowsImported:  3,
		SnapshotCount: 1,
		Timestamp:     time.Date(2026, 3, 8, 9, 0, 0, 0, time.FixedZone("", -7*3600)),
	}}
	h := newTestHandler(t, svc)

	r := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(testutil.SampleCSV))
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "export.csv", svc.lastFilename)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"rowsImported":3`)
	assert.Contains(t, w.Body.String(), "2026-03-08T09:00:00-07:00")
}

func TestUploadMultipart(t *testing.T) {
	svc := &stubService{ingestResult: &services.IngestResult{
		IngestionID:  "ing-2",
		RowsImported: 2,
		Timestamp:    time.Now(),
	}}
	h := newTestHandler(t, svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "fall_export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(testutil.SampleCSVNoTimestamp))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fall_export.csv", svc.lastFilename)
}

func TestUploadEmptyBody(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	r := httptest.NewRequest(http.MethodPost, "/upload", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_FILE_PROVIDED")
}

func TestUploadDuplicateIsOK(t *testing.T) {
	h := newTestHandler(t, &stubService{ingestErr: services.ErrDuplicateSnapshot})

	r := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(testutil.SampleCSV))
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"duplicate"`)
}

func TestUploadServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing columns", services.ErrMissingColumns, http.StatusUnprocessableEntity, "MISSING_COLUMNS"},
		{"no data", services.ErrNoData, http.StatusUnprocessableEntity, "NO_DATA"},
		{"store write", services.ErrStoreWrite, http.StatusInternalServerError, "STORE_WRITE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{ingestErr: tt.err})

			r := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(testutil.SampleCSV))
			w := httptest.NewRecorder()
			h.Routes().ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestGetHistory(t *testing.T) {
	when := testutil.Instant(8, 9)
	h := newTestHandler(t, &stubService{
		history: testutil.History(testutil.Snap(when, testutil.R("Hedrick", "Double", "Female", 10))),
	})

	r := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"snapshots"`)
	assert.Contains(t, w.Body.String(), `"bedSpaces":10`)
}

func TestGetGroupedPassesFilterAndSort(t *testing.T) {
	svc := &stubService{grouped: []domain.GroupedRow{{
		Building: "Hedrick", RoomType: "Double", TotalBeds: 15,
		ByGender: map[string]int{"Female": 10, "Male": 5},
	}}}
	h := newTestHandler(t, svc)

	r := httptest.NewRequest(http.MethodGet, "/grouped?gender=Female&q=hed&sort=totalBeds&dir=desc", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Female", svc.lastFilter.Gender)
	assert.Equal(t, "hed", svc.lastFilter.Search)
	assert.Equal(t, dataprocessing.SortTotalBeds, svc.lastSpec.Field)
	assert.True(t, svc.lastSpec.Desc)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestGetGroupedRejectsBadSort(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	r := httptest.NewRequest(http.MethodGet, "/grouped?sort=bogus", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGroupedEmptyIsArray(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	r := httptest.NewRequest(http.MethodGet, "/grouped", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"groups":[]`)
}

func TestGetTrend(t *testing.T) {
	svc := &stubService{trend: []domain.TrendPoint{
		{Timestamp: testutil.Instant(8, 9), TotalBeds: 15},
		{Timestamp: testutil.Instant(9, 9), TotalBeds: 12},
	}}
	h := newTestHandler(t, svc)

	r := httptest.NewRequest(http.MethodGet, "/trend?building=Hedrick&roomType=Double&gender=Female", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.GroupKey{Building: "Hedrick", RoomType: "Double"}, svc.lastKey)
	assert.Equal(t, "Female", svc.lastGender)
	assert.Contains(t, w.Body.String(), `"totalBeds":15`)
}

func TestGetTrendRequiresKey(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	r := httptest.NewRequest(http.MethodGet, "/trend?building=Hedrick", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	logger, _ := testutil.NewCaptureLogger()
	h := NewHealthHandler(logger)

	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"bedpulse"`)
}
