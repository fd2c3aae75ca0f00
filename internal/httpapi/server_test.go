package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/iostore"
	"github.com/huangsam/sensorium/internal/metrics"
	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, collector *metrics.Collector) (*Server, *iostore.MockSensorStore) {
	t.Helper()
	store := &iostore.MockSensorStore{}
	t.Cleanup(func() { store.AssertExpectations(t) })
	queries := core.NewQueryService(core.NewPipeline(store))
	return NewServer("127.0.0.1:0", queries, collector, nil, WithQueueDepth(func() int { return 7 })), store
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 7, body.QueueDepth)
}

func TestMinutesListing(t *testing.T) {
	s, store := newTestServer(t, nil)
	want := schema.ListQuery{
		Kind:   schema.Temperature,
		Start:  base,
		Limit:  2,
		Offset: 4,
		Order:  schema.Ascending,
	}
	store.On("QueryMinutes", mock.Anything, want).Return([]schema.MinuteAggregate{
		{Kind: schema.Temperature, BucketStart: base, Avg: 21.5, ReadingCount: 12},
	}, nil)

	rec := get(t, s, "/api/v1/temperature/minutes?start=2026-03-02T09:00:00Z&limit=2&offset=4&order=asc")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ListResponse[schema.MinuteAggregate]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "temperature", body.Kind)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "asc", body.Order)
	assert.Equal(t, 21.5, body.Data[0].Avg)
}

func TestListingDefaultsAndEmpty(t *testing.T) {
	s, store := newTestServer(t, nil)
	store.On("QueryDays", mock.Anything, schema.ListQuery{Kind: schema.Pressure, Limit: 100, Order: schema.Descending}).
		Return(nil, nil)

	rec := get(t, s, "/api/v1/pression/days")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"kind":"pressure"`)
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown kind", "/api/v1/radon/raw"},
		{"limit too large", "/api/v1/noise/raw?limit=5000"},
		{"limit not a number", "/api/v1/noise/hours?limit=ten"},
		{"bad order", "/api/v1/noise/hours?order=sideways"},
		{"bad start", "/api/v1/noise/minutes?start=yesterday-ish"},
		{"inverted range", "/api/v1/noise/minutes?start=2026-03-02&end=2026-03-01"},
		{"negative floor", "/api/v1/noise/variations?min_range=-1"},
		{"compare without at", "/api/v1/noise/compare"},
		{"stats inverted range", "/api/v1/noise/stats?start=2026-03-02&end=2026-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Bad Request", body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestLatest(t *testing.T) {
	s, store := newTestServer(t, nil)
	store.On("LatestReading", mock.Anything, schema.ECO2).
		Return(schema.RawReading{Kind: schema.ECO2, Value: 812, Timestamp: base}, true, nil).Once()
	store.On("LatestReading", mock.Anything, schema.TVOC).
		Return(schema.RawReading{}, false, nil).Once()

	rec := get(t, s, "/api/v1/eco2/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":812`)

	rec = get(t, s, "/api/v1/tvoc/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreFailureIsInternal(t *testing.T) {
	s, store := newTestServer(t, nil)
	store.On("ReadingStats", mock.Anything, schema.Humidity, time.Time{}, time.Time{}).
		Return(schema.ReadingStats{}, errors.New("connection reset"))

	rec := get(t, s, "/api/v1/humidity/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection reset")
}

func TestVariationsUseDefaultFloors(t *testing.T) {
	s, store := newTestServer(t, nil)
	minRange, minStdDev := 10.0, 2.5
	want := schema.VariationQuery{
		ListQuery: schema.ListQuery{Kind: schema.Humidity, Limit: 100, Order: schema.Descending},
		MinRange:  &minRange,
		MinStdDev: &minStdDev,
	}
	store.On("MinuteVariations", mock.Anything, want).Return([]schema.MinuteAggregate{{Kind: schema.Humidity, Range: 12}}, nil)

	rec := get(t, s, "/api/v1/humidity/variations?min_std_dev=2.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestVariationsZeroFloorMatchesAny(t *testing.T) {
	s, store := newTestServer(t, nil)
	zero, minStdDev := 0.0, 5.0
	want := schema.VariationQuery{
		ListQuery: schema.ListQuery{Kind: schema.Humidity, Limit: 100, Order: schema.Descending},
		MinRange:  &zero,
		MinStdDev: &minStdDev,
	}
	store.On("MinuteVariations", mock.Anything, want).Return([]schema.MinuteAggregate{}, nil)

	rec := get(t, s, "/api/v1/humidity/variations?min_range=0")
	require.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestCompare(t *testing.T) {
	s, store := newTestServer(t, nil)
	minute := base.Add(10 * time.Minute)
	store.On("QueryMinutes", mock.Anything, schema.ListQuery{Kind: schema.Noise, Start: minute, End: minute.Add(time.Minute), Limit: 1}).
		Return([]schema.MinuteAggregate{}, nil)
	store.On("ListReadings", mock.Anything, schema.Noise, minute, minute.Add(time.Minute)).
		Return([]schema.RawReading{{Kind: schema.Noise, Value: 40, Timestamp: minute}}, nil)

	rec := get(t, s, "/api/v1/noise/compare?at=2026-03-02T09:10:30Z")
	require.Equal(t, http.StatusOK, rec.Code)

	var body schema.MinuteComparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Aggregate)
	require.NotNil(t, body.Computed)
	assert.Equal(t, 1, body.Computed.ReadingCount)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.New()
	s, _ := newTestServer(t, collector)

	require.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/radon/raw").Code)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `sensorium_http_requests_total{route="healthz",status="200"} 1`))
	assert.True(t, strings.Contains(body, `sensorium_http_requests_total{route="raw",status="400"} 1`))
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/v2/noise/raw").Code)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/noise/raw", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/tvoc/hours", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
