package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// errBadRequest marks failures caused by the request itself.
var errBadRequest = errors.New("bad request")

type handlers struct {
	queries *core.QueryService
	log     *slog.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, schema.ErrUnknownSensorKind):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("query failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	respondError(w, h.log, status, err)
}

func (h *handlers) kind(r *http.Request) (schema.SensorKind, error) {
	return schema.ParseSensorKind(mux.Vars(r)["kind"])
}

// parseTime reads a time parameter in the service location.
func (h *handlers) parseTime(values url.Values, name string) (time.Time, error) {
	t, err := contract.ParseTimeArg(values.Get(name), time.Now(), h.queries.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return t, nil
}

func parseInt(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer (received %q)", errBadRequest, name, raw)
	}
	return n, nil
}

// parseOptionalFloat returns nil when the parameter is absent.
func parseOptionalFloat(values url.Values, name string) (*float64, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number (received %q)", errBadRequest, name, raw)
	}
	return &f, nil
}

// listQuery builds and validates a ListQuery from the path and query string.
func (h *handlers) listQuery(r *http.Request) (schema.ListQuery, error) {
	kind, err := h.kind(r)
	if err != nil {
		return schema.ListQuery{}, err
	}
	values := r.URL.Query()
	q := schema.ListQuery{Kind: kind, Order: schema.SortOrder(values.Get("order"))}
	if q.Start, err = h.parseTime(values, "start"); err != nil {
		return q, err
	}
	if q.End, err = h.parseTime(values, "end"); err != nil {
		return q, err
	}
	if q.Limit, err = parseInt(values, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseInt(values, "offset"); err != nil {
		return q, err
	}
	normalized, err := core.NormalizeListQuery(q)
	if err != nil {
		return q, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return normalized, nil
}

func listing[T any](h *handlers, fetch func(context.Context, schema.ListQuery) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := h.listQuery(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		rows, err := fetch(r.Context(), q)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		respondJSON(w, h.log, http.StatusOK, ListResponse[T]{
			Kind:   string(q.Kind),
			Count:  len(rows),
			Limit:  q.Limit,
			Offset: q.Offset,
			Order:  string(q.Order),
			Data:   rows,
		})
	}
}

func (h *handlers) handleReadings(w http.ResponseWriter, r *http.Request) {
	listing(h, h.queries.Readings)(w, r)
}

func (h *handlers) handleMinutes(w http.ResponseWriter, r *http.Request) {
	listing(h, h.queries.Minutes)(w, r)
}

func (h *handlers) handleHours(w http.ResponseWriter, r *http.Request) {
	listing(h, h.queries.Hours)(w, r)
}

func (h *handlers) handleDays(w http.ResponseWriter, r *http.Request) {
	listing(h, h.queries.Days)(w, r)
}

func (h *handlers) handleVariations(w http.ResponseWriter, r *http.Request) {
	q, err := h.listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	vq := schema.VariationQuery{ListQuery: q}
	values := r.URL.Query()
	if vq.MinRange, err = parseOptionalFloat(values, "min_range"); err != nil {
		h.fail(w, r, err)
		return
	}
	if vq.MinStdDev, err = parseOptionalFloat(values, "min_std_dev"); err != nil {
		h.fail(w, r, err)
		return
	}
	if (vq.MinRange != nil && *vq.MinRange < 0) || (vq.MinStdDev != nil && *vq.MinStdDev < 0) {
		h.fail(w, r, fmt.Errorf("%w: variation floors cannot be negative", errBadRequest))
		return
	}
	listing(h, func(ctx context.Context, _ schema.ListQuery) ([]schema.MinuteAggregate, error) {
		return h.queries.Variations(ctx, vq)
	})(w, r)
}

func (h *handlers) handleLatest(w http.ResponseWriter, r *http.Request) {
	kind, err := h.kind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reading, err := h.queries.Latest(r.Context(), kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, reading)
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	kind, err := h.kind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	values := r.URL.Query()
	start, err := h.parseTime(values, "start")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := h.parseTime(values, "end")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		h.fail(w, r, fmt.Errorf("%w: start cannot be after end", errBadRequest))
		return
	}
	stats, err := h.queries.Stats(r.Context(), kind, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, stats)
}

func (h *handlers) handleCompare(w http.ResponseWriter, r *http.Request) {
	kind, err := h.kind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := h.parseTime(r.URL.Query(), "at")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if at.IsZero() {
		h.fail(w, r, fmt.Errorf("%w: the at parameter is required", errBadRequest))
		return
	}
	cmp, err := h.queries.Compare(r.Context(), kind, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, cmp)
}
