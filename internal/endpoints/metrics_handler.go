package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/repository"
	"btc-metrics/internal/util"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 50
	defaultRangeLimit   = 100
)

// MetricsRequest is the optional POST body of the range endpoint. Both
// fields are RFC 3339 timestamps.
type MetricsRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Metrics struct {
	Response     APIResponse
	logger       *util.Logger
	store        domain.MetricStore
	historyLimit int
}

func (m *Metrics) Init(store domain.MetricStore, logger *util.Logger) {
	m.store = store
	m.logger = logger
	if m.historyLimit <= 0 {
		m.historyLimit = DefaultHistoryLimit
	}
}

// SetHistoryLimit changes the default row count of GetHistoryHandler.
func (m *Metrics) SetHistoryLimit(n int) {
	if n > 0 {
		m.historyLimit = n
	}
}

// GetHistoryHandler serves GET /api/metrics: a bare JSON array with the latest
// samples. Rows come oldest first so a polling client can merge them in
// arrival order; order=desc returns them newest first, which is the order the
// endpoint used before the dashboard consumed it. Storage failures are logged
// and answered with an empty list so that polling clients keep their last window.
func (m *Metrics) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.Response.WriteErrorResponseWithStatusCode(w, ErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	limit := m.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			m.logger.Warn("invalid history limit", zap.String("limit", raw))
			m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > repository.MaxLatest {
		limit = repository.MaxLatest
	}

	newestFirst := false
	switch order := r.URL.Query().Get("order"); order {
	case "", "asc":
	case "desc":
		newestFirst = true
	default:
		m.logger.Warn("invalid history order", zap.String("order", order))
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	samples, err := m.store.LatestSamples(r.Context(), limit)
	if err != nil {
		m.logger.Error("fetching metrics history", zap.Error(err))
		samples = []domain.MetricSample{}
	}

	if newestFirst {
		slices.Reverse(samples)
	}

	writeJSON(w, http.StatusOK, samples)
}

// GetLatestHandler serves GET /api/metrics/latest.
func (m *Metrics) GetLatestHandler(w http.ResponseWriter, r *http.Request) {
	samples, err := m.store.LatestSamples(r.Context(), 1)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.Response.WriteErrorResponseWithStatusCode(w, ErrRequestCancelled, http.StatusRequestTimeout)
			return
		}
		m.logger.Error("fetching latest sample", zap.Error(err))
		m.Response.WriteErrorResponse(w, err)
		return
	}

	if len(samples) == 0 {
		m.Response.WriteErrorResponseWithStatusCode(w, ErrNoMetricsAvailable, http.StatusNotFound)
		return
	}

	m.Response.WriteResultResponse(w, samples[0])
}

// GetMetricsHandler serves /api/metrics/{limit}/{offset}. The time range comes
// from the start/end query parameters on GET or from a MetricsRequest body on POST.
func (m *Metrics) GetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		m.logger.Error("method not allowed", zap.String("method", r.Method))
		m.Response.WriteErrorResponseWithStatusCode(w, errors.New("method Not Allowed. Only GET and POST requests are supported"), http.StatusMethodNotAllowed)
		return
	}

	routeParamValue := mux.Vars(r)

	limit, err := strconv.Atoi(routeParamValue["limit"])
	if err != nil {
		m.logger.Error("while getting limit from URL", zap.Error(err))
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	offset, err := strconv.Atoi(routeParamValue["offset"])
	if err != nil {
		m.logger.Error("while getting offset from URL", zap.Error(err))
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidParameters, http.StatusBadRequest)
		return
	}

	var reqBody MetricsRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			m.logger.Error("unmarshalling JSON body", zap.Error(err))
			m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
			return
		}
	} else {
		reqBody.Start = r.URL.Query().Get("start")
		reqBody.End = r.URL.Query().Get("end")
	}

	start, end, err := parseRange(reqBody, time.Now())
	if err != nil {
		m.logger.Error("invalid time range", zap.String("start", reqBody.Start), zap.String("end", reqBody.End), zap.Error(err))
		m.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusBadRequest)
		return
	}

	if limit <= 0 {
		limit = defaultRangeLimit
	}
	if offset < 0 {
		offset = 0
	}

	fetched, err := m.store.GetSamples(r.Context(), start, end, limit, offset)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Warn("context cancelled")
			m.Response.WriteErrorResponseWithStatusCode(w, ErrRequestCancelled, http.StatusRequestTimeout)
			return
		}
		m.logger.Error("while GetSamples()", zap.Error(err))
		m.Response.WriteErrorResponse(w, err)
		return
	}

	if len(fetched) == 0 {
		m.logger.Warn("insufficient metrics data")
		m.Response.WriteErrorResponseWithStatusCode(w, ErrNoMetricsAvailable, http.StatusNotFound)
		return
	}

	m.Response.WriteResultResponse(w, fetched)
}

// HealthHandler answers liveness probes.
func (m *Metrics) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRange normalises the requested range to the UTC RFC 3339 form the
// collector stores, defaulting to the last 24 hours.
func parseRange(req MetricsRequest, now time.Time) (string, string, error) {
	end := now.UTC()
	if req.End != "" {
		t, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			return "", "", ErrInvalidParameters
		}
		end = t.UTC()
	}

	start := end.Add(-24 * time.Hour)
	if req.Start != "" {
		t, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			return "", "", ErrInvalidParameters
		}
		start = t.UTC()
	}

	if start.After(end) {
		return "", "", ErrInvalidTimeRange
	}

	return start.Format(time.RFC3339), end.Format(time.RFC3339), nil
}
