// Package api serves explorer data as JSON over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/aggregate"
	"elasticAnalytics/internal/config"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/ticks"
	"elasticAnalytics/internal/valuation"
)

// Explorer is the data the server exposes.
type Explorer interface {
	GlobalOverview(ctx context.Context) (aggregate.Results[model.GlobalData], error)
	DayData(ctx context.Context, start int64) (aggregate.Results[[]model.DayDatum], error)
	TopPools(ctx context.Context) (aggregate.Results[map[string]model.PoolData], error)
	TopTokens(ctx context.Context) (aggregate.Results[map[string]model.TokenData], error)
	PoolTicks(ctx context.Context, networkID, pool string, numSurrounding int) (*model.PoolTickData, error)
	PoolChart(ctx context.Context, networkID, pool string) ([]model.DayDatum, error)
	PoolTransactions(ctx context.Context, networkID, pool string) ([]model.Transaction, error)
	AccountSeries(ctx context.Context, networkID, account string, windowStart int64) ([]model.SeriesPoint, error)
	ResolveBlocks(ctx context.Context, networkID string, timestamps []int64) ([]model.BlockRef, error)
}

// Server routes requests to an Explorer.
type Server struct {
	explorer Explorer
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer builds a server over explorer. A nil gatherer serves the default registry on /metrics.
func NewServer(explorer Explorer, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{explorer: explorer, gatherer: gatherer, logger: logger, now: time.Now}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/v1/overview", s.handleOverview).Methods(http.MethodGet)
	r.HandleFunc("/v1/daydata", s.handleDayData).Methods(http.MethodGet)
	r.HandleFunc("/v1/pools", s.handlePools).Methods(http.MethodGet)
	r.HandleFunc("/v1/tokens", s.handleTokens).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/pools/{pool}/ticks", s.handlePoolTicks).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/pools/{pool}/chart", s.handlePoolChart).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/pools/{pool}/transactions", s.handlePoolTransactions).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/accounts/{account}/series", s.handleAccountSeries).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/blocks", s.handleBlocks).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

type resultsResponse[T any] struct {
	PerNetwork map[string]T `json:"per_network"`
	AllChains  T            `json:"all_chains"`
	Failed     []string     `json:"failed,omitempty"`
}

func toResponse[T any](res aggregate.Results[T]) resultsResponse[T] {
	failed := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	return resultsResponse[T]{PerNetwork: res.PerNetwork, AllChains: res.AllChains, Failed: failed}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	res, err := s.explorer.GlobalOverview(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleDayData(w http.ResponseWriter, r *http.Request) {
	start, err := config.ParseTimestamp(r.URL.Query().Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid start"))
		return
	}
	res, err := s.explorer.DayData(r.Context(), start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	res, err := s.explorer.TopPools(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	res, err := s.explorer.TopTokens(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) poolVars(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	vars := mux.Vars(r)
	pool, err := config.ParseAddress(vars["pool"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return "", "", false
	}
	return vars["network"], pool, true
}

func (s *Server) handlePoolTicks(w http.ResponseWriter, r *http.Request) {
	network, pool, ok := s.poolVars(w, r)
	if !ok {
		return
	}
	surrounding := ticks.DefaultSurroundingTicks
	if raw := r.URL.Query().Get("surrounding"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid surrounding"))
			return
		}
		surrounding = n
	}
	data, err := s.explorer.PoolTicks(r.Context(), network, pool, surrounding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePoolChart(w http.ResponseWriter, r *http.Request) {
	network, pool, ok := s.poolVars(w, r)
	if !ok {
		return
	}
	data, err := s.explorer.PoolChart(r.Context(), network, pool)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePoolTransactions(w http.ResponseWriter, r *http.Request) {
	network, pool, ok := s.poolVars(w, r)
	if !ok {
		return
	}
	data, err := s.explorer.PoolTransactions(r.Context(), network, pool)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAccountSeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := config.ParseAddress(vars["account"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	windowStart, err := valuation.WindowStart(r.URL.Query().Get("window"), s.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	series, err := s.explorer.AccountSeries(r.Context(), vars["network"], account, windowStart)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if series == nil {
		series = []model.SeriesPoint{}
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	raw := strings.Split(r.URL.Query().Get("timestamps"), ",")
	inputs := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			inputs = append(inputs, v)
		}
	}
	timestamps, err := config.ParseTimestamps(inputs)
	if err != nil || len(timestamps) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid timestamps"))
		return
	}
	refs, err := s.explorer.ResolveBlocks(r.Context(), mux.Vars(r)["network"], timestamps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if refs == nil {
		refs = []model.BlockRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case abort.Is(err):
		// The client is gone; nothing useful can be written.
		s.logger.Debug("request aborted", zap.String("path", r.URL.Path))
		w.WriteHeader(http.StatusServiceUnavailable)
	case errors.Is(err, aggregate.ErrUnknownNetwork):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, ticks.ErrUnknownFeeTier):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
