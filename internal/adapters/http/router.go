package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
	"github.com/ovolkov/fund-insight/internal/core/usecase"
	"github.com/ovolkov/fund-insight/internal/observability/metrics"
)

type Router struct {
	service    string
	answerUC   *usecase.AnswerAssembler
	registerUC *usecase.RegisterSnapshotUseCase
	aggregates *usecase.AggregateEngine
	repo       ports.SnapshotRepository
	metrics    *metrics.HTTPServerMetrics
	ready      func() bool
}

func NewRouter(
	service string,
	answerUC *usecase.AnswerAssembler,
	registerUC *usecase.RegisterSnapshotUseCase,
	aggregates *usecase.AggregateEngine,
	repo ports.SnapshotRepository,
	serverMetrics *metrics.HTTPServerMetrics,
	ready func() bool,
) *Router {
	return &Router{
		service:    service,
		answerUC:   answerUC,
		registerUC: registerUC,
		aggregates: aggregates,
		repo:       repo,
		metrics:    serverMetrics,
		ready:      ready,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/snapshots", rt.uploadSnapshot)
	mux.HandleFunc("/v1/snapshots/", rt.getSnapshotByID)
	mux.HandleFunc("/v1/funds/", rt.getFundSummary)

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	if rt.ready != nil && !rt.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerUC.Answer(r.Context(), req.Question, req.TopK)
	rt.metrics.RecordQuery(rt.service, string(answer.QueryType), time.Since(start))
	if answer.QueryType == domain.QueryClassSpecific && err == nil {
		rt.metrics.RecordRetrievedChunks(rt.service, answer.RetrievedChunks)
	}
	if answer.GenerationTime > 0 {
		rt.metrics.RecordGeneration(rt.service, answer.GenerationTime)
	}
	slog.Debug("query answered",
		"request_id", requestIDFromContext(r.Context()),
		"query_type", answer.QueryType,
		"retrieved_chunks", answer.RetrievedChunks,
		"generation_ms", answer.GenerationTime.Milliseconds(),
	)
	if err != nil {
		// The refusal is a complete, well-formed answer: no-data comes back
		// as 200 with the refusal payload, anything else maps to a status.
		if domain.IsKind(err, domain.ErrNoData) {
			rt.metrics.RecordNoContext(rt.service, string(answer.QueryType))
			writeJSON(w, http.StatusOK, answer)
			return
		}
		writeJSON(w, mapErrorToHTTPStatus(err), answer)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) uploadSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	holdings, holdingsHeader, err := r.FormFile("holdings")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'holdings' is required"})
		return
	}
	defer holdings.Close()

	trades, tradesHeader, err := r.FormFile("trades")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'trades' is required"})
		return
	}
	defer trades.Close()

	snap, err := rt.registerUC.Register(
		r.Context(),
		holdingsHeader.Filename, holdings,
		tradesHeader.Filename, trades,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (rt *Router) getSnapshotByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/snapshots/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "snapshot id is required"})
		return
	}

	snap, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (rt *Router) getFundSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	fund := strings.TrimPrefix(r.URL.Path, "/v1/funds/")
	if fund == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fund name is required"})
		return
	}

	summary, err := rt.aggregates.FundSummary(fund)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoData) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fund": fund, "summary": summary})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
