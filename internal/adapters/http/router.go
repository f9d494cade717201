package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/config"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
	"github.com/laurentvv/haproxy-docs-rag/internal/observability/metrics"
)

const serviceName = "api"

// backpressureWait bounds how long a request may queue for an in-flight
// slot before the gate sheds it.
const backpressureWait = 100 * time.Millisecond

type Router struct {
	retriever ports.Retriever
	metrics   *metrics.HTTPServerMetrics
	cfg       config.Config
	validate  func(http.Handler) http.Handler
}

func NewRouter(
	retriever ports.Retriever,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg config.Config,
) (*Router, error) {
	validate, err := newOpenAPIValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		retriever: retriever,
		metrics:   serverMetrics,
		cfg:       cfg,
		validate:  validate,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/retrieve", rt.validate(http.HandlerFunc(rt.retrieve)))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrentRetrieves, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RequestsPerSecond, rt.cfg.RequestBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(
			serviceName,
			len(result.Passages),
			result.LowConfidence,
			result.DegradedStages,
			time.Since(start),
		)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
