package api

import (
	"encoding/json"
	"net/http"

	"github.com/BaSui01/agentflow/reasoning/cache"
	"github.com/BaSui01/agentflow/reasoning/engine"
	"github.com/BaSui01/agentflow/reasoning/meter"
	"github.com/BaSui01/agentflow/reasoning/ratelimit"
)

// progressEvent is one SSE frame: the engine's event name plus its
// payload, wrapped so the client doesn't need two separate parsers for
// progress frames versus the terminal result frame.
type progressEvent struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload map[string]any) {
	data, err := json.Marshal(progressEvent{Event: event, Payload: payload})
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

func writeSSEError(w http.ResponseWriter, flusher http.Flusher, err error) {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write([]byte("event: error\n"))
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

// HandleDeepThinkStream serves POST /reasoning/deepthink with
// Accept: text/event-stream, replaying the engine's progress events as
// they're emitted and closing with the final result, matching the
// chat endpoint's SSE framing conventions (data: ...\n\n, data:
// [DONE]\n\n terminal marker).
func (h *Handler) HandleDeepThinkStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeTypedErrorPlain(w, http.StatusNotImplemented, "streaming unsupported by this transport")
		return
	}

	req, ok := decodeRequest(w, r, h.deps.Logger)
	if !ok {
		return
	}
	p, providerName, backendModel, terr := h.resolveProvider(req.Model)
	if terr != nil {
		writeTypedError(w, terr, h.deps.Logger)
		return
	}

	cfg := engine.DefaultDeepThinkConfig()
	cfg.Model = backendModel
	cfg.EnableParallelCheck = req.EnableParallelCheck
	cfg.LLMParams = req.LLMParams
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}
	if req.RequiredVerifications != nil {
		cfg.RequiredSuccessfulVerifications = *req.RequiredVerifications
	}
	cfg.RateLimitStrategy = rateLimitStrategy(req.RateLimit)
	cfg.RateLimitTimeout = rateLimitTimeout(req.RateLimit)
	h.applyRateLimitOverride(ratelimit.MakeKey(providerName, backendModel), req.RateLimit)

	dt := engine.NewDeepThink(p, cfg, req.Problem, toHistory(req.History), req.KnowledgeContext)
	m := meter.New(h.deps.Pricing, meter.Config{}, h.deps.Logger)
	dt.Meter = m
	dt.Fingerprint = cache.NewFingerprinter()
	dt.Store = h.deps.Store
	dt.Limiter = h.deps.Limiter
	dt.Metrics = h.deps.Metrics
	dt.Estimator = h.deps.Estimator
	dt.OnProgress = func(event string, payload map[string]any) {
		writeSSE(w, flusher, event, payload)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	res, err := dt.Run(r.Context())
	if err != nil {
		writeSSEError(w, flusher, err)
		return
	}
	writeSSE(w, flusher, "result", map[string]any{
		"result":         res,
		"usage":          m.Usage("", ""),
		"cost_usd":       m.BuildSummary().TotalCostUSD,
		"detailed_usage": m.DetailedUsage(),
	})
	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

func writeTypedErrorPlain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
