package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/BaSui01/agentflow/reasoning/cache"
	"github.com/BaSui01/agentflow/reasoning/config"
	"github.com/BaSui01/agentflow/reasoning/engine"
	"github.com/BaSui01/agentflow/reasoning/meter"
	"github.com/BaSui01/agentflow/reasoning/observability"
	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/reasoning/ratelimit"
	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
)

// Deps are the collaborators a Handler shares across requests: the
// provider registry, the model resolver/pricing table loaded at
// startup (see reasoning/config), and the rate-limit registry and
// response-id store, both of which are intentionally process-lifetime
// (§3: "shared TokenMeter/PrefixCache/rate-limiter owned by the
// request-handler boundary, not per-call").
type Deps struct {
	Registry *provider.Registry
	Resolver *config.ModelResolver
	Pricing  meter.PricingTable
	Limiter  *ratelimit.Registry
	Store    cache.ResponseIDStore
	Logger   *zap.Logger

	// Metrics is optional: a nil Metrics disables run/call
	// instrumentation entirely rather than panicking.
	Metrics *observability.Metrics

	// Estimator is optional: a nil Estimator means a provider whose
	// usage payload omits counts contributes zero to the meter, exactly
	// as before this field existed.
	Estimator *meter.TokenEstimator
}

// Handler exposes HandleDeepThink and HandleUltraThink over net/http.
// It decodes the §6 request body, resolves the model, constructs the
// per-request engine with the shared collaborators from Deps, runs it,
// and writes the §6 response shape.
type Handler struct {
	deps Deps
}

// NewHandler builds a Handler. A nil Logger becomes zap.NewNop().
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{deps: deps}
}

func (h *Handler) resolveProvider(model string) (provider.Provider, string, string, *types.Error) {
	providerName, backendModel, ok := h.deps.Resolver.Resolve(model)
	if !ok {
		providerName, backendModel = "", model
	}
	if providerName == "" {
		return nil, "", "", types.NewError(types.ErrReasoningInvalidRequest, "model "+model+" does not resolve to a known provider").WithHTTPStatus(400)
	}
	p, found := h.deps.Registry.Get(providerName)
	if !found {
		return nil, "", "", types.NewError(types.ErrReasoningNotFound, "provider "+providerName+" is not registered").WithHTTPStatus(404)
	}
	return p, providerName, backendModel, nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*ReasoningRequest, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeTypedError(w, types.NewError(types.ErrReasoningInvalidRequest, "Content-Type must be application/json").WithHTTPStatus(400), logger)
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ReasoningRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeTypedError(w, types.NewError(types.ErrReasoningInvalidRequest, "invalid JSON body").WithCause(err).WithHTTPStatus(400), logger)
		return nil, false
	}
	if req.Model == "" || req.Problem == "" {
		writeTypedError(w, types.NewError(types.ErrReasoningInvalidRequest, "model and problem are required").WithHTTPStatus(400), logger)
		return nil, false
	}
	return &req, true
}

func toHistory(entries []HistoryMessage) []types.Message {
	out := make([]types.Message, len(entries))
	for i, e := range entries {
		out[i] = types.Message{Role: types.Role(e.Role), Content: e.Content}
	}
	return out
}

// applyRateLimitOverride configures the shared limiter registry for the
// per-request bucket key when the caller supplied one, so later calls
// on the same key reuse the same bucket/window state rather than
// resetting it every request.
func (h *Handler) applyRateLimitOverride(key string, rl *RateLimitOverride) {
	if rl == nil || h.deps.Limiter == nil {
		return
	}
	if rl.BucketKey != "" {
		key = rl.BucketKey
	}
	if rl.QPS > 0 || rl.Burst > 0 {
		h.deps.Limiter.ConfigureBucket(key, rl.QPS, rl.Burst)
	}
	if rl.WindowLimit > 0 {
		window := time.Duration(rl.WindowSeconds * float64(time.Second))
		h.deps.Limiter.ConfigureWindow(key, rl.WindowLimit, window)
	}
}

func rateLimitStrategy(rl *RateLimitOverride) ratelimit.Strategy {
	if rl != nil && rl.Strategy == "fail" {
		return ratelimit.StrategyFail
	}
	return ratelimit.StrategyWait
}

func rateLimitTimeout(rl *RateLimitOverride) time.Duration {
	if rl == nil || rl.Timeout <= 0 {
		return 0
	}
	return time.Duration(rl.Timeout * float64(time.Second))
}

// HandleDeepThink serves POST /reasoning/deepthink.
func (h *Handler) HandleDeepThink(w http.ResponseWriter, r *http.Request) {
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

	res, err := dt.Run(r.Context())
	if err != nil {
		writeEngineError(w, err, h.deps.Logger)
		return
	}

	writeJSON(w, http.StatusOK, ReasoningResponse{
		Result:        res,
		Usage:         m.Usage("", ""),
		CostUSD:       m.BuildSummary().TotalCostUSD,
		DetailedUsage: m.DetailedUsage(),
	})
}

// HandleUltraThink serves POST /reasoning/ultrathink.
func (h *Handler) HandleUltraThink(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r, h.deps.Logger)
	if !ok {
		return
	}

	p, providerName, backendModel, terr := h.resolveProvider(req.Model)
	if terr != nil {
		writeTypedError(w, terr, h.deps.Logger)
		return
	}

	cfg := engine.DefaultUltraThinkConfig()
	cfg.Model = backendModel
	cfg.LLMParams = req.LLMParams
	if req.NumAgents != nil {
		cfg.NumAgents = *req.NumAgents
	}
	if req.ParallelAgents != nil {
		cfg.ParallelAgents = *req.ParallelAgents
	}
	if req.MaxIterations != nil {
		cfg.MaxIterationsPerAgent = *req.MaxIterations
	}
	if req.RequiredVerifications != nil {
		cfg.RequiredVerificationsPerAgent = *req.RequiredVerifications
	}

	h.applyRateLimitOverride(ratelimit.MakeKey(providerName, backendModel), req.RateLimit)

	ut := engine.NewUltraThink(p, cfg, req.Problem, toHistory(req.History), req.KnowledgeContext)
	m := meter.New(h.deps.Pricing, meter.Config{}, h.deps.Logger)
	ut.Meter = m
	ut.Fingerprint = cache.NewFingerprinter()
	ut.Store = h.deps.Store
	ut.Limiter = h.deps.Limiter
	ut.Metrics = h.deps.Metrics
	ut.Estimator = h.deps.Estimator

	res, err := ut.Run(r.Context())
	if err != nil {
		writeEngineError(w, err, h.deps.Logger)
		return
	}

	writeJSON(w, http.StatusOK, ReasoningResponse{
		Result:        res,
		Usage:         m.Usage("", ""),
		CostUSD:       m.BuildSummary().TotalCostUSD,
		DetailedUsage: m.DetailedUsage(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeTypedError writes a *types.Error built by the handler itself
// (request validation, model resolution).
func writeTypedError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	writeEngineError(w, err, logger)
}

// writeEngineError translates any error an engine run can return — a
// *types.Error carrying its own HTTPStatus/Code, or an opaque error
// that becomes a 500 — into the §7 user-visible envelope.
func writeEngineError(w http.ResponseWriter, err error, logger *zap.Logger) {
	te, ok := err.(*types.Error)
	if !ok {
		te = types.NewError(types.ErrReasoningServer, "internal error").WithCause(err).WithHTTPStatus(500)
	}
	status := te.HTTPStatus
	if status == 0 {
		status = provider.HTTPStatusForCode(te.Code)
	}
	if logger != nil {
		logger.Error("reasoning request failed",
			zap.String("code", string(te.Code)),
			zap.String("message", te.Message),
			zap.Int("status", status))
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message":  te.Message,
			"type":     string(te.Code),
			"code":     string(te.Code),
			"provider": te.Provider,
		},
	})
}
