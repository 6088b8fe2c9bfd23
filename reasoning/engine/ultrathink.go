package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentflow/reasoning/cache"
	"github.com/BaSui01/agentflow/reasoning/meter"
	"github.com/BaSui01/agentflow/reasoning/messages"
	"github.com/BaSui01/agentflow/reasoning/observability"
	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/reasoning/ratelimit"
	"github.com/BaSui01/agentflow/reasoning/verify"
	"github.com/BaSui01/agentflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// UltraThinkConfig holds everything about an UltraThink run except the
// problem itself and the shared collaborators.
type UltraThinkConfig struct {
	Model                         string
	NumAgents                     int
	MaxIterationsPerAgent         int
	RequiredVerificationsPerAgent int
	ParallelAgents                int
	ModelStages                   ModelStages
	EnableParallelCheck           bool
	LLMParams                     map[string]any
	RateLimitTimeout              time.Duration
	RateLimitStrategy             ratelimit.Strategy

	// StrictAgentConfigs resolves §9 Open Question 1: when false
	// (default, matching historical behavior), an unparseable agent-
	// config generation falls back to NumAgents synthetic configs and
	// logs a warning; when true, it returns an invalid_request error
	// instead of fabricating configs.
	StrictAgentConfigs bool
}

// DefaultUltraThinkConfig mirrors the original dataclass defaults.
func DefaultUltraThinkConfig() UltraThinkConfig {
	return UltraThinkConfig{
		NumAgents:                     3,
		MaxIterationsPerAgent:         10,
		RequiredVerificationsPerAgent: 2,
		RateLimitStrategy:             ratelimit.StrategyWait,
	}
}

// AgentConfig is one parsed or synthesized per-agent specification.
type AgentConfig struct {
	AgentID         string         `json:"agentId"`
	Approach        string         `json:"approach"`
	SpecificPrompt  string         `json:"specificPrompt"`
	Model           string         `json:"model,omitempty"`
	LLMParams       map[string]any `json:"llm_params,omitempty"`
	QPS             float64        `json:"qps,omitempty"`
	ThrottleSeconds float64        `json:"throttleSeconds,omitempty"`
}

// AgentResult pairs one agent's id with its DeepThink record.
type AgentResult struct {
	AgentID string          `json:"agent_id"`
	Result  DeepThinkResult `json:"result"`
}

// UltraThinkResult is the §3 EngineResult(UltraThink) shape.
type UltraThinkResult struct {
	Mode         string        `json:"mode"`
	Plan         string        `json:"plan"`
	NumAgents    int           `json:"num_agents"`
	AgentResults []AgentResult `json:"agent_results"`
	Synthesis    string        `json:"synthesis"`
	Summary      string        `json:"summary"`
}

// UltraThink is the multi-agent orchestrator: plan, generate diverse
// agent configurations, run one DeepThink engine per agent under a
// concurrency cap, synthesize the agent solutions, then summarize.
type UltraThink struct {
	Provider         provider.Provider
	Config           UltraThinkConfig
	ProblemStatement string
	History          []types.Message
	KnowledgeContext string

	Meter        *meter.Meter
	Estimator    *meter.TokenEstimator
	Fingerprint  *cache.Fingerprinter
	Store        cache.ResponseIDStore
	Limiter      *ratelimit.Registry
	ArithBackend verify.SanityCheckBackend
	Metrics      *observability.Metrics

	OnProgress EventSink
	Logger     *zap.Logger
}

// NewUltraThink builds an UltraThink engine with zap.NewNop() as the
// default logger; every other collaborator defaults to nil (feature
// disabled) just like NewDeepThink.
func NewUltraThink(p provider.Provider, cfg UltraThinkConfig, problem string, history []types.Message, knowledge string) *UltraThink {
	return &UltraThink{
		Provider:         p,
		Config:           cfg,
		ProblemStatement: problem,
		History:          history,
		KnowledgeContext: knowledge,
		Logger:           zap.NewNop(),
	}
}

func (u *UltraThink) emit(event string, payload map[string]any) {
	if u.OnProgress == nil {
		return
	}
	defer func() { _ = recover() }()
	u.OnProgress(event, payload)
}

func (u *UltraThink) stageModel(stage string) string {
	if u.Config.ModelStages != nil {
		if m, ok := u.Config.ModelStages[stage]; ok && m != "" {
			return m
		}
	}
	return u.Config.Model
}

// callLLM is the planning/synthesis/summary entry point — unlike
// DeepThink's callLLM, these stages never use the Responses API or
// prefix caching; they're one-shot calls with no correction loop.
func (u *UltraThink) callLLM(ctx context.Context, msgs []types.Message, stage string) (result *provider.CallResult, err error) {
	callStart := time.Now()
	ctx, span := u.Metrics.StartCall(ctx, stage, u.Provider.Name(), u.stageModel(stage))
	defer func() { u.Metrics.EndCall(ctx, span, stage, time.Since(callStart), err) }()

	if u.Limiter != nil {
		key := ratelimit.MakeKey(u.Provider.Name(), u.stageModel(stage))
		if err := u.Limiter.Acquire(ctx, key, 1.0, u.Config.RateLimitStrategy, u.Config.RateLimitTimeout); err != nil {
			return nil, err
		}
	}
	res, err := u.Provider.Chat(ctx, provider.ChatRequest{
		Model:    u.stageModel(stage),
		Messages: messages.EnsureMessages(msgs),
		Extra:    u.Config.LLMParams,
	})
	if err != nil {
		return nil, err
	}
	if u.Meter != nil {
		usage := res.Usage
		if usage.TotalTokens() == 0 && u.Estimator != nil {
			if est, estErr := u.Estimator.EstimateUsage(messages.JoinText(msgs), messages.ExtractText(res)); estErr == nil {
				usage = est
			}
		}
		if recErr := u.Meter.Record(u.Provider.Name(), u.stageModel(stage), usage); recErr != nil {
			return nil, recErr
		}
	}
	return res, nil
}

func (u *UltraThink) generatePlan(ctx context.Context) (string, error) {
	u.emit("planning", map[string]any{"phase": "generate_plan"})
	msgs := []types.Message{
		types.NewSystemMessage(ultraThinkPlanPrompt),
		types.NewUserMessage(u.ProblemStatement),
	}
	res, err := u.callLLM(ctx, msgs, "planning")
	if err != nil {
		return "", err
	}
	plan := messages.ExtractText(res)
	u.emit("plan_generated", map[string]any{"plan": plan})
	return plan, nil
}

func (u *UltraThink) generateAgentConfigs(ctx context.Context, plan string) ([]AgentConfig, error) {
	u.emit("planning", map[string]any{"phase": "generate_agents"})
	msgs := []types.Message{
		types.NewSystemMessage(generateAgentConfigsPrompt),
		types.NewUserMessage(fmt.Sprintf("Plan:\n%s\n\nProblem:\n%s", plan, u.ProblemStatement)),
	}
	res, err := u.callLLM(ctx, msgs, "planning")
	if err != nil {
		return nil, err
	}
	configText := messages.ExtractText(res)

	configs, parseErr := parseAgentConfigs(configText)
	if parseErr != nil {
		if u.Config.StrictAgentConfigs {
			return nil, types.NewError(types.ErrReasoningInvalidRequest, "agent config generation unparseable: "+parseErr.Error())
		}
		u.Logger.Warn("agent config generation unparseable, falling back to synthetic configs",
			zap.String("raw_text", configText), zap.Error(parseErr))
		configs = syntheticAgentConfigs(u.Config.NumAgents)
	}
	configs = disambiguateAgentIDs(configs)

	u.emit("agents_configured", map[string]any{"num_agents": len(configs)})
	return configs, nil
}

// disambiguateAgentIDs fills in a missing agentId and breaks ties
// between duplicates (the model is free-form about agentId, and
// nothing stops it from reusing one across entries) by appending a
// short uuid suffix, so AgentResult/OnProgress's "agent_id" always
// identifies exactly one agent.
func disambiguateAgentIDs(configs []AgentConfig) []AgentConfig {
	seen := make(map[string]bool, len(configs))
	for i, c := range configs {
		id := c.AgentID
		if id == "" || seen[id] {
			id = fmt.Sprintf("agent-%d-%s", i+1, uuid.NewString()[:8])
		}
		seen[id] = true
		configs[i].AgentID = id
	}
	return configs
}

func parseAgentConfigs(text string) ([]AgentConfig, error) {
	text = strings.TrimSpace(text)
	if start := strings.IndexByte(text, '['); start >= 0 {
		if end := strings.LastIndexByte(text, ']'); end >= start {
			text = text[start : end+1]
		}
	}
	var configs []AgentConfig
	if err := json.Unmarshal([]byte(text), &configs); err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("agent config array is empty")
	}
	return configs, nil
}

func syntheticAgentConfigs(numAgents int) []AgentConfig {
	configs := make([]AgentConfig, 0, numAgents)
	for i := 1; i <= numAgents; i++ {
		configs = append(configs, AgentConfig{
			AgentID:        fmt.Sprintf("agent-%d", i),
			Approach:       fmt.Sprintf("Approach %d", i),
			SpecificPrompt: fmt.Sprintf("Solve using method %d", i),
		})
	}
	return configs
}

// runAgent augments the problem with the agent's specific guidance and
// runs a full DeepThink engine for it, inheriting the shared token
// meter and prefix cache.
func (u *UltraThink) runAgent(ctx context.Context, cfg AgentConfig) (AgentResult, error) {
	u.emit("agent_start", map[string]any{"agent_id": cfg.AgentID})

	augmented := u.ProblemStatement + "\n\n### Agent Guidance ###\n" + cfg.SpecificPrompt

	model := cfg.Model
	if model == "" {
		model = u.Config.Model
	}
	mergedParams := make(map[string]any, len(u.Config.LLMParams)+len(cfg.LLMParams))
	for k, v := range u.Config.LLMParams {
		mergedParams[k] = v
	}
	for k, v := range cfg.LLMParams {
		mergedParams[k] = v
	}

	throttle := agentThrottle(cfg)

	dt := &DeepThink{
		Provider:         u.Provider,
		ProblemStatement: augmented,
		History:          u.History,
		KnowledgeContext: u.KnowledgeContext,
		Meter:            u.Meter,
		Estimator:        u.Estimator,
		Fingerprint:      u.Fingerprint,
		Store:            u.Store,
		Limiter:          u.Limiter,
		ArithBackend:     u.ArithBackend,
		Metrics:          u.Metrics,
		Logger:           u.Logger,
		Config: DeepThinkConfig{
			Model:                            model,
			MaxIterations:                    u.Config.MaxIterationsPerAgent,
			RequiredSuccessfulVerifications:  u.Config.RequiredVerificationsPerAgent,
			MaxErrorsBeforeGiveUp:            deepThinkDefaultMaxErrors,
			ModelStages:                      u.Config.ModelStages,
			EnableParallelCheck:              u.Config.EnableParallelCheck,
			LLMParams:                        mergedParams,
			CallThrottle:                     throttle,
			RateLimitTimeout:                 u.Config.RateLimitTimeout,
			RateLimitStrategy:                u.Config.RateLimitStrategy,
		},
		OnProgress: func(event string, payload map[string]any) {
			merged := make(map[string]any, len(payload)+1)
			for k, v := range payload {
				merged[k] = v
			}
			merged["agent_id"] = cfg.AgentID
			u.emit("agent_progress", merged)
		},
	}

	result, err := dt.Run(ctx)
	if err != nil {
		return AgentResult{}, err
	}
	u.emit("agent_complete", map[string]any{"agent_id": cfg.AgentID})
	return AgentResult{AgentID: cfg.AgentID, Result: *result}, nil
}

// deepThinkDefaultMaxErrors is the give-up budget for agents spawned by
// UltraThink; the original does not expose a per-agent override for it.
const deepThinkDefaultMaxErrors = 10

func agentThrottle(cfg AgentConfig) time.Duration {
	if cfg.QPS > 0 {
		return time.Duration(float64(time.Second) / cfg.QPS)
	}
	if cfg.ThrottleSeconds > 0 {
		return time.Duration(cfg.ThrottleSeconds * float64(time.Second))
	}
	return 0
}

func (u *UltraThink) synthesizeResults(ctx context.Context, results []AgentResult) (string, error) {
	u.emit("synthesis", map[string]any{"phase": "synthesize"})

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("### %s ###\n%s", r.AgentID, r.Result.FinalSolution))
	}
	solutionsText := strings.Join(parts, "\n\n---\n\n")

	msgs := []types.Message{
		types.NewSystemMessage(synthesizeResultsPrompt),
		types.NewUserMessage(fmt.Sprintf("Problem:\n%s\n\nAgent Solutions:\n%s", u.ProblemStatement, solutionsText)),
	}
	res, err := u.callLLM(ctx, msgs, "synthesis")
	if err != nil {
		return "", err
	}
	synthesis := messages.ExtractText(res)
	u.emit("synthesis_complete", map[string]any{})
	return synthesis, nil
}

// Run executes the §4.4 algorithm: plan, agent configs, bounded-
// parallel DeepThink per agent, synthesis, summary. Agent fan-out uses
// errgroup so the first failing agent aborts its siblings and Run
// returns that error — matching the original's asyncio.gather default
// (fail-fast, no partial results).
func (u *UltraThink) Run(ctx context.Context) (result *UltraThinkResult, err error) {
	runStart := time.Now()
	ctx, span := u.Metrics.StartRun(ctx, "ultra-think", u.Config.Model)
	defer func() { u.Metrics.EndRun(ctx, span, "ultra-think", time.Since(runStart), err) }()

	plan, err := u.generatePlan(ctx)
	if err != nil {
		return nil, err
	}

	configs, err := u.generateAgentConfigs(ctx, plan)
	if err != nil {
		return nil, err
	}

	u.emit("agents_running", map[string]any{"num_agents": len(configs)})

	parallelAgents := u.Config.ParallelAgents
	if parallelAgents <= 0 {
		parallelAgents = u.Config.NumAgents
	}
	if parallelAgents <= 0 {
		parallelAgents = 1
	}
	sem := semaphore.NewWeighted(int64(parallelAgents))

	results := make([]AgentResult, len(configs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		i, cfg := i, cfg
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			result, err := u.runAgent(groupCtx, cfg)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	synthesis, err := u.synthesizeResults(ctx, results)
	if err != nil {
		return nil, err
	}

	u.emit("summary", map[string]any{"phase": "final"})
	summaryRes, err := u.callLLM(ctx, []types.Message{types.NewUserMessage(buildFinalSummaryPrompt(u.ProblemStatement, synthesis))}, "summary")
	if err != nil {
		return nil, err
	}
	summary := messages.ExtractText(summaryRes)

	return &UltraThinkResult{
		Mode:         "ultra-think",
		Plan:         plan,
		NumAgents:    len(configs),
		AgentResults: results,
		Synthesis:    synthesis,
		Summary:      summary,
	}, nil
}
