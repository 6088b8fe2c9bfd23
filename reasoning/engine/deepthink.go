// Package engine implements the DeepThink and UltraThink reasoning
// orchestrators: propose->verify->correct for a single agent, and
// plan->fan-out->synthesize across several.
package engine

import (
	"context"
	"time"

	"github.com/BaSui01/agentflow/reasoning/cache"
	"github.com/BaSui01/agentflow/reasoning/meter"
	"github.com/BaSui01/agentflow/reasoning/messages"
	"github.com/BaSui01/agentflow/reasoning/observability"
	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/reasoning/ratelimit"
	"github.com/BaSui01/agentflow/reasoning/verify"
	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
)

// EventSink receives progress notifications. It MUST NOT block or
// panic; a panicking sink is recovered and swallowed, mirroring the
// original engine's best-effort on_progress callback.
type EventSink func(event string, payload map[string]any)

// ModelStages overrides the backend model per call stage
// (initial/verification/correction/summary for DeepThink; planning/
// synthesis/summary for UltraThink). A stage missing from the map falls
// back to the engine's base model.
type ModelStages map[string]string

// DeepThinkConfig holds everything about a DeepThink run except the
// problem itself and the shared collaborators (meter/cache/limiter),
// which are passed to NewDeepThink directly since they're typically
// scoped to the whole request, not one engine.
type DeepThinkConfig struct {
	Model                           string
	MaxIterations                   int
	RequiredSuccessfulVerifications int
	MaxErrorsBeforeGiveUp           int
	ModelStages                     ModelStages
	EnableParallelCheck             bool
	LLMParams                       map[string]any
	CallThrottle                    time.Duration
	RateLimitTimeout                time.Duration
	RateLimitStrategy               ratelimit.Strategy
}

// DefaultDeepThinkConfig mirrors the original dataclass defaults.
func DefaultDeepThinkConfig() DeepThinkConfig {
	return DeepThinkConfig{
		MaxIterations:                   20,
		RequiredSuccessfulVerifications: 3,
		MaxErrorsBeforeGiveUp:           10,
		RateLimitStrategy:               ratelimit.StrategyWait,
	}
}

// VerificationLog is one verify.Record plus the iteration it belongs to,
// matching the original's flat verification_logs list element shape
// (the iteration index is implicit there via list position; we keep it
// implicit too and expose the slice in the same order).
type VerificationLog = verify.Record

// DeepThinkResult is the §3 EngineResult(DeepThink) shape.
type DeepThinkResult struct {
	Mode                    string            `json:"mode"`
	Iterations              int               `json:"iterations"`
	SuccessfulVerifications int               `json:"successful_verifications"`
	VerificationLogs        []VerificationLog `json:"verification_logs"`
	FinalSolution           string            `json:"final_solution"`
	Summary                 string            `json:"summary"`
}

// DeepThink is a single-agent iterative solver: propose, verify,
// correct on failure, repeat until enough successes or the iteration/
// error budget runs out, then summarize.
type DeepThink struct {
	Provider         provider.Provider
	Config           DeepThinkConfig
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

// NewDeepThink builds a DeepThink engine. meter/fingerprint/store/
// limiter/logger may be nil: a nil meter/fingerprint/store disables the
// corresponding feature (no usage recording, no prefix-cache anchoring);
// a nil limiter skips rate limiting entirely (only the call throttle, if
// any, applies); a nil logger becomes zap.NewNop().
func NewDeepThink(p provider.Provider, cfg DeepThinkConfig, problem string, history []types.Message, knowledge string) *DeepThink {
	logger := zap.NewNop()
	return &DeepThink{
		Provider:         p,
		Config:           cfg,
		ProblemStatement: problem,
		History:          history,
		KnowledgeContext: knowledge,
		Logger:           logger,
	}
}

func (d *DeepThink) emit(event string, payload map[string]any) {
	if d.OnProgress == nil {
		return
	}
	defer func() { _ = recover() }()
	d.OnProgress(event, payload)
}

func (d *DeepThink) stageModel(stage string) string {
	if d.Config.ModelStages != nil {
		if m, ok := d.Config.ModelStages[stage]; ok && m != "" {
			return m
		}
	}
	return d.Config.Model
}

func (d *DeepThink) rateLimitKey(stage string) string {
	return ratelimit.MakeKey(d.Provider.Name(), d.stageModel(stage))
}

// callLLM is the shared entry point for every stage: it acquires the
// rate limiter (or sleeps the call throttle when no limiter is wired),
// dispatches to Response or Chat per capability, records usage, and
// evicts a stale prefix-cache entry when the failure looks like a
// rejected previous_response_id.
func (d *DeepThink) callLLM(ctx context.Context, msgs []types.Message, store bool, previousResponseID, stage, fingerprintKey string) (result *provider.CallResult, err error) {
	callStart := time.Now()
	ctx, span := d.Metrics.StartCall(ctx, stage, d.Provider.Name(), d.stageModel(stage))
	defer func() { d.Metrics.EndCall(ctx, span, stage, time.Since(callStart), err) }()

	if d.Limiter != nil {
		if err := d.Limiter.Acquire(ctx, d.rateLimitKey(stage), 1.0, d.Config.RateLimitStrategy, d.Config.RateLimitTimeout); err != nil {
			return nil, err
		}
	} else if d.Config.CallThrottle > 0 {
		select {
		case <-time.After(d.Config.CallThrottle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var res *provider.CallResult
	if d.Provider.Capabilities().SupportsResponses {
		res, err = d.Provider.Response(ctx, provider.ResponseRequest{
			Model:              d.stageModel(stage),
			InputMessages:      msgs,
			Store:              store,
			PreviousResponseID: previousResponseID,
			Extra:              d.Config.LLMParams,
		})
	} else {
		res, err = d.Provider.Chat(ctx, provider.ChatRequest{
			Model:    d.stageModel(stage),
			Messages: msgs,
			Extra:    d.Config.LLMParams,
		})
	}

	if err != nil {
		if d.Store != nil && fingerprintKey != "" && previousResponseID != "" {
			cache.EvictOnRejectedID(ctx, d.Store, fingerprintKey, provider.IsStaleResponseID(err))
		}
		return nil, err
	}

	if d.Meter != nil {
		usage := res.Usage
		if usage.TotalTokens() == 0 && d.Estimator != nil {
			if est, estErr := d.Estimator.EstimateUsage(messages.JoinText(msgs), messages.ExtractText(res)); estErr == nil {
				usage = est
			}
		}
		if recErr := d.Meter.Record(d.Provider.Name(), d.stageModel(stage), usage); recErr != nil {
			return nil, recErr
		}
	}
	return res, nil
}

// verifySolution runs the LLM verdict and, when EnableParallelCheck is
// set, an arithmetic sanity check concurrently, aggregating per §4.3's
// rule: good iff verdict == pass AND arith != false.
func (d *DeepThink) verifySolution(ctx context.Context, problemText, solutionText string) (*verify.Record, bool, error) {
	if !d.Config.EnableParallelCheck || d.ArithBackend == nil {
		rec, err := verify.Verify(ctx, d.Provider, d.stageModel("verification"), problemText, solutionText, d.Config.LLMParams)
		if err != nil {
			return nil, false, err
		}
		return rec, verify.IsGood(rec), nil
	}

	type arithResult struct{ good *bool }
	arithCh := make(chan arithResult, 1)
	go func() {
		candidates := verify.ExtractCandidateExpressions(solutionText)
		var result *bool
		for _, c := range candidates {
			if r := d.ArithBackend.Evaluate(c); r != nil {
				result = r
				break
			}
		}
		arithCh <- arithResult{good: result}
	}()

	rec, err := verify.Verify(ctx, d.Provider, d.stageModel("verification"), problemText, solutionText, d.Config.LLMParams)
	if err != nil {
		<-arithCh
		return nil, false, err
	}
	arith := (<-arithCh).good
	rec.Arith = arith
	good := verify.IsGood(rec)
	return rec, good, nil
}

// Run executes the propose->verify->correct loop described in §4.2 and
// returns the complete record. A provider error of any kind aborts the
// run without partial results, matching the original's fail-fast
// philosophy for this layer.
func (d *DeepThink) Run(ctx context.Context) (result *DeepThinkResult, err error) {
	runStart := time.Now()
	ctx, span := d.Metrics.StartRun(ctx, "deep-think", d.Config.Model)
	defer func() { d.Metrics.EndRun(ctx, span, "deep-think", time.Since(runStart), err) }()

	successes := 0
	errorsCount := 0
	var solutionText string
	var verifications []VerificationLog

	system := buildSystemWithKnowledge(deepThinkInitialPrompt, d.KnowledgeContext)
	msgs := make([]types.Message, 0, len(d.History)+2)
	msgs = append(msgs, types.NewSystemMessage(system))
	msgs = append(msgs, d.History...)
	msgs = append(msgs, types.NewUserMessage(d.ProblemStatement))
	msgs = messages.EnsureMessages(msgs)

	var fingerprintKey, prevID string
	if d.Fingerprint != nil {
		key, err := d.Fingerprint.ComputeKey(d.Provider.Name(), d.stageModel("initial"), system, d.KnowledgeContext, messages.HistoryForCacheKey(d.History), d.Config.LLMParams)
		if err != nil {
			return nil, err
		}
		fingerprintKey = key
		if d.Store != nil {
			if id, ok := d.Store.Get(ctx, fingerprintKey); ok {
				prevID = id
			}
		}
	}

	d.emit("thinking", map[string]any{"phase": "initial"})
	res, err := d.callLLM(ctx, msgs, true, prevID, "initial", fingerprintKey)
	if err != nil {
		return nil, err
	}
	if res.ResponseID != "" && d.Store != nil && fingerprintKey != "" {
		d.Store.Set(ctx, fingerprintKey, res.ResponseID, 0)
	}
	solutionText = messages.ExtractText(res)
	d.emit("solution", map[string]any{"iteration": 0})

	rec, good, err := d.verifySolution(ctx, d.ProblemStatement, solutionText)
	if err != nil {
		return nil, err
	}
	verifications = append(verifications, *rec)
	if good {
		successes++
	}

	iteration := 1
	for iteration < d.Config.MaxIterations && successes < d.Config.RequiredSuccessfulVerifications && errorsCount < d.Config.MaxErrorsBeforeGiveUp {
		correctionMsgs := messages.EnsureMessages([]types.Message{
			types.NewSystemMessage(deepThinkCorrectPrompt),
			types.NewUserMessage("Problem:\n" + d.ProblemStatement + "\n\nPrevious solution:\n" + solutionText +
				"\n\nVerifier feedback:\n" + string(rec.Verdict)),
		})
		d.emit("thinking", map[string]any{"phase": "correction", "iteration": iteration})
		res2, err := d.callLLM(ctx, correctionMsgs, false, "", "correction", "")
		if err != nil {
			return nil, err
		}
		if newSolution := messages.ExtractText(res2); newSolution != "" {
			solutionText = newSolution
		}

		rec, good, err = d.verifySolution(ctx, d.ProblemStatement, solutionText)
		if err != nil {
			return nil, err
		}
		verifications = append(verifications, *rec)
		if good {
			successes++
			errorsCount = 0
		} else {
			errorsCount++
		}
		iteration++
	}

	summaryRes, err := d.callLLM(ctx, []types.Message{types.NewUserMessage(buildFinalSummaryPrompt(d.ProblemStatement, solutionText))}, false, "", "summary", "")
	if err != nil {
		return nil, err
	}
	summaryText := messages.ExtractText(summaryRes)

	return &DeepThinkResult{
		Mode:                    "deep-think",
		Iterations:              iteration,
		SuccessfulVerifications: successes,
		VerificationLogs:        verifications,
		FinalSolution:           solutionText,
		Summary:                 summaryText,
	}, nil
}
