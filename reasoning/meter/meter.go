// Package meter implements the Token Meter: usage aggregation by
// (provider, model) and in total, plus the §4.6 cost formula.
package meter

import (
	"sync"

	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
)

// Pricing holds per-million-token USD rates for one (provider, model).
// A zero-value component contributes nothing to the cost formula.
type Pricing struct {
	Prompt       float64 `yaml:"prompt"`
	CachedPrompt float64 `yaml:"cached_prompt"`
	Completion   float64 `yaml:"completion"`
	Reasoning    float64 `yaml:"reasoning"`
}

// PricingTable resolves (provider, model) -> Pricing.
type PricingTable map[string]map[string]Pricing

// Lookup returns the configured pricing, or the zero value (all
// components 0, meaning zero cost) when unconfigured.
func (t PricingTable) Lookup(providerName, model string) Pricing {
	if byModel, ok := t[providerName]; ok {
		if p, ok := byModel[model]; ok {
			return p
		}
	}
	return Pricing{}
}

// Config controls meter behavior.
type Config struct {
	// Strict promotes a usage-invariant violation (cached > input,
	// reasoning > output) from a warning to a hard error, per §9 Open
	// Question 6.
	Strict bool
}

// Meter aggregates UsageStats by (provider, model) and in total. Safe
// for concurrent Record calls from multiple agents (§5: "the meter is
// the sole shared-mutable state inside a request aside from the limiter
// and cache").
type Meter struct {
	mu      sync.Mutex
	byModel map[string]map[string]provider.UsageStats
	total   provider.UsageStats
	pricing PricingTable
	cfg     Config
	logger  *zap.Logger
}

// New creates an empty Meter.
func New(pricing PricingTable, cfg Config, logger *zap.Logger) *Meter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pricing == nil {
		pricing = PricingTable{}
	}
	return &Meter{byModel: make(map[string]map[string]provider.UsageStats), pricing: pricing, cfg: cfg, logger: logger}
}

// Record folds one call's usage into the (providerName, model) bucket
// and the running total. Returns an error only in Strict mode when an
// invariant is violated; otherwise a violation is logged and recording
// proceeds.
func (m *Meter) Record(providerName, model string, usage provider.UsageStats) error {
	if err := m.validate(usage); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byModel, ok := m.byModel[providerName]
	if !ok {
		byModel = make(map[string]provider.UsageStats)
		m.byModel[providerName] = byModel
	}
	cur := byModel[model]
	cur.InputTokens += usage.InputTokens
	cur.OutputTokens += usage.OutputTokens
	cur.CachedTokens += usage.CachedTokens
	cur.ReasoningTokens += usage.ReasoningTokens
	byModel[model] = cur

	m.total.InputTokens += usage.InputTokens
	m.total.OutputTokens += usage.OutputTokens
	m.total.CachedTokens += usage.CachedTokens
	m.total.ReasoningTokens += usage.ReasoningTokens
	return nil
}

func (m *Meter) validate(usage provider.UsageStats) error {
	violated := usage.CachedTokens > usage.InputTokens || usage.ReasoningTokens > usage.OutputTokens
	if !violated {
		return nil
	}
	if m.cfg.Strict {
		return types.NewError(types.ErrReasoningInvalidRequest, "usage invariant violated: cached<=input and reasoning<=output must hold")
	}
	m.logger.Warn("usage invariant violated",
		zap.Int("input_tokens", usage.InputTokens), zap.Int("cached_tokens", usage.CachedTokens),
		zap.Int("output_tokens", usage.OutputTokens), zap.Int("reasoning_tokens", usage.ReasoningTokens))
	return nil
}

// Usage returns the running total, optionally filtered by provider
// and/or model (hierarchical filtering: no args -> total, provider only
// -> sum across its models, provider+model -> that one bucket).
func (m *Meter) Usage(providerName, model string) provider.UsageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if providerName == "" {
		return m.total
	}
	byModel, ok := m.byModel[providerName]
	if !ok {
		return provider.UsageStats{}
	}
	if model != "" {
		return byModel[model]
	}
	var sum provider.UsageStats
	for _, u := range byModel {
		sum.InputTokens += u.InputTokens
		sum.OutputTokens += u.OutputTokens
		sum.CachedTokens += u.CachedTokens
		sum.ReasoningTokens += u.ReasoningTokens
	}
	return sum
}

// EstimateCost applies the §4.6 cost formula to one UsageStats using the
// pricing configured for (providerName, model).
func EstimateCost(usage provider.UsageStats, pricing Pricing) float64 {
	const perMillion = 1e6
	return float64(usage.InputTokens-usage.CachedTokens)/perMillion*pricing.Prompt +
		float64(usage.CachedTokens)/perMillion*pricing.CachedPrompt +
		float64(usage.OutputTokens-usage.ReasoningTokens)/perMillion*pricing.Completion +
		float64(usage.ReasoningTokens)/perMillion*pricing.Reasoning
}

// Summary is the nested shape returned by Summary().
type Summary struct {
	TotalUsage   provider.UsageStats         `json:"total_usage"`
	TotalCostUSD float64                     `json:"total_cost_usd"`
	ByProvider   map[string]ProviderSummary  `json:"by_provider"`
}

// ProviderSummary aggregates one provider's usage/cost, broken down by model.
type ProviderSummary struct {
	Usage   provider.UsageStats    `json:"usage"`
	CostUSD float64                `json:"cost_usd"`
	ByModel map[string]ModelSummary `json:"by_model"`
}

// ModelSummary is one (provider, model) bucket's usage and cost.
type ModelSummary struct {
	Usage   provider.UsageStats `json:"usage"`
	CostUSD float64             `json:"cost_usd"`
}

// BuildSummary computes the full nested summary across every recorded
// (provider, model) bucket.
func (m *Meter) BuildSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Summary{TotalUsage: m.total, ByProvider: make(map[string]ProviderSummary, len(m.byModel))}
	for providerName, byModel := range m.byModel {
		ps := ProviderSummary{ByModel: make(map[string]ModelSummary, len(byModel))}
		for model, usage := range byModel {
			cost := EstimateCost(usage, m.pricing.Lookup(providerName, model))
			ps.ByModel[model] = ModelSummary{Usage: usage, CostUSD: cost}
			ps.Usage.InputTokens += usage.InputTokens
			ps.Usage.OutputTokens += usage.OutputTokens
			ps.Usage.CachedTokens += usage.CachedTokens
			ps.Usage.ReasoningTokens += usage.ReasoningTokens
			ps.CostUSD += cost
			out.TotalCostUSD += cost
		}
		out.ByProvider[providerName] = ps
	}
	return out
}

// DetailedUsage projects BuildSummary down to the §6 wire shape:
// {<provider>: {<model>: UsageStats}}.
func (m *Meter) DetailedUsage() map[string]map[string]provider.UsageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]provider.UsageStats, len(m.byModel))
	for providerName, byModel := range m.byModel {
		cp := make(map[string]provider.UsageStats, len(byModel))
		for model, usage := range byModel {
			cp[model] = usage
		}
		out[providerName] = cp
	}
	return out
}
