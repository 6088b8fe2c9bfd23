// Package api is a thin, illustrative HTTP wire layer over the
// reasoning engines: it exercises the §6 request/response shapes in
// tests so the core's JSON contract has executable coverage, but it is
// explicitly not where DeepThink/UltraThink/Verifier/Provider/Cache/
// RateLimiter+Meter logic lives — that's all in reasoning/engine and
// its collaborators. Grounded on api/handlers/chat.go and common.go's
// conventions for request decoding, error translation, and SSE framing.
package api

import (
	"github.com/BaSui01/agentflow/reasoning/engine"
	"github.com/BaSui01/agentflow/reasoning/provider"
)

// RateLimitOverride lets a single request scope its own bucket/window
// instead of the configured default, per §6.
type RateLimitOverride struct {
	QPS           float64 `json:"qps,omitempty"`
	Burst         int     `json:"burst,omitempty"`
	WindowLimit   int     `json:"window_limit,omitempty"`
	WindowSeconds float64 `json:"window_seconds,omitempty"`
	Timeout       float64 `json:"timeout,omitempty"`
	Strategy      string  `json:"strategy,omitempty"`
	BucketKey     string  `json:"bucket_key,omitempty"`
}

// HistoryMessage is the wire shape of one history entry in the request
// body — deliberately narrower than types.Message since callers never
// send tool-call or image fields over this illustrative surface.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReasoningRequest is the shared §6 request body for both endpoints;
// fields only meaningful to one engine are ignored by the other.
type ReasoningRequest struct {
	Model                 string             `json:"model"`
	Problem               string             `json:"problem"`
	History               []HistoryMessage   `json:"history,omitempty"`
	KnowledgeContext      string             `json:"knowledge_context,omitempty"`
	MaxIterations         *int               `json:"max_iterations,omitempty"`
	RequiredVerifications *int               `json:"required_verifications,omitempty"`
	NumAgents             *int               `json:"num_agents,omitempty"`
	ParallelAgents        *int               `json:"parallel_agents,omitempty"`
	EnableParallelCheck   bool               `json:"enable_parallel_check,omitempty"`
	LLMParams             map[string]any     `json:"llm_params,omitempty"`
	RateLimit             *RateLimitOverride `json:"rate_limit,omitempty"`
}

// ReasoningResponse is the shared §6 response envelope.
type ReasoningResponse struct {
	Result        any                                        `json:"result"`
	Usage         provider.UsageStats                        `json:"usage"`
	CostUSD       float64                                    `json:"cost_usd"`
	DetailedUsage map[string]map[string]provider.UsageStats  `json:"detailed_usage"`
}

// DeepThinkResultView and UltraThinkResultView are type aliases so the
// response's "result" field serializes with the engines' own JSON tags
// instead of being re-declared here.
type DeepThinkResultView = engine.DeepThinkResult
type UltraThinkResultView = engine.UltraThinkResult
