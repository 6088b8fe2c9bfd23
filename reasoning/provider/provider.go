// Package provider defines the capability-negotiating contract the
// reasoning engines use to talk to heterogeneous LLM backends, and the
// unified error taxonomy every adapter normalizes into.
package provider

import (
	"context"

	"github.com/BaSui01/agentflow/types"
)

// Capabilities declares what an upstream backend supports. Note the
// asymmetric default for SupportsStreaming below (NewCapabilities) —
// most backends stream by default, but none of the other capabilities
// can be assumed.
type Capabilities struct {
	SupportsResponses bool `json:"supports_responses"`
	SupportsStreaming bool `json:"supports_streaming"`
	SupportsVision    bool `json:"supports_vision"`
	SupportsThinking  bool `json:"supports_thinking"`
	SupportsCaching   bool `json:"supports_caching"`
}

// NewCapabilities returns the zero-value-safe defaults matching the
// original backend's dataclass defaults: streaming on, everything else
// off until an adapter opts in.
func NewCapabilities() Capabilities {
	return Capabilities{SupportsStreaming: true}
}

// PartType enumerates the canonical shapes an output part may take.
type PartType string

const (
	PartToolUse    PartType = "tool_use"
	PartToolResult PartType = "tool_result"
	PartOutputText PartType = "output_text"
	PartText       PartType = "text"
)

// OutputPart is one canonicalized element of a ProviderCallResult's
// RawOutput. Only the fields relevant to Type are populated; anything an
// adapter could not map to a canonical field is preserved in Details so
// no information is lost.
type OutputPart struct {
	Type       PartType       `json:"type"`
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	ToolUseID  string         `json:"tool_use_id,omitempty"`
	Text       string         `json:"text,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// UsageStats mirrors the wire-level counters a provider reports. Cached
// and reasoning tokens are subsets of input/output respectively; the
// invariant is enforced as a validation warning by the meter, not here.
type UsageStats struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CachedTokens    int `json:"cached_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// TotalTokens is input+output (cached/reasoning are subsets, not added).
func (u UsageStats) TotalTokens() int { return u.InputTokens + u.OutputTokens }

// CallResult is the unified shape every Provider operation returns.
type CallResult struct {
	Content      string       `json:"content"`
	RawOutput    []OutputPart `json:"raw_output,omitempty"`
	OutputParsed any          `json:"output_parsed,omitempty"`
	Usage        UsageStats   `json:"usage"`
	ResponseID   string       `json:"response_id,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// StreamDelta is one chunk of a chat_stream sequence. The final chunk
// MAY carry Usage with no Delta content.
type StreamDelta struct {
	Delta string
	Usage *UsageStats
	Err   error
}

// ResponseFormat requests structured output (JSON schema) from a
// backend that supports it; nil means free-form text.
type ResponseFormat struct {
	Name   string
	Schema map[string]any
}

// ChatRequest is the non-streaming / streaming completion request.
type ChatRequest struct {
	Model       string
	Messages    []types.Message
	Temperature float64
	MaxTokens   int
	Extra       map[string]any
}

// ResponseRequest is the richer Responses-API-style call used for
// structured output and provider-side prefix caching.
type ResponseRequest struct {
	Model              string
	InputMessages      []types.Message
	Temperature        float64
	MaxOutputTokens    int
	PreviousResponseID string
	Store              bool
	ResponseFormat     *ResponseFormat
	Extra              map[string]any
}

// Provider is a capability-bearing handle over a specific upstream
// backend. Callers MUST consult Capabilities before choosing an entry
// point: calling Response on a provider without SupportsResponses fails
// with ErrReasoningInvalidRequest and issues no network call.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Chat(ctx context.Context, req ChatRequest) (*CallResult, error)
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)
	Response(ctx context.Context, req ResponseRequest) (*CallResult, error)
	Close() error
}

// RequireResponses is the capability-negotiation gate described in
// §4.1: call it before issuing Response; it never touches the network.
func RequireResponses(p Provider) error {
	if p.Capabilities().SupportsResponses {
		return nil
	}
	return types.NewError(types.ErrReasoningInvalidRequest,
		"provider "+p.Name()+" does not support the responses API").
		WithProvider(p.Name()).WithHTTPStatus(400)
}

// HTTPStatusForCode returns the canonical status for a unified error
// kind, per the §4.1 taxonomy table.
func HTTPStatusForCode(code types.ErrorCode) int {
	switch code {
	case types.ErrReasoningAuth:
		return 401
	case types.ErrReasoningRateLimit:
		return 429
	case types.ErrReasoningTimeout:
		return 504
	case types.ErrReasoningInvalidRequest:
		return 400
	case types.ErrReasoningNotFound:
		return 404
	case types.ErrReasoningServer:
		return 500
	case types.ErrReasoningProvider:
		return 502
	default:
		return 500
	}
}

// MapHTTPError normalizes a backend HTTP failure into one of the seven
// unified kinds, following the same switch shape as
// llm/providers/common.go's MapHTTPError.
func MapHTTPError(status int, message, providerName string) *types.Error {
	code := types.ErrReasoningProvider
	retryable := status >= 500

	switch {
	case status == 401:
		code = types.ErrReasoningAuth
	case status == 403:
		code = types.ErrReasoningAuth
	case status == 429:
		code, retryable = types.ErrReasoningRateLimit, true
	case status == 400:
		code = types.ErrReasoningInvalidRequest
	case status == 404:
		code = types.ErrReasoningNotFound
	case status == 408 || status == 504:
		code, retryable = types.ErrReasoningTimeout, true
	case status >= 500:
		code, retryable = types.ErrReasoningServer, true
	}

	return types.NewError(code, message).
		WithProvider(providerName).
		WithHTTPStatus(HTTPStatusForCode(code)).
		WithRetryable(retryable)
}

// IsStaleResponseID reports whether err looks like the provider rejected
// a previously-stored response id rather than failing for an unrelated
// reason — the narrow trigger for prefix-cache eviction (§4.5 Open
// Question 5).
func IsStaleResponseID(err error) bool {
	e, ok := err.(*types.Error)
	if !ok {
		return false
	}
	return e.Code == types.ErrReasoningInvalidRequest || e.Code == types.ErrReasoningNotFound
}
