// Package mocks also carries a fluent test double for the reasoning
// module's capability-negotiating Provider interface, mirroring
// MockProvider's builder style but scoped to reasoning/provider.Provider
// instead of llm.Provider.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentflow/reasoning/provider"
)

// ReasoningMockProvider is a scriptable reasoning/provider.Provider.
// Responses are consumed in FIFO order via WithResponses/WithResponse;
// once exhausted, the last configured response repeats.
type ReasoningMockProvider struct {
	mu sync.Mutex

	name         string
	capabilities provider.Capabilities
	responses    []*provider.CallResult
	err          error

	chatCalls     []provider.ChatRequest
	responseCalls []provider.ResponseRequest
	callIndex     int
}

// NewReasoningMockProvider returns a mock named "mock" with streaming
// enabled and Responses support off, matching NewCapabilities' default.
func NewReasoningMockProvider() *ReasoningMockProvider {
	return &ReasoningMockProvider{name: "mock", capabilities: provider.NewCapabilities()}
}

func (m *ReasoningMockProvider) WithName(name string) *ReasoningMockProvider {
	m.name = name
	return m
}

func (m *ReasoningMockProvider) WithCapabilities(c provider.Capabilities) *ReasoningMockProvider {
	m.capabilities = c
	return m
}

// WithTextResponse appends one plain-text result to the response queue.
func (m *ReasoningMockProvider) WithTextResponse(text string) *ReasoningMockProvider {
	m.responses = append(m.responses, &provider.CallResult{Content: text})
	return m
}

// WithResult appends a fully-formed result to the response queue, for
// tests that need ResponseID/Usage/OutputParsed control.
func (m *ReasoningMockProvider) WithResult(res *provider.CallResult) *ReasoningMockProvider {
	m.responses = append(m.responses, res)
	return m
}

// WithError makes every call fail with err.
func (m *ReasoningMockProvider) WithError(err error) *ReasoningMockProvider {
	m.err = err
	return m
}

func (m *ReasoningMockProvider) Name() string { return m.name }

func (m *ReasoningMockProvider) Capabilities() provider.Capabilities { return m.capabilities }

func (m *ReasoningMockProvider) next() *provider.CallResult {
	if len(m.responses) == 0 {
		return &provider.CallResult{Content: "mock response"}
	}
	idx := m.callIndex
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.callIndex++
	res := *m.responses[idx]
	return &res
}

func (m *ReasoningMockProvider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.CallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls = append(m.chatCalls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.next(), nil
}

func (m *ReasoningMockProvider) ChatStream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamDelta, error) {
	ch := make(chan provider.StreamDelta, 1)
	res := m.next()
	ch <- provider.StreamDelta{Delta: res.Content}
	close(ch)
	return ch, nil
}

func (m *ReasoningMockProvider) Response(ctx context.Context, req provider.ResponseRequest) (*provider.CallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseCalls = append(m.responseCalls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.next(), nil
}

func (m *ReasoningMockProvider) Close() error { return nil }

func (m *ReasoningMockProvider) ChatCalls() []provider.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.ChatRequest{}, m.chatCalls...)
}

func (m *ReasoningMockProvider) ResponseCalls() []provider.ResponseRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.ResponseRequest{}, m.responseCalls...)
}
