// Package messages holds the small normalization/extraction helpers the
// engines and verifier call at nearly every stage transition, so each
// call site doesn't reimplement the same ad hoc logic.
package messages

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/types"
)

// EnsureMessages normalizes a message slice into canonical shape. A
// slice already in canonical shape passes through unchanged
// (idempotent).
func EnsureMessages(msgs []types.Message) []types.Message {
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

// HistoryForCacheKey projects a message history down to the fields that
// are actually part of the prompt prefix, dropping volatile per-call
// metadata (Timestamp, Metadata) that would otherwise make the prefix
// cache key non-deterministic across two requests with identical
// conversational content issued at different times. Images are
// re-shaped into the {image_url:{url:...}} form the fingerprinter's
// normalization pass recognizes for base64-blob hashing.
func HistoryForCacheKey(history []types.Message) []any {
	out := make([]any, len(history))
	for i, m := range history {
		entry := map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		}
		if m.Name != "" {
			entry["name"] = m.Name
		}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]any, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				calls[j] = map[string]any{"id": tc.ID, "name": tc.Name, "arguments": string(tc.Arguments)}
			}
			entry["tool_calls"] = calls
		}
		if len(m.Images) > 0 {
			images := make([]any, len(m.Images))
			for j, img := range m.Images {
				url := img.URL
				if url == "" && img.Data != "" {
					url = "data:image;base64," + img.Data
				}
				images[j] = map[string]any{"image_url": map[string]any{"url": url}}
			}
			entry["images"] = images
		}
		out[i] = entry
	}
	return out
}

// ExtractText pulls a best-effort plain-text representation out of a
// provider call result, trying progressively looser fallbacks: direct
// content, then the first text-bearing output part, then a stringified
// parsed-output object, then a raw stringification.
func ExtractText(res *provider.CallResult) string {
	if res == nil {
		return ""
	}
	if res.Content != "" {
		return res.Content
	}
	for _, part := range res.RawOutput {
		if part.Text != "" {
			return part.Text
		}
	}
	if res.OutputParsed != nil {
		return fmt.Sprintf("%v", res.OutputParsed)
	}
	return ""
}

// JoinText concatenates a message slice's content into one string, the
// shape the Token Meter's estimator counts against when a provider's
// usage payload omits counts. Order-preserving, newline-joined.
func JoinText(msgs []types.Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
