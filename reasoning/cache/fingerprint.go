// Package cache implements the Prefix Cache: deterministic fingerprinting
// of prompt prefixes, and a durable store mapping a fingerprint to the
// last-known provider response id for context reuse.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Fingerprinter computes deterministic cache keys over prompt prefixes.
type Fingerprinter struct{}

// NewFingerprinter returns a ready-to-use Fingerprinter. It holds no
// state; normalization and hashing are pure functions of their inputs.
func NewFingerprinter() *Fingerprinter { return &Fingerprinter{} }

// ComputeKey derives the §4.5 key: a SHA-256 hex digest over the
// sorted-key JSON serialization of the normalized
// (provider, model, system, knowledge, history, params) tuple.
func (f *Fingerprinter) ComputeKey(providerName, model, system, knowledge string, history []any, params map[string]any) (string, error) {
	components := map[string]any{
		"provider":  providerName,
		"model":     model,
		"system":    system,
		"knowledge": knowledge,
		"history":   history,
		"params":    params,
	}
	return hashNormalized(components)
}

// ComputeSimpleKey is the narrower variant (system/knowledge/history
// only, no provider/model/params) supplemented from the original
// implementation's simplified key() method — useful for cross-provider
// prefix-reuse heuristics the richer key can't express.
func (f *Fingerprinter) ComputeSimpleKey(system, knowledge string, history []any) (string, error) {
	components := map[string]any{
		"system":    system,
		"knowledge": knowledge,
		"history":   history,
	}
	return hashNormalized(components)
}

func hashNormalized(components map[string]any) (string, error) {
	normalized := normalizeForCacheKey(components)
	// encoding/json sorts map[string]any keys when marshaling, which is
	// exactly the "serialize with sorted keys" requirement here.
	serialized, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cache key components after normalization: %w", err)
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeForCacheKey recursively normalizes arbitrary, possibly
// multi-modal content so it can be safely and deterministically
// serialized: primitives pass through, maps/slices recurse, an
// "image_url"/"url" field whose value (or .url) begins with
// "data:image" is replaced by a fixed-length sentinel derived from its
// own hash (so huge base64 blobs never inflate the key), and any other
// type is stringified.
func normalizeForCacheKey(obj any) any {
	switch v := obj.(type) {
	case nil, string, bool, int, int64, float64, float32:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if (k == "image_url" || k == "url") && isImageURLish(val) {
				out[k] = imageHashSentinel(extractURL(val))
				continue
			}
			out[k] = normalizeForCacheKey(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeForCacheKey(item)
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isImageURLish(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.HasPrefix(t, "data:image")
	case map[string]any:
		if url, ok := t["url"].(string); ok {
			return strings.HasPrefix(url, "data:image")
		}
	}
	return false
}

func extractURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if url, ok := t["url"].(string); ok {
			return url
		}
	}
	return ""
}

// imageHashSentinel mirrors the original's "image_hash:" + first 16 hex
// chars of sha256(url).
func imageHashSentinel(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "image_hash:" + hex.EncodeToString(sum[:])[:16]
}

