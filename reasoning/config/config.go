// Package config loads the read-only configuration view the reasoning
// core consumes (§6 "configuration model (what the core consumes)"): a
// model resolver, a pricing table, and rate-limit defaults. The core
// itself never touches a file; loading happens once at the process
// entry point and the result is injected into the engines.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BaSui01/agentflow/reasoning/meter"
	"gopkg.in/yaml.v3"
)

// ModelEntry names a model an operator has made available, optionally
// overriding which provider serves it and which stage model it maps to
// when an engine's ModelStages doesn't name it explicitly.
type ModelEntry struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// RateLimitDefaults seeds a ratelimit.Registry's bucket/window
// configuration for a (provider, model) pair absent a per-call
// override.
type RateLimitDefaults struct {
	QPS         float64       `yaml:"qps"`
	Burst       int           `yaml:"burst"`
	WindowLimit int           `yaml:"window_limit"`
	Window      time.Duration `yaml:"window"`
}

// Document is the on-disk YAML shape: a default model plus per-model
// entries, a pricing table keyed the same way meter.PricingTable is,
// and a rate-limit defaults block.
type Document struct {
	DefaultModel string                       `yaml:"default_model"`
	Models       map[string]ModelEntry        `yaml:"models"`
	Pricing      meter.PricingTable           `yaml:"pricing"`
	RateLimits   map[string]RateLimitDefaults `yaml:"rate_limits"`
	MeterStrict  bool                         `yaml:"meter_strict"`
}

// ModelResolver is the read-only view the engines consult to turn a
// bare model alias (as named in a request or in ModelStages) into the
// (provider, model) pair that actually serves it.
type ModelResolver struct {
	defaultModel string
	models       map[string]ModelEntry
}

// DefaultModel returns the alias to use when a caller doesn't name one.
func (m *ModelResolver) DefaultModel() string { return m.defaultModel }

// Resolve looks up alias, falling back to treating it as a literal
// (provider-less) model name when it isn't a configured alias.
func (m *ModelResolver) Resolve(alias string) (provider, model string, ok bool) {
	entry, found := m.models[alias]
	if !found {
		return "", alias, false
	}
	return entry.Provider, entry.Model, true
}

// Load reads path, validates it, and builds the three read-only views
// the core consumes. Uses DefaultDocument as a base so a sparse file
// only needs to override what it changes.
func Load(path string) (*ModelResolver, meter.PricingTable, map[string]RateLimitDefaults, error) {
	doc := DefaultDocument()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return buildViews(doc)
		}
		return nil, nil, nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return buildViews(doc)
}

func buildViews(doc *Document) (*ModelResolver, meter.PricingTable, map[string]RateLimitDefaults, error) {
	resolver := &ModelResolver{defaultModel: doc.DefaultModel, models: doc.Models}
	return resolver, doc.Pricing, doc.RateLimits, nil
}

// DefaultDocument returns the built-in defaults: a single "default"
// alias pointing at openai/gpt-4o, no pricing overrides (zero cost
// until configured), and a conservative rate-limit default.
func DefaultDocument() *Document {
	return &Document{
		DefaultModel: "default",
		Models: map[string]ModelEntry{
			"default": {Provider: "openai", Model: "gpt-4o"},
		},
		Pricing: meter.PricingTable{},
		RateLimits: map[string]RateLimitDefaults{
			"default": {QPS: 2, Burst: 4, WindowLimit: 500, Window: time.Minute},
		},
	}
}

// Validate checks structural invariants a hand-edited YAML document
// can violate: the default model alias must resolve, and every rate
// limit entry must describe a usable bucket or window.
func Validate(doc *Document) error {
	if doc.DefaultModel == "" {
		return fmt.Errorf("default_model must not be empty")
	}
	if _, ok := doc.Models[doc.DefaultModel]; !ok {
		return fmt.Errorf("default_model %q has no matching entry under models", doc.DefaultModel)
	}
	for key, rl := range doc.RateLimits {
		if rl.QPS < 0 || rl.Burst < 0 || rl.WindowLimit < 0 || rl.Window < 0 {
			return fmt.Errorf("rate_limits[%s]: negative values are not allowed", key)
		}
	}
	return nil
}
