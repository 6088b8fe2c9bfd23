// Package verify implements the Verifier: structured LLM judgment of a
// candidate solution, with an optional parallel symbolic sanity check.
package verify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/BaSui01/agentflow/reasoning/messages"
	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/BaSui01/agentflow/types"
)

// Verdict is one of the three allowed judgments.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictFail   Verdict = "fail"
	VerdictUnsure Verdict = "unsure"
)

// Record is the structured verification result (§3 VerificationRecord).
// Arith is a tri-state: nil means unknown/not-applicable.
type Record struct {
	Verdict    Verdict  `json:"verdict"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	Issues     []string `json:"issues,omitempty"`
	Error      string   `json:"error,omitempty"`
	Arith      *bool    `json:"arith,omitempty"`
}

const verifyPrompt = "You are a strict proof checker. Check the solution for correctness, hidden assumptions," +
	" and gaps. If incorrect, identify the first concrete error and explain why."

const jsonGuard = "Return ONLY a single-line minified JSON object matching the schema: " +
	`{"verdict":"pass|fail|unsure","confidence":0.0,"reasons":[],"issues":[]}. No extra text or explanation.`

func responseFormat() *provider.ResponseFormat {
	return &provider.ResponseFormat{
		Name: "verification_result",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"verdict":    map[string]any{"type": "string", "enum": []string{"pass", "fail", "unsure"}},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"reasons":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"issues":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required":             []string{"verdict"},
			"additionalProperties": false,
		},
	}
}

// Verify asks the provider to judge solutionText against problemText and
// returns a validated Record. Any unparseable or missing/unknown verdict
// becomes {verdict: fail, error: "verification_output_unparseable"} — no
// best-effort guessing.
func Verify(ctx context.Context, p provider.Provider, model, problemText, solutionText string, params map[string]any) (*Record, error) {
	userContent := "Problem:\n" + problemText + "\n\nSolution:\n" + solutionText

	var candidate map[string]any

	if p.Capabilities().SupportsResponses {
		req := provider.ResponseRequest{
			Model: model,
			InputMessages: messages.EnsureMessages([]types.Message{
				types.NewSystemMessage(verifyPrompt),
				types.NewUserMessage(userContent),
			}),
			ResponseFormat: responseFormat(),
			Extra:          params,
		}
		res, err := p.Response(ctx, req)
		if err != nil {
			return nil, err
		}
		if parsed, ok := res.OutputParsed.(map[string]any); ok {
			candidate = parsed
		} else {
			candidate = tryParseJSON(messages.ExtractText(res))
		}
	} else {
		req := provider.ChatRequest{
			Model: model,
			Messages: messages.EnsureMessages([]types.Message{
				types.NewSystemMessage(verifyPrompt),
				types.NewUserMessage(userContent + "\n\n" + jsonGuard),
			}),
			Extra: params,
		}
		res, err := p.Chat(ctx, req)
		if err != nil {
			return nil, err
		}
		candidate = tryParseJSON(messages.ExtractText(res))
	}

	if candidate == nil {
		return &Record{Verdict: VerdictFail, Error: "verification_output_unparseable"}, nil
	}
	rec, ok := validate(candidate)
	if !ok {
		return &Record{Verdict: VerdictFail, Error: "verification_output_unparseable"}, nil
	}
	return rec, nil
}

func tryParseJSON(s string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &out); err != nil {
		return nil
	}
	return out
}

func validate(obj map[string]any) (*Record, bool) {
	verdictStr, _ := obj["verdict"].(string)
	verdictStr = strings.ToLower(strings.TrimSpace(verdictStr))
	switch Verdict(verdictStr) {
	case VerdictPass, VerdictFail, VerdictUnsure:
	default:
		return nil, false
	}
	rec := &Record{Verdict: Verdict(verdictStr)}

	if conf, ok := obj["confidence"]; ok {
		if f, ok := toFloat(conf); ok && f >= 0 && f <= 1 {
			rec.Confidence = &f
		}
	}
	if reasons, ok := obj["reasons"].([]any); ok {
		rec.Reasons = toStringSlice(reasons)
	}
	if issues, ok := obj["issues"].([]any); ok {
		rec.Issues = toStringSlice(issues)
	}
	return rec, true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}

func toStringSlice(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64, int:
			out = append(out, toFloatString(t))
		}
	}
	return out
}

func toFloatString(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// IsGood is the §4.2/§4.3 aggregation rule: good iff the verdict is
// "pass" and, when a parallel arithmetic check ran, it did not return
// false.
func IsGood(rec *Record) bool {
	if rec.Verdict != VerdictPass {
		return false
	}
	return rec.Arith == nil || *rec.Arith
}
