package verify

import (
	"math"
	"regexp"
	"strings"
)

// answerPatterns are tried, in order, against solution text to extract
// an explicitly marked final answer.
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(?:final\s+)?answer\s*[:\-]?\s*(.+?)$`),
	regexp.MustCompile(`(?im)(?:the\s+)?result\s*(?:is\s+)?[:\-]?\s*(.+?)$`),
	regexp.MustCompile(`(?im)(?:the\s+)?solution\s*(?:is\s+)?[:\-]?\s*(.+?)$`),
	regexp.MustCompile(`(?im)therefore\s*[,:]?\s*(.+?)$`),
	regexp.MustCompile(`(?im)thus\s+(?:we\s+(?:get|have)\s+)?(.+?)$`),
	regexp.MustCompile(`(?im)so\s+(?:we\s+(?:get|have)\s+)?(.+?)$`),
}

var equationPattern = regexp.MustCompile(`(?m)^\s*[a-zA-Z_]\w*\s*=\s*([^\n]+?)\s*$`)
var trailingPunct = regexp.MustCompile(`[.,;!?]+$`)
var exprPattern = regexp.MustCompile(`(?:^|\s)([^\s]*[\d\w]+\s*[+\-*/^=]\s*[^\s]+)(?:\s|$)`)

// ExtractCandidateExpressions runs the §4.3 four-strategy extraction
// pipeline (explicitly marked answers, equation assignments, last-line
// heuristic, standalone expressions) over solution text and returns
// candidates in priority order.
func ExtractCandidateExpressions(solutionText string) []string {
	if solutionText == "" {
		return nil
	}
	var candidates []string

	for _, re := range answerPatterns {
		for _, m := range re.FindAllStringSubmatch(solutionText, -1) {
			if c := strings.TrimSpace(m[1]); c != "" {
				candidates = append(candidates, c)
			}
		}
	}

	for _, m := range equationPattern.FindAllStringSubmatch(solutionText, -1) {
		if c := strings.TrimSpace(m[1]); c != "" {
			candidates = append(candidates, c)
		}
	}

	lines := strings.Split(solutionText, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "0123456789+-*/^().=") {
			candidates = append(candidates, trailingPunct.ReplaceAllString(line, ""))
		}
		break
	}

	for _, m := range exprPattern.FindAllStringSubmatch(solutionText, -1) {
		expr := strings.TrimSpace(m[1])
		letters := 0
		for _, r := range expr {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				letters++
			}
		}
		if float64(letters) < float64(len(expr))*0.5 {
			candidates = append(candidates, expr)
		}
	}

	return candidates
}

// SanityCheckBackend evaluates a candidate expression and returns a
// tri-state validity: true (valid finite result), false (malformed,
// infinite, or NaN), or nil (could not parse — check not applicable).
// Its absence is itself the "unknown" case per §9's "pluggable
// sanity-check backend" re-architecture note.
type SanityCheckBackend interface {
	Evaluate(expr string) *bool
}

// ArithmeticBackend is a minimal backend handling integer/decimal
// arithmetic over + - * / ^ ( ), the "minimally acceptable backend"
// named in §9 (no symbolic-algebra library exists in this module's
// dependency pack, so this is a small hand-rolled evaluator rather than
// an imported one — see DESIGN.md).
type ArithmeticBackend struct{}

var eqMatch = regexp.MustCompile(`(?s)^([a-zA-Z_]\w*)\s*=\s*(.+)$`)
var leadingWord = regexp.MustCompile(`(?i)^(?:is\s+|equals?\s+|=\s*)`)

// Evaluate cleans common formatting (equation left sides, currency
// symbols, commas, trailing punctuation) and attempts to parse and
// evaluate the remaining expression.
func (ArithmeticBackend) Evaluate(expr string) *bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	if m := eqMatch.FindStringSubmatch(expr); m != nil {
		expr = strings.TrimSpace(m[2])
	}
	expr = leadingWord.ReplaceAllString(expr, "")
	expr = trailingPunct.ReplaceAllString(expr, "")
	expr = strings.NewReplacer("$", "", ",", "").Replace(expr)
	expr = strings.TrimSpace(strings.Join(strings.Fields(expr), " "))

	lower := strings.ToLower(expr)
	if lower == "infinity" || lower == "inf" || lower == "-infinity" || lower == "-inf" || lower == "nan" {
		f := false
		return &f
	}

	if len(strings.Fields(expr)) > 10 {
		return nil
	}

	val, ok := evalArithmetic(expr)
	if !ok {
		return nil
	}
	good := !isNaNOrInf(val)
	return &good
}

func isNaNOrInf(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
