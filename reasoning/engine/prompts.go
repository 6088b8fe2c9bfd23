package engine

// Stage-tagged prompt constants, model-agnostic on purpose so a stage
// override in ModelStages only swaps the backend model, never the
// instruction text.
const (
	deepThinkInitialPrompt = "You are a careful mathematician. Read the problem, reason step-by-step, and produce a" +
		" fully rigorous solution with explicit lemmas. Keep derivations auditable."

	deepThinkCorrectPrompt = "Fix the solution strictly based on the verification feedback. Provide corrected steps only."

	ultraThinkPlanPrompt = "Produce a minimal plan for solving the problem, enumerating distinct approaches" +
		" (algebraic, geometric, combinatorial, number-theoretic) with 1-2 bullets each."

	generateAgentConfigsPrompt = "Given the plan, produce N diverse agent-specific prompts that enforce diversity of" +
		" approach and detail their constraints. Output as a JSON array of objects, each" +
		` {"agentId","approach","specificPrompt","model"?,"llm_params"?,"qps"?,"throttleSeconds"?}.` +
		" Return ONLY the JSON array."

	synthesizeResultsPrompt = "Synthesize multiple candidate solutions. Prefer the most rigorous argument." +
		" Resolve conflicts and produce a single coherent proof."
)

func buildFinalSummaryPrompt(problemText, synthesizedText string) string {
	return "Write a concise final answer for the user, summarizing the key steps and final result.\n\n" +
		"Problem:\n" + problemText + "\n\nSynthesized Solution:\n" + synthesizedText + "\n"
}

func buildSystemWithKnowledge(base, knowledge string) string {
	if knowledge == "" {
		return base
	}
	return base + "\n\n### Knowledge ###\n" + knowledge + "\n"
}
