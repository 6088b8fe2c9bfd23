package engine_test

import (
	"context"
	"testing"

	"github.com/BaSui01/agentflow/reasoning/engine"
	"github.com/BaSui01/agentflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: happy path — one initial call, one passing verification, one summary.
func TestDeepThink_HappyPath(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("x=5").
		WithTextResponse(`{"verdict":"pass","confidence":0.9}`).
		WithTextResponse("Final: x=5")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.MaxIterations = 20
	cfg.RequiredSuccessfulVerifications = 1

	dt := engine.NewDeepThink(p, cfg, "solve for x", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 1, res.SuccessfulVerifications)
	assert.Equal(t, "x=5", res.FinalSolution)
	assert.Equal(t, "Final: x=5", res.Summary)
	assert.Len(t, p.ChatCalls(), 3)
}

// S2: one correction round before a passing verification.
func TestDeepThink_OneCorrection(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("x=4").
		WithTextResponse(`{"verdict":"fail","issues":["arithmetic error"]}`).
		WithTextResponse("x=5").
		WithTextResponse(`{"verdict":"pass"}`).
		WithTextResponse("Final: x=5")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.RequiredSuccessfulVerifications = 1

	dt := engine.NewDeepThink(p, cfg, "solve for x", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 1, res.SuccessfulVerifications)
	assert.Equal(t, "x=5", res.FinalSolution)
	assert.Len(t, p.ChatCalls(), 5)
}

// S3: give-up after max_errors consecutive failures; a summary still runs.
func TestDeepThink_GivesUpAfterConsecutiveFailures(t *testing.T) {
	// Every verification call returns a fail verdict; the mock repeats
	// its last queued response once the queue is exhausted, so we only
	// need to seed the fail verdict once after the initial solution.
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("guess").
		WithTextResponse(`{"verdict":"fail"}`)

	cfg := engine.DefaultDeepThinkConfig()
	cfg.MaxIterations = 3
	cfg.RequiredSuccessfulVerifications = 3
	cfg.MaxErrorsBeforeGiveUp = 2

	dt := engine.NewDeepThink(p, cfg, "solve for x", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.SuccessfulVerifications)
	assert.NotEmpty(t, res.Summary)
	// initial + verify + (correction + verify)*2 + summary = 7 calls
	assert.Len(t, p.ChatCalls(), 7)
}

// Boundary: max_iterations == 0 runs only the initial call, no corrections.
func TestDeepThink_MaxIterationsZero_NoCorrections(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("x=5").
		WithTextResponse(`{"verdict":"fail"}`).
		WithTextResponse("Final")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.MaxIterations = 0
	cfg.RequiredSuccessfulVerifications = 1

	dt := engine.NewDeepThink(p, cfg, "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 0, res.SuccessfulVerifications)
	// initial + verify + summary = 3, no correction call
	assert.Len(t, p.ChatCalls(), 3)
}

// Boundary: required_verifications == 1 with the first verification
// passing yields zero correction calls.
func TestDeepThink_RequiredVerificationsOne_FirstPass_NoCorrection(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("answer").
		WithTextResponse(`{"verdict":"pass"}`).
		WithTextResponse("summary")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.RequiredSuccessfulVerifications = 1

	dt := engine.NewDeepThink(p, cfg, "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, p.ChatCalls(), 3)
}

// Invariant 2: when successes == required, the last recorded
// verification has verdict == pass.
func TestDeepThink_LastVerificationPassesOnSuccess(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("x=4").
		WithTextResponse(`{"verdict":"fail"}`).
		WithTextResponse("x=5").
		WithTextResponse(`{"verdict":"pass"}`).
		WithTextResponse("done")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.RequiredSuccessfulVerifications = 1

	dt := engine.NewDeepThink(p, cfg, "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.VerificationLogs)
	last := res.VerificationLogs[len(res.VerificationLogs)-1]
	assert.EqualValues(t, "pass", last.Verdict)
}

// Invariant 8: errors resets to zero whenever a verification succeeds.
func TestDeepThink_ErrorsResetOnSuccess(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("a1").
		WithTextResponse(`{"verdict":"fail"}`).
		WithTextResponse("a2").
		WithTextResponse(`{"verdict":"pass"}`).
		WithTextResponse("a3").
		WithTextResponse(`{"verdict":"fail"}`).
		WithTextResponse("a4").
		WithTextResponse(`{"verdict":"pass"}`).
		WithTextResponse("summary")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.RequiredSuccessfulVerifications = 2
	cfg.MaxErrorsBeforeGiveUp = 2 // a single post-reset failure must not trip give-up

	dt := engine.NewDeepThink(p, cfg, "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessfulVerifications)
}

// Failure propagation: a provider error aborts the run with no partial result.
func TestDeepThink_ProviderErrorAbortsRun(t *testing.T) {
	p := mocks.NewReasoningMockProvider().WithError(assertErr{})

	dt := engine.NewDeepThink(p, engine.DefaultDeepThinkConfig(), "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

// Unparseable verifier output becomes a fail verdict, not an engine error.
func TestDeepThink_UnparseableVerificationIsDataNotError(t *testing.T) {
	p := mocks.NewReasoningMockProvider().
		WithTextResponse("solution").
		WithTextResponse("not json at all").
		WithTextResponse(`{"verdict":"fail"}`). // second correction attempt verify
		WithTextResponse("corrected").
		WithTextResponse("summary")

	cfg := engine.DefaultDeepThinkConfig()
	cfg.MaxIterations = 2
	cfg.RequiredSuccessfulVerifications = 5
	cfg.MaxErrorsBeforeGiveUp = 5

	dt := engine.NewDeepThink(p, cfg, "problem", nil, "")
	res, err := dt.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.VerificationLogs)
	assert.Equal(t, "verification_output_unparseable", res.VerificationLogs[0].Error)
}
