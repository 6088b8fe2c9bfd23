package meter

import (
	"sync"

	"github.com/BaSui01/agentflow/reasoning/provider"
	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator counts tokens with tiktoken for providers whose usage
// payload omits counts entirely (UsageStats.TotalTokens() == 0), so the
// meter still has something to aggregate and price instead of silently
// recording zero. This is a fallback, not a replacement: a provider
// that reports real counts is never second-guessed.
type TokenEstimator struct {
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTokenEstimator builds an estimator for the given encoding (e.g.
// "cl100k_base", "o200k_base"). The encoding is resolved lazily on
// first use, matching llm/tokenizer's TiktokenTokenizer.
func NewTokenEstimator(encoding string) *TokenEstimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TokenEstimator{encoding: encoding}
}

func (e *TokenEstimator) init() error {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			e.initErr = err
			return
		}
		e.enc = enc
	})
	return e.initErr
}

// Count returns the tiktoken token count for text. An empty string
// counts as zero without touching the encoder.
func (e *TokenEstimator) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := e.init(); err != nil {
		return 0, err
	}
	return len(e.enc.Encode(text, nil, nil)), nil
}

// EstimateUsage counts prompt/completion text and returns a UsageStats
// with only InputTokens/OutputTokens populated — cached and reasoning
// token counts aren't derivable from raw text, so they stay zero.
func (e *TokenEstimator) EstimateUsage(promptText, completionText string) (provider.UsageStats, error) {
	in, err := e.Count(promptText)
	if err != nil {
		return provider.UsageStats{}, err
	}
	out, err := e.Count(completionText)
	if err != nil {
		return provider.UsageStats{}, err
	}
	return provider.UsageStats{InputTokens: in, OutputTokens: out}, nil
}
