package inference

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// StaticScorer returns a fixed score. Useful in tests and backtests to
// exercise the gate without a model.
type StaticScorer struct {
	Value float64
	Err   error
}

// Score returns the configured value.
func (s StaticScorer) Score(ctx context.Context, features []float64) (float64, error) {
	return s.Value, s.Err
}

// LLMScorer scores feature vectors with an OpenAI chat model. The model is
// asked for a single probability that the detected reversal plays out.
type LLMScorer struct {
	client *openai.Client
	model  string
}

// NewLLMScorer creates an OpenAI-backed scorer.
func NewLLMScorer(apiKey, model string) *LLMScorer {
	return &LLMScorer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const scorerSystemPrompt = `You are a quantitative trading model. You receive the OHLCV values of the last five one-minute candles, oldest first, as a flat list of numbers. Reply with a single decimal number between 0 and 1: the probability that the reversal setup forming on the last candle follows through. Reply with the number only.`

// Score sends the feature vector to the model and parses the returned
// probability.
func (s *LLMScorer) Score(ctx context.Context, features []float64) (float64, error) {
	values := make([]string, len(features))
	for i, f := range features {
		values[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scorerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(values, ", ")},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from openai")
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(resp.Choices[0].Message.Content), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing model score: %w", err)
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("model score out of range: %v", score)
	}

	return score, nil
}
