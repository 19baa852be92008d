// Package aitrader runs the LLM-driven agent cycle: context construction,
// a bounded LLM call, decision validation, and idempotent execution,
// using the same connection pooling pattern as internal/venue/httpclient.go
// and an OpenAI-compatible chat-completion request shape.
package aitrader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"hldesk/internal/apperr"
)

var llmJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// llmRateLimit caps outbound OpenRouter calls well under typical free-tier
// quotas; agent cycles are triggered manually, not on a hot loop, so this
// only matters if an operator scripts many runs back to back.
const llmRateLimit = 1.0

// ChatMessage is one OpenAI-compatible chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// LLMClient calls an OpenRouter-compatible chat completion endpoint.
type LLMClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

func NewLLMClient(baseURL, apiKey string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(llmRateLimit), 1),
	}
}

// Complete calls the chat completion endpoint once with the given messages
// and returns the first choice's raw content. The caller is responsible
// for the timeout/retry policy (a 45s timeout with one retry, applied by
// the engine that calls Complete).
func (c *LLMClient) Complete(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperr.Transport("rate limit wait", err)
	}

	reqBody := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	}
	payload, err := llmJSON.Marshal(reqBody)
	if err != nil {
		return "", apperr.Transport("encode chat completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Transport("build chat completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Transport("call chat completion endpoint", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Transport("read chat completion response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.Transport(fmt.Sprintf("chat completion status %d", resp.StatusCode), fmt.Errorf("%s", body))
	}

	var parsed chatCompletionResponse
	if err := llmJSON.Unmarshal(body, &parsed); err != nil {
		return "", apperr.Transport("decode chat completion response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.Transport("chat completion returned no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}
