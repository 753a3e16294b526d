// Package llm provides the OpenAI-compatible chat-completions adapter that
// backs the core.Generator port.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

// ClientConfig configures the OpenAICompatible adapter. BaseURL is the API
// prefix up to but excluding /chat/completions; it covers OpenAI itself and
// any compatible local server (vLLM, Ollama, llama.cpp).
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Retry       RetryPolicy
	Temperature float64
}

// OpenAICompatible talks to a chat-completions endpoint and implements
// core.Generator. All transport failures collapse into the failure
// sentinel after the retry budget runs out; callers never see an error.
type OpenAICompatible struct {
	cfg    ClientConfig
	client *http.Client
	log    *logging.Logger

	mu    sync.Mutex
	stats core.CallStats
}

// NewOpenAICompatible creates the adapter. A zero Timeout defaults to 120s.
func NewOpenAICompatible(cfg ClientConfig, log *logging.Logger) *OpenAICompatible {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &OpenAICompatible{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      float64       `json:"temperature"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Call implements core.Generator. On repeated failure it returns
// core.FailureSentinel so the pipeline can apply stage fallbacks.
func (c *OpenAICompatible) Call(ctx context.Context, opts core.CallOptions) string {
	messages := make([]chatMessage, 0, 2)
	if opts.SystemRole != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemRole})
	}
	messages = append(messages, chatMessage{Role: "user", Content: opts.UserInput})

	req := chatRequest{
		Model:            c.cfg.Model,
		Messages:         messages,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
		Stop:             opts.Stop,
	}

	started := time.Now()
	var content string
	err := c.cfg.Retry.Execute(ctx, func(ctx context.Context) error {
		out, usage, err := c.complete(ctx, req)
		if err != nil {
			c.log.Warn("generation attempt failed", "stage", string(opts.Stage), "error", err)
			return err
		}
		content = out
		c.account(usage)
		return nil
	})
	c.accountWall(time.Since(started))

	if err != nil {
		c.log.Error("generation failed, substituting sentinel", "stage", string(opts.Stage), "error", err)
		return core.FailureSentinel
	}
	return content
}

type usage struct {
	prompt, completion, total int
}

func (c *OpenAICompatible) complete(ctx context.Context, req chatRequest) (string, usage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", usage{}, fmt.Errorf("encoding request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", usage{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", usage{}, core.ErrNetwork("chat completion request failed").WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", usage{}, core.ErrNetwork("reading chat response").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", usage{}, core.ErrNetwork(
			fmt.Sprintf("chat completion status %d: %s", resp.StatusCode, truncateForLog(data)),
		)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", usage{}, core.ErrParse("CHAT_RESPONSE", "decoding chat response").WithCause(err)
	}
	if parsed.Error != nil {
		return "", usage{}, core.ErrExecution(core.CodeAPIUnavailable, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", usage{}, core.ErrParse("CHAT_RESPONSE", "no choices in chat response")
	}

	u := usage{
		prompt:     parsed.Usage.PromptTokens,
		completion: parsed.Usage.CompletionTokens,
		total:      parsed.Usage.TotalTokens,
	}
	return parsed.Choices[0].Message.Content, u, nil
}

func truncateForLog(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

func (c *OpenAICompatible) account(u usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Calls++
	c.stats.PromptTokens += u.prompt
	c.stats.CompletionTokens += u.completion
	c.stats.TotalTokens += u.total
}

func (c *OpenAICompatible) accountWall(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.WallSeconds += d.Seconds()
}

// Stats implements core.StatsReporter.
func (c *OpenAICompatible) Stats() core.CallStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Ping issues a one-token completion to verify connectivity, credentials,
// and the configured model name in a single round trip.
func (c *OpenAICompatible) Ping(ctx context.Context) error {
	req := chatRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}
	_, _, err := c.complete(ctx, req)
	return err
}
