package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func chatOK(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 5,
			"total_tokens":      17,
		},
	}
}

func TestCallSuccess(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(chatOK("Medical Field: Cardiology"))
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Retry:   fastRetry(),
	}, logging.NewNop())

	out := c.Call(context.Background(), core.CallOptions{
		Stage:      core.StageQuestionDomains,
		SystemRole: "you are a classifier",
		UserInput:  "classify this",
		MaxTokens:  50,
	})
	assert.Equal(t, "Medical Field: Cardiology", out)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 50, gotReq.MaxTokens)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Calls)
	assert.Equal(t, 17, stats.TotalTokens)
}

func TestCallOmitsSystemMessageWhenEmpty(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(chatOK("ok"))
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()}, logging.NewNop())
	c.Call(context.Background(), core.CallOptions{UserInput: "hi"})

	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(chatOK("recovered"))
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()}, logging.NewNop())
	out := c.Call(context.Background(), core.CallOptions{UserInput: "hi"})
	assert.Equal(t, "recovered", out)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestCallExhaustionReturnsSentinel(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()}, logging.NewNop())
	out := c.Call(context.Background(), core.CallOptions{UserInput: "hi"})
	assert.Equal(t, core.FailureSentinel, out)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestCallAPIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		})
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()}, logging.NewNop())
	out := c.Call(context.Background(), core.CallOptions{UserInput: "hi"})
	assert.Equal(t, core.FailureSentinel, out)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, 1, req.MaxTokens)
		_ = json.NewEncoder(w).Encode(chatOK("."))
	}))
	defer srv.Close()

	c := NewOpenAICompatible(ClientConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()}, logging.NewNop())
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}
