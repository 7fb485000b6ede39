package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer returns an httptest server answering the chat-completions shape.
func chatServer(t *testing.T, content string, tokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.1, req["temperature"])
		assert.Equal(t, float64(2048), req["max_tokens"])

		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])

		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
			"usage": map[string]any{"total_tokens": tokens},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func spec(url string) ProviderSpec {
	return ProviderSpec{Provider: "local", Model: "test-model", BaseURL: url}
}

func TestGeneratePrimarySuccess(t *testing.T) {
	srv := chatServer(t, `{"severity":"ok"}`, 321)
	defer srv.Close()

	c := NewClient(spec(srv.URL), ProviderSpec{}, Options{})
	resp := c.Generate(context.Background(), "rubric", "input", time.Second)

	require.False(t, resp.Failed())
	assert.Equal(t, `{"severity":"ok"}`, resp.Content)
	assert.Equal(t, "local/test-model", resp.Model)
	assert.Equal(t, 321, resp.Tokens)
	assert.Positive(t, resp.DurationMS)
}

func TestGenerateFallbackAnswers(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	fallbackSrv := chatServer(t, `{"severity":"warn"}`, 100)
	defer fallbackSrv.Close()

	fb := ProviderSpec{Provider: "backup", Model: "small", BaseURL: fallbackSrv.URL}
	c := NewClient(spec(primary.URL), fb, Options{})
	resp := c.Generate(context.Background(), "sys", "user", time.Second)

	require.False(t, resp.Failed())
	assert.Equal(t, "backup/small", resp.Model, "model must name whichever provider answered")
	assert.Equal(t, 100, resp.Tokens)
}

// Both providers down: content empty, tokens zero, error names both failures,
// model is attributed to the primary even though it failed.
func TestGenerateBothProvidersFail(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(nil))
	dead.Close() // connection refused from here on

	primary := spec(dead.URL)
	fb := ProviderSpec{Provider: "backup", Model: "small", BaseURL: dead.URL}
	c := NewClient(primary, fb, Options{})
	resp := c.Generate(context.Background(), "sys", "user", time.Second)

	require.True(t, resp.Failed())
	assert.Empty(t, resp.Content)
	assert.Zero(t, resp.Tokens)
	assert.Equal(t, "local/test-model", resp.Model)
	assert.Contains(t, resp.Err, "local/test-model")
	assert.Contains(t, resp.Err, "backup/small")
	assert.Positive(t, resp.DurationMS)
}

func TestGenerateMalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "hello"},
		{"no choices", `{"choices": []}`},
		{"null content", `{"choices": [{"message": {"content": null}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(spec(srv.URL), ProviderSpec{}, Options{})
			resp := c.Generate(context.Background(), "sys", "user", time.Second)
			assert.True(t, resp.Failed(), "a deviating envelope is a failure, not a partial success")
		})
	}
}

func TestGenerateTimeoutIsBounded(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	c := NewClient(spec(slow.URL), ProviderSpec{}, Options{})
	start := time.Now()
	resp := c.Generate(context.Background(), "sys", "user", 100*time.Millisecond)

	assert.True(t, resp.Failed())
	assert.Less(t, time.Since(start), 2*time.Second, "call must resolve at the deadline, never hang")
}

func TestGenerateSharedDeadlineCoversFallback(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	fb := ProviderSpec{Provider: "backup", Model: "small", BaseURL: slow.URL}
	c := NewClient(spec(slow.URL), fb, Options{})
	start := time.Now()
	resp := c.Generate(context.Background(), "sys", "user", 200*time.Millisecond)

	assert.True(t, resp.Failed())
	assert.Less(t, time.Since(start), 2*time.Second,
		"the fallback shares the primary's deadline, it does not get a fresh one")
}

func TestProviderSpecID(t *testing.T) {
	s := ProviderSpec{Provider: "openai", Model: "gpt-4o-mini"}
	assert.Equal(t, "openai/gpt-4o-mini", s.ID())
}

func TestClientTimeoutFromSpec(t *testing.T) {
	s := spec("http://localhost:1")
	s.TimeoutSec = 5

	assert.Equal(t, 5*time.Second, NewClient(s, ProviderSpec{}, Options{}).timeout)
	assert.Equal(t, DefaultTimeout, NewClient(spec("http://localhost:1"), ProviderSpec{}, Options{}).timeout,
		"timeoutSec unset falls back to the default")
}

func TestGenerateZeroTimeoutUsesConfigured(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer slow.Close()

	s := spec(slow.URL)
	s.TimeoutSec = 1
	c := NewClient(s, ProviderSpec{}, Options{})

	start := time.Now()
	resp := c.Generate(context.Background(), "sys", "user", 0)

	assert.True(t, resp.Failed())
	assert.Less(t, time.Since(start), 5*time.Second,
		"timeout 0 resolves to the descriptor's timeoutSec, not to no deadline at all")
}
