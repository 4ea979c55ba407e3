package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neromous/Beaver/internal/config"
)

func testOptions() Options {
	return Options{
		Timeout:        5 * time.Second,
		Retries:        3,
		RetryBaseDelay: time.Millisecond,
	}
}

func completionBody(text string) string {
	return `{
		"model": "test-model",
		"choices": [{"message": {"content": ` + mustJSON(text) + `}}],
		"usage": {"prompt_tokens": 4, "completion_tokens": 2, "total_tokens": 6}
	}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080/v1/chat/completions", "http://localhost:8080/v1/chat/completions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeEndpoint(tt.in))
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody("hello back")))
	}))
	defer srv.Close()

	c := NewOpenAI(config.APIConfig{
		URL: srv.URL + "/v1", Model: "test-model", SecretKey: "sk-test",
	}, testOptions())

	temp := 0.5
	resp, err := c.Complete(context.Background(), Request{
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Text)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 6, resp.Usage.TotalTokens)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model, "client fills the configured model")
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, 0.5, *gotReq.Temperature, 1e-9)
	assert.Nil(t, gotReq.MaxTokens, "unset sampling fields stay off the wire")
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody("third time lucky")))
	}))
	defer srv.Close()

	c := NewOpenAI(config.APIConfig{URL: srv.URL, Model: "m"}, testOptions())
	resp, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAI(config.APIConfig{URL: srv.URL, Model: "m"}, testOptions())
	_, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusTooManyRequests, ae.Status)
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad api key"}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(config.APIConfig{URL: srv.URL, Model: "m"}, testOptions())
	_, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses are terminal")

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "bad api key", ae.Message, "message extracted from the error body")
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "m", "choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAI(config.APIConfig{URL: srv.URL, Model: "m"}, testOptions())
	_, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	assert.ErrorContains(t, err, "no choices")
}

func TestStatusErrorFallbackMessages(t *testing.T) {
	err := statusError(http.StatusForbidden, nil)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "authentication failed", ae.Message)

	err = statusError(http.StatusNotFound, []byte{})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "endpoint not found", ae.Message)
}

func TestNewSelectsClientByType(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, config.APIConfig{URL: "http://x", Model: "m"}, testOptions())
	require.NoError(t, err)
	_, ok := c.(*OpenAIClient)
	assert.True(t, ok, "empty type defaults to openai")

	_, err = New(ctx, config.APIConfig{Type: "carrier-pigeon"}, testOptions())
	assert.ErrorContains(t, err, "unsupported provider type")
}

func TestKnownRole(t *testing.T) {
	for _, role := range []string{RoleSystem, RoleUser, RoleAssistant, RoleFunction, RoleTool} {
		assert.True(t, KnownRole(role), role)
	}
	assert.False(t, KnownRole("narrator"))
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 60*time.Second, o.Timeout)
	assert.Equal(t, 3, o.Retries)
	assert.NotNil(t, o.Logger)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&APIError{Status: 500}))
	assert.True(t, retryable(&APIError{Status: 429}))
	assert.False(t, retryable(&APIError{Status: 400}))
	assert.False(t, retryable(errors.New("plain")))
}
