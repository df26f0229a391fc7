package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientComplete(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Comprar linha.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "secret", BaseURL: srv.URL + "/", Temperature: 0.3})
	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "Comprar linha.", out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "rate limited")
}

func TestClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "no choices")
}

func TestClientDisabled(t *testing.T) {
	c := NewClient(config.LLMConfig{})
	assert.False(t, c.Enabled())
	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrDisabled)
}
