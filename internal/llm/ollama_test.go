package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req["format"])
		assert.Equal(t, false, req["stream"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"intent":"greet"}`},
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1")
	out, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "you are ghost"},
		{Role: "user", Content: "hello"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"greet"}`, out)
}

func TestOllamaClient_NoJSONModeOmitsFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, hasFormat := req["format"]
		assert.False(t, hasFormat)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "ok"},
		})
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "").Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, false)
	require.NoError(t, err)
}

func TestOllamaClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut it down before use

	_, err := NewOllamaClient(srv.URL, "").Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, true)
	assert.Error(t, err)
}

func TestOllamaClient_ServiceErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not loaded"})
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "").Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}
