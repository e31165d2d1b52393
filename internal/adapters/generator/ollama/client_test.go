package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestGenerateSendsNonStreamingRequest(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-r1:8b", body["model"])
		assert.Equal(t, "hello", body["prompt"])
		assert.Equal(t, false, body["stream"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"deepseek-r1:8b","response":"<think></think>是","done":true}` + "\n"))
	})

	got, err := client.Generate(context.Background(), "deepseek-r1:8b", "hello")
	require.NoError(t, err)
	assert.Equal(t, "<think></think>是", got)
}

func TestGenerateWrapsServerErrorsAsServiceErrors(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"missing\" not found"}`))
	})

	_, err := client.Generate(context.Background(), "missing", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceError)
	assert.Contains(t, err.Error(), "missing")
}

func TestProbe(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"deepseek-r1:8b","model":"deepseek-r1:8b"}]}`))
		default:
			http.NotFound(w, r)
		}
	}

	tests := []struct {
		name    string
		model   string
		wantErr string
	}{
		{name: "model present", model: "deepseek-r1:8b"},
		{name: "model missing", model: "qwen3:4b", wantErr: "ollama pull qwen3:4b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, handler)

			err := client.Probe(context.Background(), tt.model)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrServiceError)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClientRejectsHostWithoutScheme(t *testing.T) {
	_, err := NewClient("localhost:11434", time.Second)
	require.Error(t, err)
}
