package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"battsim/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.OpenAIConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Model:       "gpt-4",
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	}, zap.NewNop())
	return client, server
}

func completionBody(text string) string {
	return `{"choices":[{"message":{"content":"` + text + `"}}]}`
}

func TestClientAsk(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4", req["model"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(completionBody("An SPM is a single particle model.")))
		})

		answer, err := client.Ask(context.Background(), "What is an SPM?")
		require.NoError(t, err)
		assert.Equal(t, "An SPM is a single particle model.", answer)
	})

	t.Run("AuthError", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		})
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrProviderAuth)
	})

	t.Run("ForbiddenIsAuthError", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrProviderAuth)
	})

	t.Run("RateLimited", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		})
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrProviderRateLimited)
	})

	t.Run("ServerErrorIsUnavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("StableMappingAcrossCalls", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		})
		for i := 0; i < 3; i++ {
			_, err := client.Ask(context.Background(), "hi")
			assert.ErrorIs(t, err, ErrProviderRateLimited)
		}
	})

	t.Run("OtherClientErrorIsGeneric", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad request", http.StatusBadRequest)
		})
		_, err := client.Ask(context.Background(), "hi")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrProviderAuth)
		assert.NotErrorIs(t, err, ErrProviderRateLimited)
		assert.NotErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("ConnectionFailureIsUnavailable", func(t *testing.T) {
		client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("EmptyChoices", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		})
		_, err := client.Ask(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})
}
