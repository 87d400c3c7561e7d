package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preassess/portal-api/internal/config"
)

func TestAskSendsSessionAndMessage(t *testing.T) {
	var got askRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/relay", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Reply{Answer: "hello", Recommendations: "rest"})
	}))
	defer srv.Close()

	client := NewHTTPClient(config.AgentConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second})

	reply, err := client.Ask(context.Background(), "sid-1", "I feel fine")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Answer)
	assert.Equal(t, "rest", reply.Recommendations)
	assert.Equal(t, "sid-1", got.SessionID)
	assert.Equal(t, "I feel fine", got.Message)
}

func TestAskRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(config.AgentConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := client.Ask(context.Background(), "sid-1", "hello")
	assert.Error(t, err)
}

func TestAskRejectsEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Reply{})
	}))
	defer srv.Close()

	client := NewHTTPClient(config.AgentConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := client.Ask(context.Background(), "sid-1", "hello")
	assert.Error(t, err)
}
