package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/pkg/circuitbreaker"
)

// Reply is the agent's final output for one exchange. Recommendations is
// set when the agent judged it produced actionable clinical output in this
// turn; the relay records it as durable evidence.
type Reply struct {
	Answer          string `json:"answer"`
	Recommendations string `json:"recommendations,omitempty"`
}

// Client is the boundary to the external conversational agent. The agent
// keeps its own per-session state keyed by the session identity we pass; we
// only interpret its final output, never its reasoning.
type Client interface {
	Ask(ctx context.Context, sessionID, message string) (*Reply, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

func NewHTTPClient(cfg config.AgentConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "agent",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (c *httpClient) Ask(ctx context.Context, sessionID, message string) (*Reply, error) {
	body, err := json.Marshal(askRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent request: %w", err)
	}

	var reply Reply
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/relay", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build agent request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("agent call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("agent returned status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return fmt.Errorf("failed to decode agent response: %w", err)
		}
		if reply.Answer == "" {
			return fmt.Errorf("agent returned empty answer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}
