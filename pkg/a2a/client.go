package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a minimal A2A client for talking to a mounted agent over HTTP.
// It speaks the JSON-RPC envelope and the card discovery endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the pool at baseURL (e.g. "http://localhost:8000").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs a JSON-RPC call against the named agent and returns the raw
// result. A JSON-RPC error in the response is returned as *Error.
func (c *Client) Send(ctx context.Context, agent, method string, params map[string]any) (json.RawMessage, error) {
	id, err := json.Marshal(uuid.NewString())
	if err != nil {
		return nil, err
	}

	req := Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      id,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/a2a", c.baseURL, agent)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("agent %q is not mounted", agent)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// GetCard fetches the named agent's card.
func (c *Client) GetCard(ctx context.Context, agent string) (*AgentCard, error) {
	url := fmt.Sprintf("%s/%s/", c.baseURL, agent)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent %q card fetch returned %d", agent, httpResp.StatusCode)
	}

	var card AgentCard
	if err := json.NewDecoder(httpResp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}

// AgentStatus is one agent's entry in a pool health report.
type AgentStatus struct {
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Generation uint64 `json:"generation"`
}

// HealthSnapshot is the pool-wide health report served at /health.
type HealthSnapshot struct {
	Status string                 `json:"status"`
	Agents map[string]AgentStatus `json:"agents"`
}

// Health fetches the pool-wide health report. The report is returned for any
// pool status; only transport or decoding failures produce an error.
func (c *Client) Health(ctx context.Context) (*HealthSnapshot, error) {
	url := c.baseURL + "/health"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health fetch returned %d", httpResp.StatusCode)
	}

	var snapshot HealthSnapshot
	if err := json.NewDecoder(httpResp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode health report: %w", err)
	}
	return &snapshot, nil
}
