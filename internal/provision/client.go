// Package provision talks to the remote management API that owns
// endpoint and monitor resources. The config store is the local cache of
// the identifiers this client brings back.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/vigilohq/agent/pkg/types"
)

const (
	endpointsPath = "/api/v1/endpoints"
	monitorsPath  = "/api/v1/monitors"
)

// ErrNotFound reports a 404 from the remote API.
var ErrNotFound = errors.New("resource not found")

// Config holds the static configuration for a provisioning client.
type Config struct {
	BaseURL string
	APIKey  string
}

// Logger is the minimal sink the client writes through.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Dependencies allow test overrides for HTTP client, request IDs, and
// logging.
type Dependencies struct {
	HTTPClient   *http.Client
	Logger       Logger
	NewRequestID func() string
}

// Client performs authenticated CRUD against the management API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	logger       Logger
	newRequestID func() string
}

// NewClient builds a provisioning client from configuration and
// dependencies.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if deps.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	newRequestID := deps.NewRequestID
	if newRequestID == nil {
		newRequestID = uuid.NewString
	}

	return &Client{
		httpClient:   deps.HTTPClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		logger:       logger,
		newRequestID: newRequestID,
	}, nil
}

// CreateEndpoint registers a host with the remote API.
func (c *Client) CreateEndpoint(ctx context.Context, req types.EndpointRequest) (types.Endpoint, error) {
	var ep types.Endpoint
	if req.Name == "" {
		return ep, fmt.Errorf("endpoint name is required")
	}
	if err := c.do(ctx, http.MethodPost, endpointsPath, req, &ep); err != nil {
		return ep, fmt.Errorf("create endpoint: %w", err)
	}
	c.logger.Infof("created endpoint %s (%s)", ep.Name, ep.ID)
	return ep, nil
}

// GetEndpoint fetches one endpoint by ID.
func (c *Client) GetEndpoint(ctx context.Context, id string) (types.Endpoint, error) {
	var ep types.Endpoint
	if id == "" {
		return ep, fmt.Errorf("endpoint ID is required")
	}
	if err := c.do(ctx, http.MethodGet, endpointsPath+"/"+url.PathEscape(id), nil, &ep); err != nil {
		return ep, fmt.Errorf("get endpoint %s: %w", id, err)
	}
	return ep, nil
}

// DeleteEndpoint removes one endpoint by ID.
func (c *Client) DeleteEndpoint(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("endpoint ID is required")
	}
	if err := c.do(ctx, http.MethodDelete, endpointsPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete endpoint %s: %w", id, err)
	}
	c.logger.Infof("deleted endpoint %s", id)
	return nil
}

// CreateMonitor registers a monitor with the remote API.
func (c *Client) CreateMonitor(ctx context.Context, req types.MonitorRequest) (types.Monitor, error) {
	var mon types.Monitor
	if req.Name == "" {
		return mon, fmt.Errorf("monitor name is required")
	}
	if req.EndpointID == "" {
		return mon, fmt.Errorf("endpoint ID is required")
	}
	if err := c.do(ctx, http.MethodPost, monitorsPath, req, &mon); err != nil {
		return mon, fmt.Errorf("create monitor: %w", err)
	}
	c.logger.Infof("created monitor %s (%s)", mon.Name, mon.ID)
	return mon, nil
}

// ListMonitors fetches the monitors attached to an endpoint.
func (c *Client) ListMonitors(ctx context.Context, endpointID string) ([]types.Monitor, error) {
	if endpointID == "" {
		return nil, fmt.Errorf("endpoint ID is required")
	}
	var monitors []types.Monitor
	path := monitorsPath + "?endpoint_id=" + url.QueryEscape(endpointID)
	if err := c.do(ctx, http.MethodGet, path, nil, &monitors); err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	return monitors, nil
}

// DeleteMonitor removes one monitor by ID.
func (c *Client) DeleteMonitor(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("monitor ID is required")
	}
	if err := c.do(ctx, http.MethodDelete, monitorsPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete monitor %s: %w", id, err)
	}
	c.logger.Infof("deleted monitor %s", id)
	return nil
}

// dataEnvelope is the response wrapper every API call returns.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vigilo-agent/0.0.1")
	req.Header.Set("X-Request-Id", c.newRequestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Errorf("%s %s failed: %s", method, path, resp.Status)
		return fmt.Errorf("request failed: status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	var envelope dataEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response has no data payload")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data payload: %w", err)
	}
	return nil
}
