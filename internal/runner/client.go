// Package runner provides a client for the Generation Runner REST API — the
// opaque backend that executes shot workflows and produces the finished
// videos and credit charges.
//
// The runner is reached only through its status contract:
//
//  1. POST /workflows/execute submits a job and returns an execution id
//  2. GET /workflows/{id} reports execution progress until a terminal state
//  3. POST /workflows/{id}/decision answers mid-flight decision points
//  4. GET /workflows/{id}/partial-delivery fetches the delivered-asset and
//     refund breakdown after a premium take is rejected
//  5. POST /workflows/price estimates per-shot credit prices
//
// The client never interprets generation internals; it only maps the wire
// contract onto typed results and sentinel errors.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultTimeout is the HTTP client timeout for runner calls.
	defaultTimeout = 30 * time.Second
)

// Sentinel errors for status responses that are fatal to polling.
var (
	// ErrExecutionNotFound maps a 404 from the status endpoint: the
	// execution is unknown or expired and must not be polled again.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrUnauthorized maps a 401: the runner token is no longer valid
	// and the operator must reauthenticate.
	ErrUnauthorized = errors.New("runner authentication rejected")
)

// Client provides methods for submitting and tracking workflow executions.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a Generation Runner client for the given endpoint.
// token may be empty for runners that authenticate by network boundary.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// Execute submits a workflow execution and returns the runner's execution id.
func (c *Client) Execute(ctx context.Context, req *ExecuteRequest) (string, error) {
	log.Debug().
		Int("shots", len(req.Shots)).
		Str("tier", string(req.QualityTier)).
		Int("characterRefs", len(req.CharacterReferences)).
		Msg("Submitting workflow execution")

	var resp executeResponse
	if err := c.postJSON(ctx, "/workflows/execute", req, &resp); err != nil {
		return "", fmt.Errorf("execute workflow: %w", err)
	}
	if !resp.Success || resp.ExecutionID == "" {
		return "", fmt.Errorf("execute workflow: runner rejected submission: %s", resp.Error)
	}

	log.Info().Str("executionId", resp.ExecutionID).Msg("Workflow execution submitted")
	return resp.ExecutionID, nil
}

// Execution fetches the current state of an execution.
//
// A 404 returns ErrExecutionNotFound and a 401 returns ErrUnauthorized; both
// are terminal for polling and must stop the poll loop immediately.
func (c *Client) Execution(ctx context.Context, id string) (*Execution, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/workflows/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution status request: %w", err)
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("execution %s: %w", id, ErrExecutionNotFound)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("execution %s: %w", id, ErrUnauthorized)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution status: unexpected HTTP %d (body: %s)",
			httpResp.StatusCode, truncate(string(body), 200))
	}

	var resp executionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if !resp.Success || resp.Execution == nil {
		return nil, fmt.Errorf("execution status: runner error: %s", resp.Error)
	}

	return resp.Execution, nil
}

// Decide answers a mid-flight decision point (continue without audio, or
// cancel the run). The runner acknowledges with a bare success flag.
func (c *Client) Decide(ctx context.Context, id string, decision Decision) error {
	log.Debug().Str("executionId", id).Str("decision", string(decision)).Msg("Sending workflow decision")

	var resp decisionResponse
	err := c.postJSON(ctx, "/workflows/"+id+"/decision", decisionRequest{Decision: decision}, &resp)
	if err != nil {
		return fmt.Errorf("decision %q for %s: %w", decision, id, err)
	}
	if !resp.Success {
		return fmt.Errorf("decision %q for %s: runner error: %s", decision, id, resp.Error)
	}
	return nil
}

// PartialDelivery fetches the delivered asset and refund breakdown for an
// execution that ended in partial delivery.
//
// The refund figures are untrusted display data sourced entirely from the
// runner; callers must never feed them into further arithmetic.
func (c *Client) PartialDelivery(ctx context.Context, id string) (*PartialDeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/workflows/"+id+"/partial-delivery", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partial delivery request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partial delivery: unexpected HTTP %d (body: %s)",
			httpResp.StatusCode, truncate(string(body), 200))
	}

	var resp partialDeliveryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if !resp.Success || resp.Delivery == nil {
		return nil, fmt.Errorf("partial delivery: runner error: %s", resp.Error)
	}

	log.Info().
		Str("executionId", id).
		Str("assetUrl", resp.Delivery.AssetURL).
		Int("refundedCredits", resp.Delivery.RefundedCredits).
		Msg("Partial delivery details fetched")
	return resp.Delivery, nil
}

// Price asks the runner for per-shot credit prices.
func (c *Client) Price(ctx context.Context, req *PriceRequest) (*PriceResponse, error) {
	var resp PriceResponse
	if err := c.postJSON(ctx, "/workflows/price", req, &resp); err != nil {
		return nil, fmt.Errorf("price workflow: %w", err)
	}
	return &resp, nil
}

// --- Internal helpers ---

// authorize attaches the bearer token when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// postJSON sends a JSON POST and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	startTime := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	log.Debug().Str("method", http.MethodPost).Str("path", endpoint).Msg("Runner API request")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Runner API response")
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Runner API response")

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch httpResp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrExecutionNotFound
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return fmt.Errorf("unexpected HTTP %d (body: %s)", httpResp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(respBody), 200))
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
