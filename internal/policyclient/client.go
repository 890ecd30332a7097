// Package policyclient is the outbound HTTP client for the external Policy
// service: it answers the router's "is this service enabled" question and
// the mediator's per-call approve/deny/unavailable check. It follows the
// teacher's pooled httpClient shape (mcpcli/http.go: wrap *http.Client,
// context.WithTimeout per call, decode the JSON response), with the
// UI-facing HTTPTransaction recording dropped since this client has no
// interactive caller to show a transaction log to. Failures are not returned
// as errors: they become DecisionUnavailable or ok=false.
package policyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Decision is the outcome of an argument-level policy check (spec.md §3.3).
type Decision int

const (
	DecisionApproved Decision = iota
	DecisionDenied
	DecisionUnavailable
)

// CheckResult is the mediator-facing result of CheckCall.
type CheckResult struct {
	Decision Decision
	Reason   string // set iff Decision == DecisionDenied
}

// Client talks to the external Policy service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		timeout:    timeout,
	}
}

type checkRequest struct {
	TenantID  string         `json:"tenantId"`
	UserID    string         `json:"userId"`
	Service   string         `json:"service"`
	Operation string         `json:"operation"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type checkResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// CheckCall asks the Policy service to approve or deny one tool call. Any
// transport failure (dial error, any status other than 200, malformed body) is reported as
// DecisionUnavailable rather than an error, matching spec.md §3.3's
// "unavailable" outcome — the mediator maps this directly to
// POLICY_UNAVAILABLE without inspecting the error value.
func (c *Client) CheckCall(ctx context.Context, tenantID, userID, service, operation string, metadata map[string]any) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(checkRequest{
		TenantID:  tenantID,
		UserID:    userID,
		Service:   service,
		Operation: operation,
		Metadata:  metadata,
	})
	if err != nil {
		return CheckResult{Decision: DecisionUnavailable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/policy/check", bytes.NewReader(body))
	if err != nil {
		return CheckResult{Decision: DecisionUnavailable}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CheckResult{Decision: DecisionUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{Decision: DecisionUnavailable}
	}

	var decoded checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return CheckResult{Decision: DecisionUnavailable}
	}

	if !decoded.Approved {
		return CheckResult{Decision: DecisionDenied, Reason: decoded.Reason}
	}
	return CheckResult{Decision: DecisionApproved}
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

// IsServiceEnabled implements router.EnabledStateSource. ok=false signals
// the Policy service was unreachable or answered with a status other than
// 200 or a malformed body, telling the caller to fall back to the
// YAML-configured enabled flag (spec.md §4.1).
func (c *Client) IsServiceEnabled(ctx context.Context, name string) (enabled bool, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/policy/services/%s/enabled", c.baseURL, name), nil)
	if err != nil {
		return false, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, false
	}

	var decoded enabledResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, false
	}
	return decoded.Enabled, true
}

// GetEnabledServices returns the full set of service names the Policy
// service currently reports enabled. ok=false means the service was
// unreachable.
func (c *Client) GetEnabledServices(ctx context.Context) (names []string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/policy/services/enabled", nil)
	if err != nil {
		return nil, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var decoded struct {
		Services []string `json:"services"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false
	}
	return decoded.Services, true
}
