// Package scanapi talks to the remote scanning service over HTTP/JSON.
package scanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const (
	DevBaseURL        = "https://josh-pensar-api.pensar-ai.com"
	StagingBaseURL    = "https://staging-api.pensar.dev"
	ProductionBaseURL = "https://pensar-api.pensar.dev"

	dispatchPath = "/scans/github/dispatch"
	statusPath   = "/scans/github/status"
	issuesPath   = "/scans/github/issues"

	maxBodyBytes = 16 << 20
)

// BaseURLFor maps the environment selector to a base URL; unknown values mean production.
func BaseURLFor(environment string) string {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "dev":
		return DevBaseURL
	case "staging":
		return StagingBaseURL
	default:
		return ProductionBaseURL
	}
}

// Client implements scans.ScanAPI.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Dispatch POSTs the scan request once.
func (c *Client) Dispatch(ctx context.Context, t domain.TriggerContext) error {
	req := dispatchRequest{
		APIKey:       c.apiKey,
		RepoID:       t.RepoID,
		EventType:    string(t.EventType),
		ActionRunID:  t.RunID,
		TargetBranch: t.TargetBranch,
	}
	if t.PullRequestURL != "" {
		pr := t.PullRequestURL
		req.PullRequest = &pr
	}

	status, body, err := c.post(ctx, dispatchPath, req)
	if err != nil {
		return &domain.Error{Kind: domain.ErrDispatch, Err: err}
	}
	if !ok(status) {
		e := &domain.Error{Kind: domain.ErrDispatch, Status: status}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil {
			e.Detail = msg.Message
		}
		return e
	}
	return nil
}

// Status asks for the scan of repoID/runID. 404 is reported as not visible, not as an error.
func (c *Client) Status(ctx context.Context, repoID, runID int64) (domain.StatusReport, error) {
	status, body, err := c.post(ctx, statusPath, statusRequest{APIKey: c.apiKey, RepoID: repoID, ActionRunID: runID})
	if err != nil {
		return domain.StatusReport{}, &domain.Error{Kind: domain.ErrTransientQuery, Err: err}
	}
	if status == http.StatusNotFound {
		return domain.StatusReport{Visible: false}, nil
	}
	if !ok(status) {
		return domain.StatusReport{}, &domain.Error{Kind: domain.ErrTransientQuery, Status: status, Detail: strings.TrimSpace(string(body))}
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.StatusReport{}, &domain.Error{Kind: domain.ErrTransientQuery, Detail: "invalid status response", Err: err}
	}
	report, err := resp.toDomain()
	if err != nil {
		return domain.StatusReport{}, &domain.Error{Kind: domain.ErrTransientQuery, Detail: "invalid status response", Err: err}
	}
	return report, nil
}

// Issues fetches the findings of a finished scan.
func (c *Client) Issues(ctx context.Context, id domain.ScanID) ([]domain.Finding, error) {
	status, body, err := c.post(ctx, issuesPath, issuesRequest{APIKey: c.apiKey, ScanID: string(id)})
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrFetch, Err: err}
	}
	if !ok(status) {
		return nil, &domain.Error{Kind: domain.ErrFetch, Status: status, Detail: strings.TrimSpace(string(body))}
	}

	var resp issuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.Error{Kind: domain.ErrFetch, Detail: "invalid issues response", Err: err}
	}
	findings, err := resp.toDomain()
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrFetch, Detail: "invalid issues response", Err: err}
	}
	return findings, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

func ok(status int) bool { return status >= 200 && status <= 299 }
