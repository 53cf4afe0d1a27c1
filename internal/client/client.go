// Package client talks to the feedback API on behalf of the widget and the
// dashboard. One Client serves both deployment modes; the mode only changes
// which endpoint set is used.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"squashfeature/internal/models"
)

type Mode string

const (
	// ModeSelfHosted names the project in the X-Project-Id header.
	ModeSelfHosted Mode = "self-hosted"
	// ModeHosted names the project in the URL path.
	ModeHosted Mode = "hosted"
)

type Client struct {
	baseURL string
	apiKey  string
	origin  string
	mode    Mode
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOrigin sets the Origin header sent with every call.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

func New(baseURL, apiKey string, mode Mode, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		mode:    mode,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Origin() string { return c.origin }

// CreateItem submits a new feedback item to the ingestion endpoint.
func (c *Client) CreateItem(ctx context.Context, projectID string, req models.CreateItemRequest) error {
	var resp models.CreateItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/requests", projectID, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Status: http.StatusOK, Message: "Failed to submit feedback"}
	}
	return nil
}

// FetchDashboard returns the project and its items, newest first.
func (c *Client) FetchDashboard(ctx context.Context, projectID string) (*Dashboard, error) {
	var (
		method = http.MethodPost
		path   = "/api/projects/self-hosted/dashboard"
	)
	if c.mode == ModeHosted {
		method = http.MethodGet
		path = "/api/projects/" + url.PathEscape(projectID) + "/dashboard"
	}

	var dash Dashboard
	if err := c.do(ctx, method, path, projectID, nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// Vote registers one vote and returns the server's count after the vote.
func (c *Client) Vote(ctx context.Context, projectID, itemID string) (int64, error) {
	path := "/api/projects/self-hosted/vote"
	var body interface{} = models.VoteRequest{RequestID: itemID}
	if c.mode == ModeHosted {
		path = "/api/projects/" + url.PathEscape(projectID) + "/requests/" + url.PathEscape(itemID) + "/vote"
		body = nil
	}

	var resp models.VoteResponse
	if err := c.do(ctx, http.MethodPost, path, projectID, body, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &APIError{Status: http.StatusOK, Message: "Failed to vote"}
	}
	return resp.Votes, nil
}

func (c *Client) do(ctx context.Context, method, path, projectID string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Project-Id", projectID)
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %w", err)}
	}
	return nil
}

// Timestamp accepts both RFC 3339 strings and {seconds, nanoseconds}
// objects, since hosted deployments emit the latter.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return t.Time.UnmarshalJSON(b)
	}
	var parts struct {
		Seconds     int64 `json:"seconds"`
		Nanoseconds int64 `json:"nanoseconds"`
	}
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	t.Time = time.Unix(parts.Seconds, parts.Nanoseconds).UTC()
	return nil
}

// Item is a feedback item as the dashboard sees it.
type Item struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Type        models.FeedbackType `json:"type"`
	Status      string              `json:"status"`
	Votes       int64               `json:"votes"`
	CreatedAt   *Timestamp          `json:"createdAt,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

type Dashboard struct {
	Project  models.ProjectSummary `json:"project"`
	Requests []Item                `json:"requests"`
}
