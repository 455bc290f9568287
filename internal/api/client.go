package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joescharf/ptime/internal/tracker"
)

// Error is a non-2xx response from the daemon.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Client talks to a running ptime daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the daemon listening on addr (host:port or
// a full URL).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{baseURL: base, http: &http.Client{Timeout: 5 * time.Second}}
}

// Activate starts tracking. Empty fields fall back to the daemon's last
// known context.
func (c *Client) Activate(ctx context.Context, project, branch string) (*tracker.State, error) {
	var st tracker.State
	err := c.do(ctx, http.MethodPost, "/api/v1/activate", ActivateRequest{Project: project, Branch: branch}, &st)
	return &st, err
}

// Deactivate stops tracking.
func (c *Client) Deactivate(ctx context.Context) (*tracker.State, error) {
	var st tracker.State
	err := c.do(ctx, http.MethodPost, "/api/v1/deactivate", nil, &st)
	return &st, err
}

// SwitchBranch reports a branch change.
func (c *Client) SwitchBranch(ctx context.Context, branch string) (*tracker.State, error) {
	var st tracker.State
	err := c.do(ctx, http.MethodPost, "/api/v1/context", ContextRequest{Branch: branch}, &st)
	return &st, err
}

// Status returns the tracker state and today's total.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var st StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Today returns today's totals.
func (c *Client) Today(ctx context.Context) (*TodayResponse, error) {
	var t TodayResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/today", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RangeReport fetches the raw range report JSON for [start, end].
func (c *Client) RangeReport(ctx context.Context, start, end string) (json.RawMessage, error) {
	q := url.Values{"start": {start}, "end": {end}}
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/v1/report/range?"+q.Encode(), nil, &raw)
	return raw, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
