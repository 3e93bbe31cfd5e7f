package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/hotboard/internal/domain/types"
)

// Event is the wire shape of POST /events.
type Event struct {
	EventID  string `json:"event_id,omitempty"`
	EntityID string `json:"entity_id"`
	Action   string `json:"action"`
	TS       string `json:"ts,omitempty"`
}

// Ack is the body returned for an accepted or duplicate event.
type Ack struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Client talks to a running hotboard server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the server answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
	return err
}

// PostEvent submits one event. A 429 maps to ErrBackpressure.
func (c *Client) PostEvent(ctx context.Context, e Event) (Ack, error) {
	var ack Ack
	status, err := c.do(ctx, http.MethodPost, "/events", e, &ack, http.StatusAccepted, http.StatusOK)
	if status == http.StatusTooManyRequests {
		return ack, ErrBackpressure
	}
	return ack, err
}

// Recompute triggers a recompute of board ("daily" or "weekly"). A zero now
// lets the server use its clock.
func (c *Client) Recompute(ctx context.Context, board string, now time.Time) (types.RecomputeReport, error) {
	path := "/recompute/" + url.PathEscape(board)
	if !now.IsZero() {
		path += "?now=" + url.QueryEscape(now.UTC().Format(time.RFC3339))
	}
	var report types.RecomputeReport
	_, err := c.do(ctx, http.MethodPost, path, nil, &report, http.StatusOK)
	return report, err
}

// Leaderboard reads one page of board.
func (c *Client) Leaderboard(ctx context.Context, board string, page, size int) (types.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var out types.Page
	_, err := c.do(ctx, http.MethodGet, "/leaderboard/"+url.PathEscape(board)+"?"+q.Encode(), nil, &out, http.StatusOK)
	return out, err
}

// Stats returns the server statistics map.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	_, err := c.do(ctx, http.MethodGet, "/stats", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, want ...int) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	ok := false
	for _, s := range want {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil && len(raw) > 0 && json.Valid(raw) {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
