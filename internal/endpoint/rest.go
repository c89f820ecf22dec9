package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nova-explorer/roverd/internal/httputil"
	"github.com/nova-explorer/roverd/internal/nav"
)

const (
	// DefaultReadTimeout bounds telemetry fetches.
	DefaultReadTimeout = 10 * time.Second
	// DefaultCommandTimeout bounds command posts, which the live API
	// services more slowly than reads.
	DefaultCommandTimeout = 15 * time.Second
)

// RESTClient drives the session-based rover HTTP API.
type RESTClient struct {
	base           string
	http           httputil.HTTPClient
	readTimeout    time.Duration
	commandTimeout time.Duration
}

// NewRESTClient builds a client for the API at base (scheme://host[:port]).
// A nil hc uses the default HTTP client.
func NewRESTClient(base string, hc httputil.HTTPClient) *RESTClient {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &RESTClient{
		base:           strings.TrimRight(base, "/"),
		http:           hc,
		readTimeout:    DefaultReadTimeout,
		commandTimeout: DefaultCommandTimeout,
	}
}

// SetTimeouts overrides the read and command timeouts. Zero values keep
// the current setting.
func (c *RESTClient) SetTimeouts(read, command time.Duration) {
	if read > 0 {
		c.readTimeout = read
	}
	if command > 0 {
		c.commandTimeout = command
	}
}

// StartSession implements Client via POST /api/session/start.
func (c *RESTClient) StartSession(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/session/start", nil, c.commandTimeout)
	if err != nil {
		return "", err
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("session response missing session_id")
	}
	return resp.SessionID, nil
}

// Telemetry implements Client via GET /api/rover/status.
func (c *RESTClient) Telemetry(ctx context.Context, sessionID string) (map[string]any, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	q := url.Values{"session_id": {sessionID}}
	body, err := c.do(ctx, http.MethodGet, "/api/rover/status?"+q.Encode(), nil, c.readTimeout)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return record, nil
}

// SendAction implements Client. Moves go through /api/rover/move with a
// direction parameter; stop and deploy_aid have their own endpoints. The
// wire direction names differ from the action names for turns.
func (c *RESTClient) SendAction(ctx context.Context, sessionID string, action nav.Action) error {
	if sessionID == "" {
		return ErrNoSession
	}
	q := url.Values{"session_id": {sessionID}}
	var path string
	switch action {
	case nav.Stop:
		path = "/api/rover/stop"
	case nav.DeployAid:
		path = "/api/rover/deploy_aid"
	case nav.Forward, nav.Backward, nav.TurnLeft, nav.TurnRight:
		q.Set("direction", wireDirection(action))
		path = "/api/rover/move"
	default:
		return fmt.Errorf("action %q is not dispatchable", action)
	}
	_, err := c.do(ctx, http.MethodPost, path+"?"+q.Encode(), nil, c.commandTimeout)
	return err
}

// Stop implements Client via POST /api/rover/stop.
func (c *RESTClient) Stop(ctx context.Context, sessionID string) error {
	return c.SendAction(ctx, sessionID, nav.Stop)
}

// wireDirection maps turn actions onto the API's direction vocabulary.
func wireDirection(action nav.Action) string {
	switch action {
	case nav.TurnLeft:
		return "left"
	case nav.TurnRight:
		return "right"
	default:
		return string(action)
	}
}

func (c *RESTClient) do(ctx context.Context, method, path string, body io.Reader, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}
