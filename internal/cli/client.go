package cli

import (
	"bufio"
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

	"github.com/serwidlick/backstage/web"
)

// Client is an HTTP client for the backstage console API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client. The token may be empty when the
// server runs without authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetStatus gets the console status
func (c *Client) GetStatus() (*web.StatusResponse, error) {
	var resp web.StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryParams contains parameters for log queries
type QueryParams struct {
	MinLevel      string
	Tag           string
	Query         string
	Regex         bool
	CaseSensitive bool
	Since         string
	Until         string
	Limit         int
	Offset        int
}

func (p QueryParams) values() url.Values {
	query := url.Values{}
	if p.MinLevel != "" {
		query.Set("min_level", p.MinLevel)
	}
	if p.Tag != "" {
		query.Set("tag", p.Tag)
	}
	if p.Query != "" {
		query.Set("q", p.Query)
	}
	if p.Regex {
		query.Set("regex", "true")
	}
	if p.CaseSensitive {
		query.Set("case", "true")
	}
	if p.Since != "" {
		query.Set("since", p.Since)
	}
	if p.Until != "" {
		query.Set("until", p.Until)
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		query.Set("offset", strconv.Itoa(p.Offset))
	}
	return query
}

// GetLogs gets logs with optional filtering
func (c *Client) GetLogs(params QueryParams) (*web.LogsResponse, error) {
	path := "/api/v1/logs"
	if query := params.values(); len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp web.LogsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamLogs streams live entries and calls the callback for each one.
// It blocks until the server closes the stream, the context is
// cancelled, or an error occurs.
func (c *Client) StreamLogs(ctx context.Context, params QueryParams, callback func(web.EntryResponse)) error {
	path := "/api/v1/logs/stream"
	if query := params.values(); len(query) > 0 {
		path += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.addAuthHeader(req)

	// No client timeout on a stream; cancellation comes from the context
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			var entry web.EntryResponse
			if err := json.Unmarshal([]byte(data), &entry); err == nil {
				callback(entry)
			}
		}
	}
}

// StreamEntries streams all entries without filtering. It exists so the
// client satisfies the TUI's interface.
func (c *Client) StreamEntries(ctx context.Context, fn func(web.EntryResponse)) error {
	return c.StreamLogs(ctx, QueryParams{}, fn)
}

// GetEnabled reads the console enabled flag
func (c *Client) GetEnabled() (bool, error) {
	var resp web.EnabledResponse
	if err := c.get("/api/v1/enabled", &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// SetEnabled flips the console enabled flag
func (c *Client) SetEnabled(enabled bool) error {
	var resp web.EnabledResponse
	return c.postJSON("/api/v1/enabled", web.SetEnabledRequest{Enabled: &enabled}, &resp)
}

// Clear empties the entry store
func (c *Client) Clear() error {
	var resp web.SuccessResponse
	return c.post("/api/v1/clear", &resp)
}

// Pause suspends live delivery while the store keeps recording
func (c *Client) Pause() error {
	var resp web.SuccessResponse
	return c.post("/api/v1/pause", &resp)
}

// Resume reinstates live delivery
func (c *Client) Resume() error {
	var resp web.SuccessResponse
	return c.post("/api/v1/resume", &resp)
}

func (c *Client) get(path string, v interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(path string, v interface{}) error {
	return c.doPost(path, nil, v)
}

func (c *Client) postJSON(path string, body interface{}, v interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.doPost(path, bytes.NewReader(data), v)
}

func (c *Client) doPost(path string, body io.Reader, v interface{}) error {
	req, err := http.NewRequest("POST", c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// decodeError turns an API error response into a Go error
func decodeError(resp *http.Response) error {
	var errResp web.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

// addAuthHeader adds the Authorization header if a token is available
func (c *Client) addAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
