package allocator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request is the body the allocation service expects. Both fields carry
// JSON that has already been serialised to a string.
type Request struct {
	PeopleStr string `json:"peopleStr"`
	ChoresStr string `json:"choresStr"`
}

type response struct {
	Result string `json:"result"`
}

// Client calls the external chore allocation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// means 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Allocate posts the ranking matrix and returns the service's raw result
// text. The text is untrusted and may be wrapped in formatting fences.
func (c *Client) Allocate(ctx context.Context, r Request) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("allocator url not configured")
	}

	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chore", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("allocate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("allocate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var ar response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ar); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return ar.Result, nil
}
