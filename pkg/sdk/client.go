package ragway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the ragway SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a ragway Client.
func New(opts ...Option) *Client {
	cfg := &clientConfig{baseURL: defaultBaseURL}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = defaultHTTPClient()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		apiKey:  cfg.apiKey,
		http:    cfg.httpClient,
	}
}

// Chat sends a plain chat request and returns the generated response.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	req := struct {
		Message string `json:"message"`
	}{Message: message}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ChatWithContext sends a context-augmented chat request.
func (c *Client) ChatWithContext(ctx context.Context, message string, opts ChatOptions) (string, error) {
	req := struct {
		Message string `json:"message"`
		ChatOptions
	}{Message: message, ChatOptions: opts}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/context", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// AddDocuments indexes a batch of documents.
func (c *Client) AddDocuments(ctx context.Context, docs []Document) (int, error) {
	req := struct {
		Documents []Document `json:"documents"`
	}{Documents: docs}

	var resp struct {
		Indexed int `json:"indexed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/documents", req, &resp); err != nil {
		return 0, err
	}
	return resp.Indexed, nil
}

// Search runs a semantic search over the indexed corpus.
func (c *Client) Search(ctx context.Context, query string, k int, minScore float64) ([]SearchResult, error) {
	req := struct {
		Query    string  `json:"query"`
		K        int     `json:"k,omitempty"`
		MinScore float64 `json:"min_score,omitempty"`
	}{Query: query, K: k, MinScore: minScore}

	var resp struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Health fetches the aggregated health report. A degraded gateway answers
// 503 with a full report: that report is returned alongside a nil error.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthReport{}, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("decode health report: %w", err)
	}
	return report, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil || apiErr.Code == "" {
			apiErr.Code = "unexpected_status"
			apiErr.Message = fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
