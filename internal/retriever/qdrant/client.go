// Package qdrant is a minimal REST client for the Qdrant vector index,
// covering the operations the retriever needs: collection metadata,
// collection creation, point upsert and k-NN search.
package qdrant

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payload keys for document content and metadata.
const (
	payloadContentField  = "content"
	payloadMetadataField = "metadata"
)

// Config holds Qdrant connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	Distance   string // Cosine (default), Dot, Euclid
	Timeout    time.Duration
}

// Client talks to Qdrant's REST API.
type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Qdrant client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:6333"
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(zap.String("component", "qdrant")),
	}
}

// Collection returns the configured collection name.
func (c *Client) Collection() string { return c.cfg.Collection }

var pointNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// PointID derives a stable UUID point ID from document content, so
// re-inserting the same document overwrites rather than duplicates.
func PointID(content string) string {
	return uuid.NewSHA1(pointNamespace, []byte(content)).String()
}

// Point is an upsert unit.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search result.
type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// CollectionInfo fetches the persisted collection's vector width.
// exists=false (with nil error) when the collection is absent.
func (c *Client) CollectionInfo(ctx context.Context) (width int, exists bool, err error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
		Status any `json:"status"`
	}

	path := "/collections/" + url.PathEscape(c.cfg.Collection)
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	if status == http.StatusNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return resp.Result.Config.Params.Vectors.Size, true, nil
}

// CreateCollection creates the collection with the given vector width and
// the configured distance metric.
func (c *Client) CreateCollection(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("vector size must be > 0, got %d", size)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": c.cfg.Distance,
		},
	}

	path := "/collections/" + url.PathEscape(c.cfg.Collection)
	status, err := c.doJSON(ctx, http.MethodPut, path, body, nil)
	// Qdrant returns 409 if the collection already exists.
	if status == http.StatusConflict {
		return nil
	}
	if err != nil {
		return err
	}
	return nil
}

// Upsert writes points, waiting for the operation to complete. Document
// content and metadata travel in the payload.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	req := struct {
		Points []Point `json:"points"`
	}{Points: points}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(c.cfg.Collection))
	if _, err := c.doJSON(ctx, http.MethodPut, path, req, nil); err != nil {
		return err
	}

	c.logger.Debug("qdrant upsert completed", zap.Int("count", len(points)))
	return nil
}

// Search runs a k-NN query with an optional metadata match filter and
// returns results ordered by decreasing score.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter map[string]any) ([]ScoredPoint, error) {
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, 0, len(filter))
		for key, value := range filter {
			must = append(must, map[string]any{
				"key":   payloadMetadataField + "." + key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []ScoredPoint `json:"result"`
		Status any           `json:"status"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(c.cfg.Collection))
	if _, err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	return resp.Result, nil
}

// Count returns the exact number of points in the collection.
func (c *Client) Count(ctx context.Context) (int, error) {
	req := struct {
		Exact bool `json:"exact"`
	}{Exact: true}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(c.cfg.Collection))
	if _, err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return 0, err
	}

	return resp.Result.Count, nil
}

// NewPayload builds the point payload for a document.
func NewPayload(content string, metadata map[string]any) map[string]any {
	return map[string]any{
		payloadContentField:  content,
		payloadMetadataField: metadata,
	}
}

// DocumentFromPayload extracts (content, metadata) from a search result payload.
func DocumentFromPayload(payload map[string]any) (string, map[string]any) {
	var content string
	var metadata map[string]any
	if payload != nil {
		if v, ok := payload[payloadContentField].(string); ok {
			content = v
		}
		if m, ok := payload[payloadMetadataField].(map[string]any); ok {
			metadata = m
		}
	}
	return content, metadata
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		// Qdrant convention.
		req.Header.Set("api-key", c.cfg.APIKey)
	}
}

// doJSON performs a JSON request and decodes the response into out.
// The HTTP status code is returned alongside the error so callers can
// distinguish 404/409 from real failures.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) (int, error) {
	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf(
			"qdrant request failed: method=%s path=%s status=%d body=%s",
			method, path, resp.StatusCode, string(raw))
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
