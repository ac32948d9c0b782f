package ragway

import (
	"net/http"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

type clientConfig struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithBaseURL sets the gateway address. Defaults to http://localhost:8080.
func WithBaseURL(url string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.baseURL = url })
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.apiKey = key })
}

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.httpClient = c })
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
