// Package llm provides the text-generation backend over an
// OpenAI-compatible chat completions API.
package llm

import "context"

// Backend generates text for a prompt.
type Backend interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// StreamBackend additionally delivers the response as ordered chunks.
type StreamBackend interface {
	Backend
	InvokeStream(ctx context.Context, prompt string) (<-chan string, error)
}
