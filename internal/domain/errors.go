package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage signals a missing or blank chat message.
	ErrEmptyMessage = errors.New("message is required")
	// ErrVectorDimMismatch signals a vector dimension mismatch between the
	// embedding function and the persisted collection.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a model backend failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrRetrieverNotReady signals that the vector index wrapper has not
	// completed (or has failed) initialization.
	ErrRetrieverNotReady = errors.New("retriever not ready")
)

// DimMismatchError wraps ErrVectorDimMismatch with the expected and actual
// widths. A mismatched collection produces meaningless similarity scores,
// so this is a fatal configuration error: the retriever refuses to become
// ready instead of degrading.
type DimMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf(
		"%s: collection stores %d-dimensional vectors but the embedder produces %d; "+
			"recreate the collection or reconfigure embedding dimensions",
		ErrVectorDimMismatch.Error(), e.Actual, e.Expected,
	)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(expected, actual int) error {
	return &DimMismatchError{Expected: expected, Actual: actual}
}
