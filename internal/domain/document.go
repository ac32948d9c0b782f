package domain

// Document is a unit of retrievable context. Immutable once created;
// search results reference documents, they never mutate them.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Source returns the document's "source" metadata value, or "" if absent.
func (d Document) Source() string {
	if d.Metadata == nil {
		return ""
	}
	if s, ok := d.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// ScoredDocument pairs a document with a similarity score. The score range
// is backend-defined; higher means more similar, and values are not
// guaranteed to fall in [0,1].
type ScoredDocument struct {
	Document
	Score float64
}
