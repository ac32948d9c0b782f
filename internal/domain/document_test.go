package domain

import "testing"

func TestDocumentSource(t *testing.T) {
	cases := []struct {
		name string
		doc  Document
		want string
	}{
		{"named source", Document{Metadata: map[string]any{"source": "a.txt"}}, "a.txt"},
		{"nil metadata", Document{}, ""},
		{"missing key", Document{Metadata: map[string]any{"lang": "en"}}, ""},
		{"non-string source", Document{Metadata: map[string]any{"source": 42}}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.doc.Source(); got != tc.want {
				t.Errorf("Source() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScoredDocumentPromotesDocument(t *testing.T) {
	sd := ScoredDocument{
		Document: Document{Content: "alpha", Metadata: map[string]any{"source": "a.txt"}},
		Score:    0.9,
	}
	if sd.Content != "alpha" {
		t.Errorf("Content = %q, want the document content", sd.Content)
	}
	if sd.Source() != "a.txt" {
		t.Errorf("Source() = %q, want a.txt", sd.Source())
	}
}
