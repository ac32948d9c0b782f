package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/retriever/qdrant"
)

func TestInitCreatesMissingCollection(t *testing.T) {
	idx := &mockIndex{infoExists: false}
	svc := newTestService(t, idx, &mockEmbedder{}, 768)

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if idx.createdDim != 768 {
		t.Errorf("created collection with width %d, want 768", idx.createdDim)
	}
	if !svc.Ready() {
		t.Error("Ready() = false after successful Init")
	}
}

func TestInitAcceptsMatchingCollection(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 768}
	svc := newTestService(t, idx, &mockEmbedder{}, 768)

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if idx.createdDim != 0 {
		t.Error("Init recreated an existing collection")
	}
}

func TestInitRefusesDimensionMismatch(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 1536}
	svc := newTestService(t, idx, &mockEmbedder{}, 768)

	err := svc.Init(context.Background())
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("Init() error = %v, want dimension mismatch", err)
	}

	var mismatch *domain.DimMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Init() error type = %T", err)
	}
	if mismatch.Expected != 768 || mismatch.Actual != 1536 {
		t.Errorf("mismatch = %d/%d, want 768/1536", mismatch.Expected, mismatch.Actual)
	}
	if svc.Ready() {
		t.Error("Ready() = true after dimension mismatch")
	}
}

func TestInitConnectionErrorNotReady(t *testing.T) {
	idx := &mockIndex{infoErr: errors.New("connection refused")}
	svc := newTestService(t, idx, &mockEmbedder{}, 768)

	if err := svc.Init(context.Background()); err == nil {
		t.Fatal("Init() error = nil, want connection error")
	}
	if svc.Ready() {
		t.Error("Ready() = true after failed Init")
	}
}

func TestAddDocumentsNotReady(t *testing.T) {
	svc := newTestService(t, &mockIndex{}, &mockEmbedder{}, 768)

	err := svc.AddDocuments(context.Background(), []domain.Document{{Content: "a"}})
	if !errors.Is(err, domain.ErrRetrieverNotReady) {
		t.Fatalf("AddDocuments() error = %v, want ErrRetrieverNotReady", err)
	}
}

func TestAddDocumentsAbortsOnEmbeddingFailure(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 4}
	emb := &mockEmbedder{
		result: domain.EmbeddingResult{Vector: []float32{1, 0, 0, 0}},
		err:    errors.New("provider down"),
		failAt: 2,
	}
	svc := newTestService(t, idx, emb, 4)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	docs := []domain.Document{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	err := svc.AddDocuments(context.Background(), docs)
	if err == nil {
		t.Fatal("AddDocuments() error = nil, want embed failure")
	}
	if got := err.Error(); !strings.Contains(got, "document 1") {
		t.Errorf("error %q does not name the failing index", got)
	}
	if len(idx.upserted) != 0 {
		t.Error("batch was upserted despite embedding failure")
	}
}

func TestAddDocumentsUpserts(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 4}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1, 0, 0, 0}}}
	svc := newTestService(t, idx, emb, 4)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	docs := []domain.Document{
		{Content: "alpha", Metadata: map[string]any{"source": "a.txt"}},
		{Content: "beta"},
	}
	if err := svc.AddDocuments(context.Background(), docs); err != nil {
		t.Fatalf("AddDocuments() error = %v", err)
	}
	if len(idx.upserted) != 1 || len(idx.upserted[0]) != 2 {
		t.Fatalf("upserted batches = %v, want one batch of two", idx.upserted)
	}
	if idx.upserted[0][0].ID == idx.upserted[0][1].ID {
		t.Error("distinct documents produced the same point ID")
	}
}

func TestSearchDegradesToEmpty(t *testing.T) {
	cases := []struct {
		name string
		idx  *mockIndex
		emb  *mockEmbedder
		init bool
	}{
		{
			name: "not ready",
			idx:  &mockIndex{},
			emb:  &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1}}},
		},
		{
			name: "embedding error",
			idx:  &mockIndex{infoExists: true, infoWidth: 1},
			emb:  &mockEmbedder{err: errors.New("provider down"), failAt: 0},
			init: true,
		},
		{
			name: "index error",
			idx:  &mockIndex{infoExists: true, infoWidth: 1, searchErr: errors.New("timeout")},
			emb:  &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1}}},
			init: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, tc.idx, tc.emb, 1)
			if tc.init {
				if err := svc.Init(context.Background()); err != nil {
					t.Fatalf("Init() error = %v", err)
				}
			}
			docs := svc.Search(context.Background(), "query", 3, nil)
			if len(docs) != 0 {
				t.Errorf("Search() = %v, want empty", docs)
			}
		})
	}
}

func TestSearchOrdersByScore(t *testing.T) {
	idx := &mockIndex{
		infoExists: true,
		infoWidth:  1,
		searchRes: []qdrant.ScoredPoint{
			{Score: 0.4, Payload: qdrant.NewPayload("low", nil)},
			{Score: 0.9, Payload: qdrant.NewPayload("high", nil)},
			{Score: 0.7, Payload: qdrant.NewPayload("mid", nil)},
		},
	}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1}}}
	svc := newTestService(t, idx, emb, 1)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	docs := svc.Search(context.Background(), "query", 3, nil)
	if len(docs) != 3 {
		t.Fatalf("Search() returned %d docs, want 3", len(docs))
	}
	want := []string{"high", "mid", "low"}
	for i, w := range want {
		if docs[i].Content != w {
			t.Errorf("docs[%d].Content = %q, want %q", i, docs[i].Content, w)
		}
	}
	if docs[0].Score != 0.9 {
		t.Errorf("docs[0].Score = %v, want 0.9", docs[0].Score)
	}
}

func TestHealthCheckReport(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 2, count: 5}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1, 0}, Degraded: true}}
	svc := newTestService(t, idx, emb, 2)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	report := svc.HealthCheck(context.Background())
	if !report.Initialized || !report.Connected {
		t.Errorf("report = %+v, want initialized and connected", report)
	}
	if report.Documents != 5 || report.Dimensions != 2 {
		t.Errorf("report = %+v, want 5 documents at width 2", report)
	}
	if !report.EmbeddingDegraded {
		t.Error("report does not surface degraded embedding")
	}
}

func TestHealthCheckProbesWithSearch(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 2, searchErr: errors.New("index down")}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1, 0}}}
	svc := newTestService(t, idx, emb, 2)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	report := svc.HealthCheck(context.Background())
	if report.Connected {
		t.Error("report.Connected = true while the search probe fails")
	}
	if report.Error == "" {
		t.Error("report.Error is empty, want the probe failure")
	}
}

func TestHealthCheckAfterMismatch(t *testing.T) {
	idx := &mockIndex{infoExists: true, infoWidth: 1536}
	svc := newTestService(t, idx, &mockEmbedder{result: domain.EmbeddingResult{Vector: []float32{1}}}, 768)
	_ = svc.Init(context.Background())

	report := svc.HealthCheck(context.Background())
	if report.Initialized {
		t.Error("report.Initialized = true after mismatch")
	}
	if report.Error == "" {
		t.Error("report.Error is empty after mismatch")
	}
	if !report.Connected {
		t.Error("report.Connected = false, index itself is reachable")
	}
}
