package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{Text: "Security: MSFT", Meta: domain.ChunkMetadata{Fund: "Garfield", Source: domain.PartitionHoldings, RowCount: 2, HasPL: true}},
		{Text: "Security: AAPL", Meta: domain.ChunkMetadata{Fund: "Garfield", Source: domain.PartitionHoldings, RowCount: 1}},
	}
}

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/holdings":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/holdings/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), domain.PartitionHoldings, testChunks(), vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), domain.PartitionHoldings, testChunks(), vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexChunksPayloadCarriesMetadata(t *testing.T) {
	var upsert struct {
		Points []struct {
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/holdings/points" {
			if err := json.NewDecoder(r.Body).Decode(&upsert); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	if err := client.IndexChunks(context.Background(), domain.PartitionHoldings, testChunks(), [][]float32{{0.1}, {0.2}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	if len(upsert.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(upsert.Points))
	}
	p := upsert.Points[0].Payload
	if p["fund"] != "Garfield" || p["source"] != "holdings" || p["has_pl"] != true {
		t.Fatalf("payload = %v", p)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/holdings" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	err := client.IndexChunks(context.Background(), domain.PartitionHoldings, testChunks()[:1], [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchAppliesHasPLFilter(t *testing.T) {
	var search map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/holdings/points/search" {
			if err := json.NewDecoder(r.Body).Decode(&search); err != nil {
				t.Errorf("decode search: %v", err)
			}
			_, _ = w.Write([]byte(`{"result":[{"id":"p1","score":0.91,"payload":{"fund":"Garfield","source":"holdings","row_count":2,"text":"Security: MSFT"}}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	matches, err := client.Search(context.Background(), domain.PartitionHoldings, []float32{0.1}, 5, domain.SearchFilter{HasPL: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if search["filter"] == nil {
		t.Fatalf("has_pl filter not sent: %v", search)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.Fund != "Garfield" || m.Source != domain.PartitionHoldings || m.RowCount != 2 || m.Score != 0.91 {
		t.Fatalf("match = %+v", m)
	}
}

func TestSearchAllMergesAndTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/holdings/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":"h1","score":0.9,"payload":{"fund":"Garfield","source":"holdings"}},{"id":"h2","score":0.4,"payload":{"fund":"Heather","source":"holdings"}}]}`))
		case "/collections/trades/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":"t1","score":0.7,"payload":{"fund":"Platpot","source":"trades"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	matches, err := client.SearchAll(context.Background(), []float32{0.1}, 2, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 after truncation", len(matches))
	}
	if matches[0].ID != "h1" || matches[1].ID != "t1" {
		t.Fatalf("merge order = %s, %s", matches[0].ID, matches[1].ID)
	}
}

func TestDropPartitionToleratesMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/collections/trades" {
			http.NotFound(w, r)
			return
		}
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	client := New(server.URL, "holdings", "trades")
	if err := client.DropPartition(context.Background(), domain.PartitionTrades); err != nil {
		t.Fatalf("DropPartition() error = %v", err)
	}
}
