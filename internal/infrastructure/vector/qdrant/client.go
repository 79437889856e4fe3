package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

// Client talks to Qdrant over its REST API. Each dataset partition maps to
// its own collection, so holdings and trades can be reindexed and searched
// independently.
type Client struct {
	baseURL     string
	collections map[domain.Partition]string
	httpClient  *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(baseURL, holdingsCollection, tradesCollection string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		collections: map[domain.Partition]string{
			domain.PartitionHoldings: holdingsCollection,
			domain.PartitionTrades:   tradesCollection,
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]int),
	}
}

func (c *Client) collection(partition domain.Partition) (string, error) {
	name, ok := c.collections[partition]
	if !ok {
		return "", fmt.Errorf("unknown partition %q", partition)
	}
	return name, nil
}

func (c *Client) IndexChunks(ctx context.Context, partition domain.Partition, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}
	collection, err := c.collection(partition)
	if err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"fund":           chunk.Meta.Fund,
				"source":         string(chunk.Meta.Source),
				"row_count":      chunk.Meta.RowCount,
				"security_types": chunk.Meta.SecurityTypes,
				"trade_types":    chunk.Meta.TradeTypes,
				"has_pl":         chunk.Meta.HasPL,
				"text":           chunk.Text,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Search(
	ctx context.Context,
	partition domain.Partition,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedMatch, error) {
	collection, err := c.collection(partition)
	if err != nil {
		return nil, err
	}
	return c.searchCollection(ctx, collection, queryVector, limit, filter)
}

// SearchAll queries every partition and merges the hits client-side,
// best score first, truncated to limit.
func (c *Client) SearchAll(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedMatch, error) {
	var merged []domain.RetrievedMatch
	for _, partition := range domain.Partitions() {
		collection, err := c.collection(partition)
		if err != nil {
			return nil, err
		}
		matches, err := c.searchCollection(ctx, collection, queryVector, limit, filter)
		if err != nil {
			return nil, err
		}
		merged = append(merged, matches...)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (c *Client) searchCollection(
	ctx context.Context,
	collection string,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedMatch, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.HasPL {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": "has_pl",
					"match": map[string]any{
						"value": true,
					},
				},
			},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedMatch, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedMatch{
			ID:       fmt.Sprintf("%v", r.ID),
			Score:    r.Score,
			Fund:     getStringPayload(r.Payload, "fund"),
			Source:   domain.Partition(getStringPayload(r.Payload, "source")),
			RowCount: getIntPayload(r.Payload, "row_count"),
			Text:     getStringPayload(r.Payload, "text"),
		})
	}
	return out, nil
}

// DropPartition deletes the partition's collection wholesale; the next
// index pass recreates it.
func (c *Client) DropPartition(ctx context.Context, partition domain.Partition) error {
	collection, err := c.collection(partition)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("qdrant delete collection request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means the collection never existed; that is the desired state.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant delete collection status: %s", resp.Status)
	}

	c.ensureMu.Lock()
	delete(c.ensured, collection)
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markEnsured(collection, vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markEnsured(collection, vectorSize)
	return nil
}

func (c *Client) markEnsured(collection string, vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensured[collection] = vectorSize
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}
