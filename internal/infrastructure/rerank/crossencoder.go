package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// CrossEncoder scores (query, passage) pairs against a text-embeddings
// inference rerank endpoint. Failures are the caller's signal to fall back
// to the fused order.
type CrossEncoder struct {
	baseURL    string
	httpClient *http.Client
}

func NewCrossEncoder(baseURL string, timeout time.Duration) *CrossEncoder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CrossEncoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CrossEncoder) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Content
	}

	reqBody := map[string]any{
		"query": query,
		"texts": texts,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("rerank status: %s", resp.Status)
	}

	var scored []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]domain.RerankResult, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", s.Index)
		}
		out = append(out, domain.RerankResult{
			ChunkID: candidates[s.Index].ChunkID,
			Score:   s.Score,
		})
	}
	return out, nil
}
