package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
)

// CachingRetriever memoizes retrieval results. Degraded results are not
// cached so a recovering backend is retried on the next identical query.
type CachingRetriever struct {
	inner       ports.Retriever
	cache       ports.ResultCache
	fingerprint string
	logger      *slog.Logger
}

// NewCachingRetriever wraps inner. The fingerprint must change whenever
// retrieval tunables change, or stale results keyed under the old
// configuration would be served.
func NewCachingRetriever(inner ports.Retriever, cache ports.ResultCache, fingerprint string, logger *slog.Logger) *CachingRetriever {
	return &CachingRetriever{
		inner:       inner,
		cache:       cache,
		fingerprint: fingerprint,
		logger:      logger,
	}
}

func (r *CachingRetriever) Retrieve(ctx context.Context, query string, baseTopK int) (*domain.RetrievalResult, error) {
	key := r.key(query, baseTopK)

	cached, hit, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("result_cache_get_failed", "error", err)
	} else if hit {
		return cached, nil
	}

	result, err := r.inner.Retrieve(ctx, query, baseTopK)
	if err != nil {
		return nil, err
	}

	if len(result.DegradedStages) == 0 {
		if err := r.cache.Set(ctx, key, result); err != nil {
			r.logger.Warn("result_cache_set_failed", "error", err)
		}
	}
	return result, nil
}

func (r *CachingRetriever) key(query string, baseTopK int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", query, baseTopK, r.fingerprint)))
	return "retrieve:" + hex.EncodeToString(sum[:])
}
