package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects empty/whitespace-only queries. It is the
	// only retrieval error surfaced to callers as a hard failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStageUnavailable marks a degraded pipeline stage (vector index,
	// reranker). Absorbed by the orchestrator, never propagated.
	ErrStageUnavailable = errors.New("stage unavailable")

	// ErrIndexNotBuilt signals an empty or unpublished index; handled like
	// a stage outage for that method.
	ErrIndexNotBuilt = errors.New("index not built")

	ErrChunkNotFound = errors.New("chunk not found")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
