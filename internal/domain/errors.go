package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateURN is returned when origin creation collides on URN.
	// Callers decide whether to re-fetch and treat as success.
	ErrDuplicateURN = errors.New("origin URN already exists")

	// ErrDuplicateEdge is returned when a (source, target, predicate) triple
	// already exists. Edges are idempotent facts; callers usually treat this
	// as success.
	ErrDuplicateEdge = errors.New("knowledge edge already exists")

	// ErrRevisionOriginMismatch is returned when a current-revision pointer
	// would reference a revision belonging to a different origin. Rejected
	// before commit, never left for a later read to discover.
	ErrRevisionOriginMismatch = errors.New("revision belongs to a different origin")

	ErrNotFound = errors.New("record not found")
)

// DimensionMismatchError is a hard, non-retryable embedding failure: the
// provider returned a vector whose length differs from the configured target
// dimension. It aborts the whole chunk-annotation batch for the document.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Want, e.Got)
}
