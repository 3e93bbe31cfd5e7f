package ranking

import "errors"

var (
	// ErrInvalidPage is returned by TopN for a page below 1 or a page size
	// outside [1, max page size].
	ErrInvalidPage = errors.New("invalid page")
	// ErrEmptyEntityID is returned when recording an event without an entity.
	ErrEmptyEntityID = errors.New("entity id is empty")
	// ErrRecomputeFailed is returned when every candidate of a run failed.
	ErrRecomputeFailed = errors.New("recompute failed for every candidate")
)
