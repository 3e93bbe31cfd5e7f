package loadtest

import "errors"

var (
	// ErrUnexpectedStatus is returned when the service answers with a status
	// the caller does not handle.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrBackpressure is returned when the service rejects an event with 429.
	ErrBackpressure = errors.New("service applied backpressure")
	// ErrUnsorted is returned when a leaderboard page is not in score order.
	ErrUnsorted = errors.New("leaderboard not sorted by score")
)
