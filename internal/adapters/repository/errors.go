package repository

import (
	"errors"
	"fmt"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/pkg/metrics"
)

// Sentinel kinds for ranking store errors.
var (
	ErrInvalidLimit     = errors.New("invalid leaderboard range")
	ErrStoreUnavailable = errors.New("ranking store unavailable")
)

func checkGranularity(g model.Granularity) error {
	if g.Valid() {
		return nil
	}
	metrics.RecordErrorByComponent("repository", "unknown_granularity")
	return fmt.Errorf("%w: %s", model.ErrUnknownGranularity, g)
}
