package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/types"
)

// RecomputeDependencies defines what the recompute endpoint needs.
type RecomputeDependencies interface {
	Recompute(ctx context.Context, g model.Granularity, now time.Time) (types.RecomputeReport, error)
}

// RecomputeHandler handles on-demand recompute requests.
type RecomputeHandler struct {
	deps RecomputeDependencies
}

// NewRecomputeHandler creates a new recompute handler.
func NewRecomputeHandler(deps RecomputeDependencies) *RecomputeHandler {
	return &RecomputeHandler{deps: deps}
}

// HandleRecompute handles POST /recompute/{daily|weekly}[?now=RFC3339].
// Without now the service clock is used.
func (h *RecomputeHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	g, err := granularity(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var now time.Time
	if raw := r.URL.Query().Get("now"); raw != "" {
		now, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	report, err := h.deps.Recompute(r.Context(), g, now)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
