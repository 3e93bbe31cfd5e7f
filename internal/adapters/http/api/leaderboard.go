package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/types"
)

const defaultPageSize = 20

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, g model.Granularity, page, pageSize int) (types.Page, error)
	MaxPageSize() int
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard/{daily|weekly}?page=&size= requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	g, err := granularity(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	size, err := intParam(q.Get("size"), min(defaultPageSize, h.deps.MaxPageSize()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if maxSize := h.deps.MaxPageSize(); maxSize > 0 && size > maxSize {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	out, err := h.deps.TopN(r.Context(), g, page, size)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err //nolint:wrapcheck // wrapped by the handler
	}
	return n, nil
}
