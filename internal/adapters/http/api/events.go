package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hotboard/internal/domain/dedupe"
	"github.com/okian/hotboard/internal/domain/model"
)

// maxEventBody bounds the request body of POST /events.
const maxEventBody = 64 << 10

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.Event) bool
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID  string `json:"event_id"`
	EntityID string `json:"entity_id"`
	Action   string `json:"action"`
	TS       string `json:"ts"`
}

func (e eventRequest) toEvent() (model.Event, error) {
	ev := model.Event{
		EventID:  strings.TrimSpace(e.EventID),
		EntityID: strings.TrimSpace(e.EntityID),
		Action:   model.ParseAction(e.Action),
	}
	switch {
	case ev.EntityID == "":
		return ev, errors.New("missing entity_id")
	case ev.Action == "":
		return ev, errors.New("missing action")
	}
	if ts := strings.TrimSpace(e.TS); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return ev, errors.New("invalid ts; must be RFC3339")
		}
		ev.TS = t
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	return ev, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), ev.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: ev.EventID, Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), ev); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), ev.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: ev.EventID})
}
