// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EventHandler holds all HTTP handlers for the event API.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrReferenceNotFound), errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events?date=&town=
// A date filter takes precedence over town; with neither the list is empty.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.svc.FindByFilter(r.Context(), q.Get("date"), q.Get("town"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{uuid}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.FindByUUID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Save(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/{uuid}
// The uuid in the path wins over any uuid in the body.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.UUID = chi.URLParam(r, "uuid")

	event, err := h.svc.Update(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{uuid}
// Deleting an unknown event still answers 204.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteByUUID(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Membership ───────────────────────────────────────────────────────────────

// membership adapts one of the service's membership operations to a handler
// for /events/{uuid}/.../{nickname}. A rejected change is a 200 with
// success=false, not an error.
func (h *EventHandler) membership(op func(context.Context, *model.Membership) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := &model.Membership{
			EventUUID: chi.URLParam(r, "uuid"),
			Nickname:  chi.URLParam(r, "nickname"),
		}
		ok, err := op(r.Context(), m)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, model.MembershipResponse{Success: ok})
	}
}

// Register handles POST /events/{uuid}/users/{nickname}
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.membership(h.svc.AddUserInEvent)(w, r)
}

// Unregister handles DELETE /events/{uuid}/users/{nickname}
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	h.membership(h.svc.RemoveUserInEvent)(w, r)
}

// JoinWaitingList handles POST /events/{uuid}/waiting/{nickname}
func (h *EventHandler) JoinWaitingList(w http.ResponseWriter, r *http.Request) {
	h.membership(h.svc.AddUserInEventInWaitingQueue)(w, r)
}

// LeaveWaitingList handles DELETE /events/{uuid}/waiting/{nickname}
func (h *EventHandler) LeaveWaitingList(w http.ResponseWriter, r *http.Request) {
	h.membership(h.svc.RemoveUserInWaitingQueue)(w, r)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
