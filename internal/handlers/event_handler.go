package handlers

import (
	"net/http"
	"strconv"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type EventHandler struct {
	Service *services.EventService
}

func NewEventHandler(s *services.EventService) *EventHandler {
	return &EventHandler{Service: s}
}

// List returns active events. Staff see their own location; admins may pass
// ?location= and ?all=true to include inactive events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	location := id.Location
	activeOnly := true
	if id.IsAdmin() {
		location = q.Get("location")
		activeOnly = !boolParam(q, "all")
	}

	events, err := h.Service.List(r.Context(), location, activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, events)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	event, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, event)
}

// SetStatus - PATCH /api/admin/events/{id}
func (h *EventHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid event id")
		return
	}
	var req models.UpdateEventStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	event, err := h.Service.SetStatus(r.Context(), eventID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, event)
}

// Delete - DELETE /api/admin/events/{name}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

// DeleteMany - DELETE /api/admin/events with {"names": [...]} or ?all=true
func (h *EventHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var (
		deleted int64
		err     error
	)
	if boolParam(r.URL.Query(), "all") {
		deleted, err = h.Service.DeleteAll(r.Context())
	} else {
		var req models.DeleteEventsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		deleted, err = h.Service.DeleteMany(r.Context(), req.Names)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
