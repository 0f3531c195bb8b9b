package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/events"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	EventService *events.Service
	Logger       *logger.Logger
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	var req models.NewEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), principal, req)
	if err != nil {
		h.Logger.Error("EVENT", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to create event", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event created", event))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	event, err := h.EventService.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found", err.Error()))
			return
		}
		h.Logger.Error("EVENT", fmt.Sprintf("GetEvent: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load event", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event found", event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.EventService.ListEvents(r.Context())
	if err != nil {
		h.Logger.Error("EVENT", fmt.Sprintf("ListEvents: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list events", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events", list))
}

func (h *Handler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	list, err := h.EventService.ListEventsByUser(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("EVENT", fmt.Sprintf("ListMyEvents: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list events", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events", list))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if err := h.EventService.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.writeCatalogError(w, "DeleteEvent", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event deleted", nil))
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	var req models.NewTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	ticket, err := h.EventService.CreateTicket(r.Context(), principal, req)
	if err != nil {
		h.writeCatalogError(w, "CreateTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket created", ticket))
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	ticketID := chi.URLParam(r, "ticketId")
	if err := h.EventService.DeleteTicket(r.Context(), principal, ticketID); err != nil {
		h.writeCatalogError(w, "DeleteTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket deleted", nil))
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.Is(err, events.ErrNotOwner):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", err.Error()))
	default:
		h.Logger.Error("EVENT", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("storage failure", err.Error()))
	}
}
