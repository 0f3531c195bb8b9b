package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/qr"
	"ms-booking/internal/inventory"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	BookingService *booking.Service
	QR             *qr.Issuer
	Logger         *logger.Logger
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	resp, err := h.BookingService.CreateBooking(r.Context(), principal, req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidQuantity):
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid booking", err.Error()))
		case errors.Is(err, inventory.ErrTicketNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("ticket not found", err.Error()))
		case errors.Is(err, inventory.ErrInsufficientAvailability):
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("insufficient availability", err.Error()))
		default:
			h.Logger.Error("BOOKING", fmt.Sprintf("CreateBooking: %v", err))
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to create booking", err.Error()))
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking created", resp))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	bookingID := chi.URLParam(r, "bookingId")
	found, err := h.BookingService.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.writeLookupError(w, "GetBooking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking found", found))
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	bookings, err := h.BookingService.ListBookings(r.Context(), principal)
	if err != nil {
		h.Logger.Error("BOOKING", fmt.Sprintf("ListBookings: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to list bookings", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings", bookings))
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	bookingID := chi.URLParam(r, "bookingId")
	if err := h.BookingService.CancelBooking(r.Context(), principal, bookingID); err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("booking not found", err.Error()))
		case errors.Is(err, booking.ErrNotOwner):
			utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", err.Error()))
		case errors.Is(err, booking.ErrAlreadyVerified):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("booking already verified", err.Error()))
		default:
			h.Logger.Error("BOOKING", fmt.Sprintf("CancelBooking: %v", err))
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to cancel booking", err.Error()))
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking cancelled", nil))
}

// BookingQR returns the signed gate QR for one of the principal's bookings.
func (h *Handler) BookingQR(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	bookingID := chi.URLParam(r, "bookingId")
	found, err := h.BookingService.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.writeLookupError(w, "BookingQR", err)
		return
	}

	png, err := h.QR.GenerateQR(*found)
	if err != nil {
		h.Logger.Error("BOOKING", fmt.Sprintf("BookingQR: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to generate QR", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// VerifyBooking is the unauthenticated gate endpoint: first scan succeeds,
// every later scan is 409 so the operator can tell a reused ticket from a
// mistyped ID (404).
func (h *Handler) VerifyBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	verified, err := h.BookingService.Verify(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("booking not found", err.Error()))
		case errors.Is(err, booking.ErrAlreadyVerified):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("already reported", err.Error()))
		default:
			h.Logger.Error("BOOKING", fmt.Sprintf("VerifyBooking: %v", err))
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to verify booking", err.Error()))
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking verified", verified))
}

func (h *Handler) writeLookupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("booking not found", err.Error()))
	case errors.Is(err, booking.ErrNotOwner):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", err.Error()))
	default:
		h.Logger.Error("BOOKING", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to load booking", err.Error()))
	}
}
