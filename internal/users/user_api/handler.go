package user_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/users"
	"ms-booking/internal/utils"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", "username, email and password are required"))
		return
	}

	user, creds, err := h.UserService.Register(r.Context(), req)
	if err != nil {
		h.Logger.Error("USER", fmt.Sprintf("Register: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to register user", err.Error()))
		return
	}
	h.Logger.Info("USER", fmt.Sprintf("Register: user %s created", user.UserID))

	h.setCredentialCookies(w, creds)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("user registered", map[string]interface{}{
		"user":         user.Profile(),
		"access_token": creds.Access.Token,
	}))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	user, creds, err := h.UserService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, users.ErrWrongPassword) {
			h.Logger.LogSecurity("LOGIN_FAIL", fmt.Sprintf("wrong password for %s", req.Email))
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("login failed", "wrong password"))
			return
		}
		h.Logger.Error("USER", fmt.Sprintf("Login: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to fetch user", err.Error()))
		return
	}
	h.Logger.Info("USER", fmt.Sprintf("Login: user %s authenticated", user.UserID))

	h.setCredentialCookies(w, creds)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("login successful", map[string]interface{}{
		"user":         user.Profile(),
		"access_token": creds.Access.Token,
	}))
}

// Refresh exchanges the refresh credential (cookie, or bearer header) for a
// new access credential. Missing or invalid refresh tokens are 403 so gate
// clients can tell a stale session from a plain unauthorized request.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := auth.ExtractCredential(r, auth.RefreshTokenCookie)
	if err != nil {
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("refresh failed", "refresh token not present"))
		return
	}

	user, access, err := h.UserService.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.Logger.LogSecurity("REFRESH_FAIL", err.Error())
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("refresh failed", err.Error()))
		return
	}

	http.SetCookie(w, credentialCookie(auth.AccessTokenCookie, access.Token, access.ExpiresAt))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("token refreshed", map[string]interface{}{
		"user":         user.Profile(),
		"access_token": access.Token,
	}))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "no authenticated user"))
		return
	}

	if err := h.UserService.Delete(r.Context(), principal.UserID); err != nil {
		h.Logger.Error("USER", fmt.Sprintf("Delete: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to delete user", err.Error()))
		return
	}
	h.Logger.Info("USER", fmt.Sprintf("Delete: user %s removed", principal.UserID))

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("user deleted", nil))
}

func (h *Handler) setCredentialCookies(w http.ResponseWriter, creds *users.Credentials) {
	http.SetCookie(w, credentialCookie(auth.AccessTokenCookie, creds.Access.Token, creds.Access.ExpiresAt))
	http.SetCookie(w, credentialCookie(auth.RefreshTokenCookie, creds.Refresh.Token, creds.Refresh.ExpiresAt))
}

func credentialCookie(name, value string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}
