package authhandler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"appraise/internal/domain/auth"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
)

const sessionTTL = 8 * time.Hour

type Handler struct {
	Service *auth.Service
	Secret  string
}

func NewHandler(service *auth.Service, secret string) *Handler {
	return &Handler{Service: service, Secret: secret}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	user, err := h.Service.FindActiveUserByEmail(r.Context(), payload.Email, auth.UserStatusActive)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.Password, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}

	sessionID, err := generateToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.CreateSession(r.Context(), user.ID, auth.HashToken(sessionID), time.Now().Add(sessionTTL)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to start session", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, sessionTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}

	api.Success(w, map[string]any{
		"token": token,
		"user":  map[string]string{"id": user.ID, "tenantId": user.TenantID, "roleId": user.RoleID, "role": user.RoleName},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.GetUser(r.Context()); ok && user.SessionID != "" {
		if err := h.Service.RevokeSession(r.Context(), user.UserID, auth.HashToken(user.SessionID)); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

// HandleRequestReset always answers success so the endpoint cannot be used
// to probe which emails exist.
func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	resetToken := ""
	if userID, err := h.Service.UserIDByEmail(r.Context(), payload.Email); err == nil {
		token, err := generateToken()
		if err == nil {
			if err := h.Service.CreatePasswordReset(r.Context(), userID, auth.HashToken(token), time.Now().Add(time.Hour)); err != nil {
				slog.Warn("password reset create failed", "err", err)
			} else {
				resetToken = token
			}
		}
	}

	response := map[string]string{"status": "reset_requested"}
	if resetToken != "" {
		// Returned in the response body until a mail template exists for
		// reset links.
		response["token"] = resetToken
	}
	api.Success(w, response, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Token == "" || len(payload.NewPassword) < 8 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "token and a password of at least 8 characters are required", middleware.GetRequestID(r.Context()))
		return
	}

	tokenHash := auth.HashToken(payload.Token)
	userID, err := h.Service.PasswordResetUserID(r.Context(), tokenHash)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_token", "reset token is invalid or expired", middleware.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to update password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_error", "failed to update password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.MarkPasswordResetUsed(r.Context(), tokenHash); err != nil {
		slog.Warn("mark password reset used failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "password_updated"}, middleware.GetRequestID(r.Context()))
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
