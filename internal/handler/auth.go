package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
	"listing-admin-api/internal/repository"
	"listing-admin-api/internal/service"
	"listing-admin-api/pkg/apierror"
	"listing-admin-api/pkg/response"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	tokenService *service.TokenService
	adminRepo    repository.AdminRepository
	log          logger.Logger
}

// NewAuthHandler creates a new auth handler. adminRepo may be nil when no
// account database is configured; logins are then unavailable.
func NewAuthHandler(tokenService *service.TokenService, adminRepo repository.AdminRepository, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		adminRepo:    adminRepo,
		log:          log.With("component", "auth"),
	}
}

// TokenRequest represents the request body for token generation.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Name      string `json:"name"`
}

// GenerateToken handles POST /auth/token
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	var details []apierror.FieldError
	if strings.TrimSpace(req.Email) == "" {
		details = append(details, apierror.FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		details = append(details, apierror.FieldError{Field: "password", Message: "password is required"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid credentials payload", details...))
		return
	}

	if h.adminRepo == nil {
		response.Error(w, apierror.ServiceUnavailable("account login is not configured"))
		return
	}

	account, err := h.adminRepo.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		h.log.Warn("login rejected", "email", req.Email)
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}
	if err != nil {
		h.log.Error("login failed", "error", err)
		response.Error(w, apierror.InternalError("failed to verify credentials"))
		return
	}

	token, err := h.tokenService.GenerateToken(r.Context(), model.TokenData{
		AdminID: account.ID,
		Email:   account.Email,
		Name:    account.Name,
	})
	if err != nil {
		h.log.Error("token generation failed", "error", err)
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		ExpiresIn: int(service.TokenTTL.Seconds()),
		Name:      account.Name,
	})
}

// RevokeToken handles POST /auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}
