package handlers

import (
	"errors"
	"net/http"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// AuthHandler handles login and session HTTP requests.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler with the provided service dependency.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST requests to open a session.
//
// Endpoint: POST /api/auth/login
// Request Body: LoginRequest (username, password)
// Response: 200 OK with service.LoginResult
// Error: 400 Bad Request if the body is invalid
// Error: 401 Unauthorized if the credentials are wrong
// Error: 429 Too Many Requests if the client exceeds the login rate (rate limit middleware)
// Error: 500 Internal Server Error if the session cannot be created
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.LoginRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateLogin(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			logger.L.Warn("Failed login attempt")
			response.RespondError(w, http.StatusUnauthorized, apperrors.ErrInvalidCredentials.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToLogin.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Logout handles POST requests to end the current session.
//
// Endpoint: POST /api/auth/logout
// Response: 204 No Content
// Error: 401 Unauthorized without a valid session (session middleware)
// Error: 500 Internal Server Error if the session cannot be deleted
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	if err := h.authService.Logout(r.Context(), session.ID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToLogout.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Me handles GET requests for the logged in user.
//
// Endpoint: GET /api/auth/me
// Response: 200 OK with model.User
// Error: 401 Unauthorized without a valid session (session middleware)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	response.RespondJSON(w, http.StatusOK, user)
}
