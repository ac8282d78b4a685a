package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

type contextKey int

const (
	userKey contextKey = iota
	sessionKey
)

// Authenticator resolves a session token. service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, model.Session, error)
}

// RequireSession rejects requests without a valid "Authorization: Bearer <token>"
// header with 401 Unauthorized. Authenticated requests carry the user and
// session in their context.
//
// Example usage in router:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.RequireSession(authService))
//	    r.Get("/holdings", holdingsHandler.Holdings)
//	})
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.RespondError(w, http.StatusUnauthorized, "authentication required", "missing bearer token")
				return
			}

			user, session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, apperrors.ErrInvalidToken),
					errors.Is(err, apperrors.ErrSessionExpired),
					errors.Is(err, apperrors.ErrSessionNotFound),
					errors.Is(err, apperrors.ErrUserNotFound):
					response.RespondError(w, http.StatusUnauthorized, "authentication required", err.Error())
				default:
					logger.L.Error("Session lookup failed", "error", err)
					response.RespondError(w, http.StatusInternalServerError, "failed to authenticate", err.Error())
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), user, session)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext returns the user placed in the context by RequireSession.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

// SessionFromContext returns the session placed in the context by RequireSession.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey).(model.Session)
	return session, ok
}

// WithSession returns a copy of ctx carrying user and session, as RequireSession does.
func WithSession(ctx context.Context, user model.User, session model.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionKey, session)
}
