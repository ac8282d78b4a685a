package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// dummyHash is compared against when the username does not exist, so a
// failed login costs the same whether or not the user is known.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("portfolio-tracker-dummy"), bcrypt.DefaultCost)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// AuthService handles login sessions for the single tracker user.
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	key         *fernet.Key
	ttl         time.Duration
	now         func() time.Time
}

// NewAuthService creates a new AuthService. Tokens are encrypted and signed
// with key and are valid for ttl.
func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	key *fernet.Key,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		key:         key,
		ttl:         ttl,
		now:         time.Now,
	}
}

// GenerateSessionKey returns a new random fernet key in its base64 text form.
func GenerateSessionKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate session key: %w", err)
	}
	return k.Encode(), nil
}

// ParseSessionKey decodes a base64 fernet key as produced by GenerateSessionKey.
func ParseSessionKey(s string) (*fernet.Key, error) {
	k, err := fernet.DecodeKey(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid session key: %w", err)
	}
	return k, nil
}

// Login checks the credentials and opens a new session.
// Unknown users and wrong passwords both return apperrors.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperrors.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := model.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessionRepo.InsertSession(ctx, session); err != nil {
		return LoginResult{}, err
	}

	token, err := fernet.EncryptAndSign([]byte(session.ID), s.key)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return LoginResult{
		Token:     string(token),
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Authenticate resolves a session token to its user and session.
//
// Returns apperrors.ErrInvalidToken when the token does not verify,
// apperrors.ErrSessionExpired when the session is past its expiry, and
// apperrors.ErrSessionNotFound when the session was logged out or purged.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.User, model.Session, error) {
	sessionID := fernet.VerifyAndDecrypt([]byte(token), s.ttl, []*fernet.Key{s.key})
	if sessionID == nil {
		return model.User{}, model.Session{}, apperrors.ErrInvalidToken
	}

	session, err := s.sessionRepo.GetSession(ctx, string(sessionID))
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	if session.Expired(s.now()) {
		return model.User{}, model.Session{}, apperrors.ErrSessionExpired
	}

	user, err := s.userRepo.GetUser(ctx, session.UserID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	return user, session, nil
}

// Logout deletes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.DeleteSession(ctx, sessionID)
}

// SetPassword creates the user or replaces its password hash.
// It reports whether a new user was created.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateNewPassword(username, password); err != nil {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return true, s.userRepo.InsertUser(ctx, model.User{
			ID:           uuid.New().String(),
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    s.now().UTC(),
		})
	case err != nil:
		return false, err
	}

	return false, s.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash))
}

// PurgeExpiredSessions deletes every session past its expiry and returns how many were removed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpiredSessions(ctx, s.now())
}
