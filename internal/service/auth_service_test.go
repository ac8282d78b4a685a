package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

func TestAuthService_Login(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAuthService(t, db)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.Login(ctx, " admin ", testutil.TestPassword)
		if err != nil {
			t.Fatalf("Login() returned error: %v", err)
		}
		if result.Token == "" {
			t.Fatal("Expected a session token")
		}
		if result.User.ID != user.ID {
			t.Errorf("Expected user %s, got %s", user.ID, result.User.ID)
		}
		if ttl := time.Until(result.ExpiresAt); ttl <= 0 || ttl > testutil.TestSessionTTL {
			t.Errorf("Expected expiry within the session TTL, got %s", ttl)
		}

		got, session, err := svc.Authenticate(ctx, result.Token)
		if err != nil {
			t.Fatalf("Authenticate() returned error: %v", err)
		}
		if got.ID != user.ID || session.UserID != user.ID {
			t.Errorf("Expected session of user %s, got %+v", user.ID, session)
		}
	})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "not the password"},
		{"unknown user", "nobody", testutil.TestPassword},
		{"empty password", "admin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, apperrors.ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAuthService(t, db)
	testutil.CreateUser(t, db)
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		if _, _, err := svc.Authenticate(ctx, "not-a-token"); !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("token from another key", func(t *testing.T) {
		other := testutil.NewTestAuthService(t, db)
		result, err := other.Login(ctx, "admin", testutil.TestPassword)
		if err != nil {
			t.Fatalf("Login() returned error: %v", err)
		}
		if _, _, err := svc.Authenticate(ctx, result.Token); !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("logged out session", func(t *testing.T) {
		result, err := svc.Login(ctx, "admin", testutil.TestPassword)
		if err != nil {
			t.Fatalf("Login() returned error: %v", err)
		}
		_, session, err := svc.Authenticate(ctx, result.Token)
		if err != nil {
			t.Fatalf("Authenticate() returned error: %v", err)
		}
		if err := svc.Logout(ctx, session.ID); err != nil {
			t.Fatalf("Logout() returned error: %v", err)
		}
		if _, _, err := svc.Authenticate(ctx, result.Token); !errors.Is(err, apperrors.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestAuthService_SetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAuthService(t, db)
	ctx := context.Background()

	created, err := svc.SetPassword(ctx, "owner", "first password")
	if err != nil {
		t.Fatalf("SetPassword() returned error: %v", err)
	}
	if !created {
		t.Error("Expected the user to be created")
	}

	created, err = svc.SetPassword(ctx, "owner", "second password")
	if err != nil {
		t.Fatalf("SetPassword() returned error: %v", err)
	}
	if created {
		t.Error("Expected the existing user to be updated")
	}

	if _, err := svc.Login(ctx, "owner", "first password"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("Expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, "owner", "second password"); err != nil {
		t.Errorf("Expected new password to work, got %v", err)
	}

	var validationErr *validation.Error
	if _, err := svc.SetPassword(ctx, "owner", "short"); !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for a short password, got %v", err)
	}
}

func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAuthService(t, db)
	user := testutil.CreateUser(t, db)
	ctx := context.Background()

	sessions := repository.NewSessionRepository(db)
	now := time.Now().UTC()
	for _, s := range []model.Session{
		{ID: testutil.MakeID(), UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: testutil.MakeID(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := sessions.InsertSession(ctx, s); err != nil {
			t.Fatalf("InsertSession() returned error: %v", err)
		}
	}

	purged, err := svc.PurgeExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions() returned error: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged session, got %d", purged)
	}
}

func TestSessionKey(t *testing.T) {
	encoded, err := service.GenerateSessionKey()
	if err != nil {
		t.Fatalf("GenerateSessionKey() returned error: %v", err)
	}
	if _, err := service.ParseSessionKey(encoded + "\n"); err != nil {
		t.Errorf("ParseSessionKey() rejected a generated key: %v", err)
	}
	if _, err := service.ParseSessionKey("too-short"); err == nil {
		t.Error("Expected ParseSessionKey() to reject an invalid key")
	}
}
