package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
)

// MinPasswordLength is enforced when a password is set, not at login.
const MinPasswordLength = 8

// ValidateLogin checks that both credentials are present.
func ValidateLogin(req request.LoginRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Username) == "" {
		errors["username"] = "username is required"
	}
	if req.Password == "" {
		errors["password"] = "password is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateNewPassword checks a password before it is hashed and stored.
func ValidateNewPassword(username, password string) error {
	errors := make(map[string]string)

	if strings.TrimSpace(username) == "" {
		errors["username"] = "username is required"
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errors["password"] = "password must be at least 8 characters"
	}
	// bcrypt only uses the first 72 bytes.
	if len(password) > 72 {
		errors["password"] = "password must be at most 72 bytes"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
