package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// maxBodyBytes caps request bodies; transactions are small.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into a T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, fmt.Errorf("request body is empty")
		}
		return v, err
	}
	return v, nil
}

// respondValidationError reports field errors as the details of a 400 response.
// It returns false when err is not a validation error.
func respondValidationError(w http.ResponseWriter, err error) bool {
	var validationErr *validation.Error
	if !errors.As(err, &validationErr) {
		return false
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", validationErr.Fields)
	return true
}
