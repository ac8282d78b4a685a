package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

const maxStatementBytes = 16 << 20

// IbkrHandler handles HTTP requests for Interactive Brokers statement imports.
type IbkrHandler struct {
	ibkrService *service.IbkrService
}

// NewIbkrHandler creates a new IbkrHandler with the provided service dependency.
func NewIbkrHandler(ibkrService *service.IbkrService) *IbkrHandler {
	return &IbkrHandler{
		ibkrService: ibkrService,
	}
}

// Import handles POST requests carrying a Flex statement XML document.
//
// Endpoint: POST /api/ibkr/import
// Request Body: Flex statement XML
// Response: 200 OK with model.ImportResult
// Error: 400 Bad Request if the body is not a Flex statement
// Error: 500 Internal Server Error if storing fails
func (h *IbkrHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxStatementBytes))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(data) == 0 {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", "request body is empty")
		return
	}

	report, err := ibkr.ParseFlexReport(data)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid flex statement", err.Error())
		return
	}

	result, err := h.ibkrService.ImportStatement(r.Context(), report)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToImportStatement.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Fetch handles POST requests to download and import the configured Flex query.
//
// Endpoint: POST /api/ibkr/fetch
// Response: 200 OK with model.ImportResult
// Error: 400 Bad Request if no Flex token or query is configured
// Error: 502 Bad Gateway if IBKR rejects or fails the request
// Error: 500 Internal Server Error if storing fails
func (h *IbkrHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	if !h.ibkrService.FetchConfigured() {
		response.RespondError(w, http.StatusBadRequest, ibkr.ErrMissingCredentials.Error(), "")
		return
	}

	result, err := h.ibkrService.FetchAndImport(r.Context())
	if err != nil {
		var ferr *ibkr.FetchError
		if errors.As(err, &ferr) {
			response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToImportStatement.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToImportStatement.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
