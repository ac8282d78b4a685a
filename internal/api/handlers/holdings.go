package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// HoldingsHandler handles HTTP requests for derived holdings and quotes.
type HoldingsHandler struct {
	holdingsService *service.HoldingsService
}

// NewHoldingsHandler creates a new HoldingsHandler with the provided service dependency.
func NewHoldingsHandler(holdingsService *service.HoldingsService) *HoldingsHandler {
	return &HoldingsHandler{
		holdingsService: holdingsService,
	}
}

// Holdings handles GET requests for the valued positions of the portfolio.
// Quotes that cannot be fetched are reported in quoteErrors; the affected
// positions fall back to their hinted price or stay unvalued.
//
// Endpoint: GET /api/holdings
// Query Parameters:
//   - sort: "cost" orders by total cost, largest first (default: symbol, broker)
//   - includeClosed: also return positions with a zero net quantity
//   - refresh: bypass the quote cache
//
// Response: 200 OK with model.HoldingsView
// Error: 400 Bad Request if a query parameter is invalid
// Error: 500 Internal Server Error if transactions cannot be loaded
func (h *HoldingsHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := request.ParseHoldingsParams(q.Get("sort"), q.Get("includeClosed"), q.Get("refresh"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	view, err := h.holdingsService.GetHoldings(r.Context(), params)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

// Realized handles GET requests for the realized profit and loss per (symbol, broker).
//
// Endpoint: GET /api/holdings/realized
// Query Parameters:
//   - closed: only return fully closed trades
//
// Response: 200 OK with array of model.RealizedTradeAnalysis
// Error: 400 Bad Request if closed is not a boolean
// Error: 500 Internal Server Error if transactions cannot be loaded
func (h *HoldingsHandler) Realized(w http.ResponseWriter, r *http.Request) {
	closedOnly := false
	if v := r.URL.Query().Get("closed"); v != "" {
		var err error
		if closedOnly, err = strconv.ParseBool(v); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid query parameters", "invalid closed: "+v)
			return
		}
	}

	analyses, err := h.holdingsService.GetRealized(r.Context(), closedOnly)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, analyses)
}

// Summary handles GET requests for the per-currency portfolio summary and allocations.
//
// Endpoint: GET /api/holdings/summary
// Response: 200 OK with array of model.CurrencySummary
// Error: 500 Internal Server Error if transactions cannot be loaded
func (h *HoldingsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.holdingsService.GetSummary(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summaries)
}

// Quote handles GET requests for the current quote of one symbol.
//
// Endpoint: GET /api/quote/{symbol}
// Response: 200 OK with model.Quote
// Error: 400 Bad Request if the symbol is blank
// Error: 404 Not Found if no provider has a price for the symbol
// Error: 500 Internal Server Error for any other failure
func (h *HoldingsHandler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(chi.URLParam(r, "symbol"))
	if symbol == "" {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSymbol.Error(), "")
		return
	}

	quote, err := h.holdingsService.GetQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrQuoteUnavailable) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrQuoteUnavailable.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetQuote.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, quote)
}
