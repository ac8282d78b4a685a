package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

func setupTransactionHandler(t *testing.T) (*TransactionHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ts := testutil.NewTestTransactionService(t, db)
	return NewTransactionHandler(ts), db
}

func TestTransactionHandler_AllTransactions(t *testing.T) {
	t.Run("returns empty array when no transactions exist", func(t *testing.T) {
		handler, _ := setupTransactionHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/transaction", nil)
		w := httptest.NewRecorder()

		handler.AllTransactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("Expected empty JSON array, got %q", body)
		}
	})

	t.Run("filters by symbol and broker", func(t *testing.T) {
		handler, db := setupTransactionHandler(t)
		want := testutil.NewTransaction().Buy("AAPL", "1", "10").WithBroker("IBKR").Build(t, db)
		testutil.NewTransaction().Buy("AAPL", "1", "10").WithBroker("Degiro").Build(t, db)
		testutil.NewTransaction().Buy("MSFT", "1", "10").WithBroker("IBKR").Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction", map[string]string{
			"symbol": "aapl",
			"broker": "ibkr",
		})
		w := httptest.NewRecorder()

		handler.AllTransactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var transactions []model.Transaction
		if err := json.NewDecoder(w.Body).Decode(&transactions); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(transactions) != 1 || transactions[0].ID != want.ID {
			t.Errorf("Expected only %s, got %+v", want.ID, transactions)
		}
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	handler, db := setupTransactionHandler(t)
	tx := testutil.NewTransaction().Buy("AAPL", "2.5", "150.10").Build(t, db)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"existing transaction", tx.ID, http.StatusOK},
		{"unknown transaction", testutil.MakeID(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/"+tt.id, map[string]string{"uuid": tt.id})
			w := httptest.NewRecorder()

			handler.GetTransaction(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got model.Transaction
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if !got.Quantity.Decimal.Equal(decimal.RequireFromString("2.5")) {
				t.Errorf("Expected quantity 2.5, got %s", got.Quantity.Decimal)
			}
		})
	}
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "buy with decimal strings",
			body:       `{"symbol":"aapl","broker":"IBKR","currency":"usd","kind":"buy","quantity":"10","price":"150.25","commission":1,"tradeDate":"2024-03-01"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "dividend",
			body:       `{"symbol":"KO","currency":"USD","kind":"dividend","dividendAmount":12.5}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing price",
			body:       `{"symbol":"AAPL","currency":"USD","kind":"buy","quantity":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "price",
		},
		{
			name:       "unknown kind",
			body:       `{"symbol":"AAPL","currency":"USD","kind":"split","quantity":1,"price":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "kind",
		},
		{
			name:       "unknown currency",
			body:       `{"symbol":"AAPL","currency":"XXY","kind":"buy","quantity":1,"price":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "currency",
		},
		{
			name:       "negative quantity",
			body:       `{"symbol":"AAPL","currency":"USD","kind":"buy","quantity":-1,"price":1}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "quantity",
		},
		{
			name:       "bad date",
			body:       `{"symbol":"AAPL","currency":"USD","kind":"buy","quantity":1,"price":1,"tradeDate":"01/03/2024"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "tradeDate",
		},
		{
			name:       "malformed body",
			body:       `{"symbol":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := setupTransactionHandler(t)

			req := testutil.NewJSONRequestWithURLParams(http.MethodPost, "/api/transaction", tt.body, nil)
			w := httptest.NewRecorder()

			handler.CreateTransaction(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantField == "" {
				return
			}
			var body struct {
				Details map[string]string `json:"details"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if _, ok := body.Details[tt.wantField]; !ok {
				t.Errorf("Expected field error for %s, got %v", tt.wantField, body.Details)
			}
		})
	}

	t.Run("stores normalized values", func(t *testing.T) {
		handler, _ := setupTransactionHandler(t)

		req := testutil.NewJSONRequestWithURLParams(http.MethodPost, "/api/transaction",
			`{"symbol":" msft ","currency":"eur","kind":"Sell","quantity":"3","price":"300"}`, nil)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var got model.Transaction
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.Symbol != "MSFT" || got.Currency != "EUR" || got.Kind != model.KindSell {
			t.Errorf("Expected MSFT/EUR/sell, got %s/%s/%s", got.Symbol, got.Currency, got.Kind)
		}
		if got.ID == "" {
			t.Error("Expected an ID to be assigned")
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("updates provided fields", func(t *testing.T) {
		handler, db := setupTransactionHandler(t)
		tx := testutil.NewTransaction().Buy("AAPL", "10", "100").Build(t, db)

		req := testutil.NewJSONRequestWithURLParams(http.MethodPut, "/api/transaction/"+tx.ID,
			`{"price":"99.5","notes":"fixed typo"}`, map[string]string{"uuid": tx.ID})
		w := httptest.NewRecorder()

		handler.UpdateTransaction(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var got model.Transaction
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !got.Price.Decimal.Equal(decimal.RequireFromString("99.5")) || got.Notes != "fixed typo" {
			t.Errorf("Unexpected update result: price %s notes %q", got.Price.Decimal, got.Notes)
		}
	})

	t.Run("rejects an inconsistent kind change", func(t *testing.T) {
		handler, db := setupTransactionHandler(t)
		tx := testutil.NewTransaction().Buy("AAPL", "10", "100").Build(t, db)

		req := testutil.NewJSONRequestWithURLParams(http.MethodPut, "/api/transaction/"+tx.ID,
			`{"kind":"dividend"}`, map[string]string{"uuid": tx.ID})
		w := httptest.NewRecorder()

		handler.UpdateTransaction(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for unknown transaction", func(t *testing.T) {
		handler, _ := setupTransactionHandler(t)
		id := testutil.MakeID()

		req := testutil.NewJSONRequestWithURLParams(http.MethodPut, "/api/transaction/"+id,
			`{"notes":"x"}`, map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.UpdateTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	handler, db := setupTransactionHandler(t)
	tx := testutil.NewTransaction().Build(t, db)

	for _, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/transaction/"+tx.ID, map[string]string{"uuid": tx.ID})
		w := httptest.NewRecorder()

		handler.DeleteTransaction(w, req)

		if w.Code != want {
			t.Errorf("Expected %d, got %d: %s", want, w.Code, w.Body.String())
		}
	}
}
