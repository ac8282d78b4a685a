package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/middleware"
)

func TestRateLimiter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	do := func(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("allows the burst then rejects", func(t *testing.T) {
		h := middleware.NewRateLimiter(3).Handler(ok)

		for i := range 3 {
			if w := do(h, "10.0.0.1:1234"); w.Code != http.StatusOK {
				t.Fatalf("Request %d: expected 200, got %d", i+1, w.Code)
			}
		}

		w := do(h, "10.0.0.1:5678")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected 429, got %d", w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("Expected a Retry-After header")
		}
	})

	t.Run("clients are limited separately", func(t *testing.T) {
		h := middleware.NewRateLimiter(1).Handler(ok)

		if w := do(h, "10.0.0.1:1"); w.Code != http.StatusOK {
			t.Fatalf("Expected 200 for first client, got %d", w.Code)
		}
		if w := do(h, "10.0.0.2:1"); w.Code != http.StatusOK {
			t.Errorf("Expected 200 for second client, got %d", w.Code)
		}
		if w := do(h, "10.0.0.1:1"); w.Code != http.StatusTooManyRequests {
			t.Errorf("Expected 429 for first client, got %d", w.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := middleware.NewRateLimiter(0).Handler(ok)
		for range 20 {
			if w := do(h, "10.0.0.1:1"); w.Code != http.StatusOK {
				t.Fatalf("Expected 200 with limiting disabled, got %d", w.Code)
			}
		}
	})
}

func TestRateLimiter_ForwardedHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		headers    [2]map[string]string // first and second request
		wantSecond int
	}{
		{
			name:       "untrusted peer cannot rotate X-Forwarded-For",
			remoteAddr: "192.0.2.1:1234",
			headers: [2]map[string]string{
				{"X-Forwarded-For": "203.0.113.1"},
				{"X-Forwarded-For": "203.0.113.2"},
			},
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "untrusted peer cannot rotate X-Real-IP",
			trusted:    proxies,
			remoteAddr: "192.0.2.1:1234",
			headers: [2]map[string]string{
				{"X-Real-IP": "203.0.113.1"},
				{"X-Real-IP": "203.0.113.2"},
			},
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "trusted proxy forwards distinct clients",
			trusted:    proxies,
			remoteAddr: "10.0.0.5:1234",
			headers: [2]map[string]string{
				{"X-Forwarded-For": "203.0.113.1"},
				{"X-Forwarded-For": "203.0.113.2"},
			},
			wantSecond: http.StatusOK,
		},
		{
			name:       "client-prepended hops are ignored behind a trusted proxy",
			trusted:    proxies,
			remoteAddr: "10.0.0.5:1234",
			headers: [2]map[string]string{
				{"X-Forwarded-For": "198.51.100.1, 203.0.113.1"},
				{"X-Forwarded-For": "198.51.100.2, 203.0.113.1"},
			},
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "chained trusted proxies are skipped",
			trusted:    proxies,
			remoteAddr: "10.0.0.5:1234",
			headers: [2]map[string]string{
				{"X-Forwarded-For": "203.0.113.1, 10.0.0.9"},
				{"X-Forwarded-For": "203.0.113.2, 10.0.0.9"},
			},
			wantSecond: http.StatusOK,
		},
		{
			name:       "trusted proxy with X-Real-IP",
			trusted:    proxies,
			remoteAddr: "10.0.0.5:1234",
			headers: [2]map[string]string{
				{"X-Real-IP": "203.0.113.1"},
				{"X-Real-IP": "203.0.113.2"},
			},
			wantSecond: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.NewRateLimiter(1, tt.trusted...).Handler(ok)

			var codes [2]int
			for i, headers := range tt.headers {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
				req.RemoteAddr = tt.remoteAddr
				for k, v := range headers {
					req.Header.Set(k, v)
				}
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				codes[i] = w.Code
			}

			if codes[0] != http.StatusOK {
				t.Fatalf("Expected 200 for the first request, got %d", codes[0])
			}
			if codes[1] != tt.wantSecond {
				t.Errorf("Expected %d for the second request, got %d", tt.wantSecond, codes[1])
			}
		})
	}
}
