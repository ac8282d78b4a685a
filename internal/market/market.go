// Package market retrieves current quotes for instruments from external
// sources. Providers fetch a single symbol; the Resolver chains providers,
// caches their answers for a short time, throttles outbound traffic and
// fans out over many symbols, returning whatever it could resolve.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// Provider fetches the current quote of a single symbol.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

const (
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxResponseBytes = 4 << 20
	requestTimeout   = 15 * time.Second
)

// NewHTTPClient returns a client with a cookie jar, which some quote pages
// require before they serve prices.
func NewHTTPClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	return &http.Client{
		Jar:     jar,
		Timeout: requestTimeout,
	}
}

// expandURL substitutes the escaped symbol for every {symbol} in template.
func expandURL(template, symbol string) string {
	return strings.ReplaceAll(template, "{symbol}", url.PathEscape(symbol))
}

// fetch performs a GET request and returns at most maxResponseBytes of the body.
func fetch(ctx context.Context, client *http.Client, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// positivePrice rejects zero and negative prices, which providers return for
// suspended or unknown instruments.
func positivePrice(symbol string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("non-positive price %s for %s", price, symbol)
	}
	return nil
}

// parsePriceText parses a price as displayed on a web page, such as
// "1,234.56", "1.234,56", "€ 12,30" or "$99".
func parsePriceText(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The later separator is the decimal one.
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 != 3 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no number in %q", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return d, nil
}
