package market

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// NewProviders builds the configured providers in order.
// Valid names are yahoo, jsonpath and page; jsonpath needs QUOTE_JSON_URL and
// QUOTE_JSON_PATH, page needs QUOTE_PAGE_URL.
func NewProviders(cfg config.QuoteConfig, client *http.Client) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "yahoo":
			providers = append(providers, NewYahooProvider(yahoo.NewFinanceClient(yahoo.WithHTTPClient(client))))
		case "jsonpath":
			if cfg.JSONURL == "" || cfg.JSONPath == "" {
				return nil, fmt.Errorf("jsonpath provider needs QUOTE_JSON_URL and QUOTE_JSON_PATH")
			}
			providers = append(providers, NewJSONPathProvider(client, cfg.JSONURL, cfg.JSONPath))
		case "page":
			if cfg.PageURL == "" {
				return nil, fmt.Errorf("page provider needs QUOTE_PAGE_URL")
			}
			providers = append(providers, NewPageProvider(client, cfg.PageURL))
		default:
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownProvider, name)
		}
	}
	return providers, nil
}

// NewResolverFromConfig builds providers and a resolver from configuration.
func NewResolverFromConfig(cfg config.QuoteConfig) (*Resolver, error) {
	providers, err := NewProviders(cfg, NewHTTPClient())
	if err != nil {
		return nil, err
	}
	return NewResolver(providers,
		WithTTL(cfg.TTL),
		WithRateLimit(cfg.RatePerSecond, max(cfg.Concurrency, 1)),
		WithConcurrency(cfg.Concurrency),
	), nil
}
