package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// JSONPathProvider reads a price out of an arbitrary JSON endpoint.
// The URL template has {symbol} substituted; the JSONPath expression
// selects the price, which may be a JSON number or a numeric string.
type JSONPathProvider struct {
	client      *http.Client
	urlTemplate string
	path        string
	now         func() time.Time
}

// NewJSONPathProvider creates a provider for the given URL template and JSONPath expression.
func NewJSONPathProvider(client *http.Client, urlTemplate, path string) *JSONPathProvider {
	return &JSONPathProvider{
		client:      client,
		urlTemplate: urlTemplate,
		path:        path,
		now:         time.Now,
	}
}

func (p *JSONPathProvider) Name() string { return "jsonpath" }

func (p *JSONPathProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	body, err := fetch(ctx, p.client, expandURL(p.urlTemplate, symbol), "application/json")
	if err != nil {
		return model.Quote{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return model.Quote{}, fmt.Errorf("invalid JSON for %s: %w", symbol, err)
	}

	jval, err := jsonpath.Get(p.path, jobj)
	if err != nil {
		return model.Quote{}, fmt.Errorf("error evaluating %q for %s: %w", p.path, symbol, err)
	}
	// jsonpath returns a list for wildcard and slice expressions; keep the first match.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return model.Quote{}, fmt.Errorf("no match for %q for %s", p.path, symbol)
		}
		jval = jlist[0]
	}

	var price decimal.Decimal
	switch v := jval.(type) {
	case json.Number:
		price, err = decimal.NewFromString(v.String())
	case string:
		price, err = parsePriceText(v)
	case float64:
		price = decimal.NewFromFloat(v)
	default:
		err = fmt.Errorf("unexpected %T", jval)
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("error parsing %q for %s: %w", p.path, symbol, err)
	}
	if err := positivePrice(symbol, price); err != nil {
		return model.Quote{}, err
	}

	asOf := p.now().UTC()
	return model.Quote{Symbol: symbol, Price: price, AsOf: &asOf, Source: p.Name()}, nil
}
