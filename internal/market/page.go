package market

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// pageRule extracts a raw price string from a node, reporting whether the
// node matched.
type pageRule struct {
	name  string
	match func(n *html.Node) (string, bool)
}

// pageRules are tried in order; the first rule that yields a parsable
// price anywhere in the document wins.
var pageRules = []pageRule{
	{
		name: "data-last-price",
		match: func(n *html.Node) (string, bool) {
			return attr(n, "data-last-price")
		},
	},
	{
		name: "fin-streamer",
		match: func(n *html.Node) (string, bool) {
			if n.Data != "fin-streamer" {
				return "", false
			}
			if field, _ := attr(n, "data-field"); field != "regularMarketPrice" {
				return "", false
			}
			if v, ok := attr(n, "value"); ok && v != "" {
				return v, true
			}
			return textContent(n), true
		},
	},
	{
		name: "meta-itemprop-price",
		match: func(n *html.Node) (string, bool) {
			if n.Data != "meta" {
				return "", false
			}
			if prop, _ := attr(n, "itemprop"); prop != "price" {
				return "", false
			}
			return attr(n, "content")
		},
	},
}

func attr(n *html.Node, key string) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// find returns the first node in document order for which match succeeds
// with a parsable price.
func find(root *html.Node, match func(*html.Node) (string, bool)) (decimal.Decimal, bool) {
	var result decimal.Decimal
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if raw, ok := match(n); ok {
			if d, err := parsePriceText(raw); err == nil {
				result, found = d, true
				return
			}
		}
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return result, found
}

// findCurrency reads <meta itemprop="priceCurrency" content="...">.
func findCurrency(root *html.Node) string {
	var currency string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if currency != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			if prop, _ := attr(n, "itemprop"); prop == "priceCurrency" {
				currency, _ = attr(n, "content")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ExtractPagePrice scans an HTML document for a price using pageRules.
// It returns the price, the currency if the page declares one, and the name
// of the rule that matched.
func ExtractPagePrice(doc []byte) (price decimal.Decimal, currency, rule string, err error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return decimal.Decimal{}, "", "", fmt.Errorf("failed to parse page: %w", err)
	}
	for _, r := range pageRules {
		if d, ok := find(root, r.match); ok {
			return d, findCurrency(root), r.name, nil
		}
	}
	return decimal.Decimal{}, "", "", fmt.Errorf("no price found on page")
}

// PageProvider scrapes a price from an HTML quote page.
type PageProvider struct {
	client      *http.Client
	urlTemplate string
	now         func() time.Time
}

// NewPageProvider creates a provider for the given URL template.
func NewPageProvider(client *http.Client, urlTemplate string) *PageProvider {
	return &PageProvider{
		client:      client,
		urlTemplate: urlTemplate,
		now:         time.Now,
	}
}

func (p *PageProvider) Name() string { return "page" }

func (p *PageProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	body, err := fetch(ctx, p.client, expandURL(p.urlTemplate, symbol), "text/html")
	if err != nil {
		return model.Quote{}, err
	}

	price, currency, _, err := ExtractPagePrice(body)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	if err := positivePrice(symbol, price); err != nil {
		return model.Quote{}, err
	}

	asOf := p.now().UTC()
	return model.Quote{Symbol: symbol, Price: price, Currency: currency, AsOf: &asOf, Source: p.Name()}, nil
}
