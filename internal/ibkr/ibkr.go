// Package ibkr fetches Interactive Brokers Flex statements and converts their
// trades and dividends into portfolio transactions.
package ibkr

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
)

// DefaultSendRequestURL is the Flex Web Service endpoint that queues a statement.
const DefaultSendRequestURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService/SendRequest"

const maxResponseBytes = 16 << 20

// Error codes meaning the statement is still being generated.
var retryableCodes = map[int]bool{1018: true, 1019: true, 1021: true}

// ErrMissingCredentials is returned when the Flex token or query ID is empty.
var ErrMissingCredentials = errors.New("ibkr flex token and query ID are required")

// FetchError wraps a failure talking to the Flex Web Service.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "ibkr flex fetch: " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches Flex statements. FinanceClient is the production implementation.
type Client interface {
	FlexReport(ctx context.Context, token, queryID string) (FlexQueryResponse, error)
}

// FinanceClient talks to the IBKR Flex Web Service.
type FinanceClient struct {
	httpClient     *http.Client
	sendRequestURL string
	backoff        time.Duration
	maxBackoff     time.Duration
	maxAttempts    int
}

// Option configures a FinanceClient.
type Option func(*FinanceClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(fc *FinanceClient) {
		fc.httpClient = c
	}
}

// WithSendRequestURL points the client at another SendRequest endpoint, such as a test server.
func WithSendRequestURL(u string) Option {
	return func(fc *FinanceClient) {
		fc.sendRequestURL = u
	}
}

// WithBackoff sets the initial and maximum wait between statement polls.
func WithBackoff(initial, maxWait time.Duration) Option {
	return func(fc *FinanceClient) {
		fc.backoff = initial
		fc.maxBackoff = maxWait
	}
}

// NewFinanceClient creates a Flex client that polls up to 10 times with
// exponential backoff from 2s to 30s.
func NewFinanceClient(opts ...Option) *FinanceClient {
	c := &FinanceClient{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		sendRequestURL: DefaultSendRequestURL,
		backoff:        2 * time.Second,
		maxBackoff:     30 * time.Second,
		maxAttempts:    10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FlexReport queues the Flex query and polls until the statement is ready.
// Failures other than missing credentials are returned as *FetchError.
func (c *FinanceClient) FlexReport(ctx context.Context, token, queryID string) (FlexQueryResponse, error) {
	if token == "" || queryID == "" {
		return FlexQueryResponse{}, ErrMissingCredentials
	}

	queued, err := c.sendRequest(ctx, token, queryID)
	if err != nil {
		return FlexQueryResponse{}, &FetchError{Err: err}
	}
	report, err := c.getStatement(ctx, token, queued)
	if err != nil {
		return FlexQueryResponse{}, &FetchError{Err: err}
	}
	return report, nil
}

func (c *FinanceClient) sendRequest(ctx context.Context, token, queryID string) (FlexRequestResponse, error) {
	q := url.Values{"t": {token}, "q": {queryID}, "v": {"3"}}
	data, err := c.get(ctx, c.sendRequestURL+"?"+q.Encode())
	if err != nil {
		return FlexRequestResponse{}, err
	}

	var resp FlexRequestResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return FlexRequestResponse{}, fmt.Errorf("failed to decode flex request response: %w", err)
	}
	if resp.ErrorCode != nil {
		return resp, flexError(resp)
	}
	if resp.Status != "Success" || resp.URL == "" {
		return resp, fmt.Errorf("ibkr flex request failed with status %q", resp.Status)
	}
	return resp, nil
}

func (c *FinanceClient) getStatement(ctx context.Context, token string, queued FlexRequestResponse) (FlexQueryResponse, error) {
	q := url.Values{"t": {token}, "q": {queued.ReferenceCode}, "v": {"3"}}
	statementURL := queued.URL + "?" + q.Encode()

	backoff := c.backoff
	for attempt := range c.maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return FlexQueryResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
		}

		data, err := c.get(ctx, statementURL)
		if err != nil {
			return FlexQueryResponse{}, err
		}

		report, err := ParseFlexReport(data)
		if err == nil {
			return report, nil
		}

		var pending FlexRequestResponse
		if xml.Unmarshal(data, &pending) != nil || pending.ErrorCode == nil {
			return FlexQueryResponse{}, err
		}
		if !retryableCodes[*pending.ErrorCode] {
			return FlexQueryResponse{}, flexError(pending)
		}
		logger.L.Debug("Flex statement not ready", "attempt", attempt+1, "code", *pending.ErrorCode)
	}

	return FlexQueryResponse{}, fmt.Errorf("ibkr flex statement not ready after %d attempts", c.maxAttempts)
}

func (c *FinanceClient) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ibkr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ibkr request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// ParseFlexReport decodes a Flex statement document, for example one saved
// from the IBKR portal.
func ParseFlexReport(data []byte) (FlexQueryResponse, error) {
	var report FlexQueryResponse
	if err := xml.Unmarshal(data, &report); err != nil {
		return FlexQueryResponse{}, fmt.Errorf("failed to decode flex statement: %w", err)
	}
	return report, nil
}

func flexError(resp FlexRequestResponse) error {
	msg := ""
	if resp.ErrorMessage != nil {
		msg = *resp.ErrorMessage
	}
	return fmt.Errorf("ibkr error %d: %s", *resp.ErrorCode, msg)
}
